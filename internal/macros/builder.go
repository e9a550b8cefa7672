package macros

import (
	"fmt"
	"strings"
)

// Definitions may reference other definitions, but chains deeper than this
// indicate a reference cycle.
const maxDepth = 8

// Renders stage scripts against a layered set of definitions and actions.
//
// Layers are fed in with [ScriptBuilder.AddFile] and [ScriptBuilder.AddActions];
// within the definition namespace the last layer to define a key wins, while
// actions from every layer accumulate. Script text references a definition as
// %(key), an action as %name, and a literal percent sign as %%.
type ScriptBuilder struct {
	definitions map[string]string
	actions     map[string]string
}

// Creates an empty renderer.
func NewScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{
		definitions: make(map[string]string),
		actions:     make(map[string]string),
	}
}

// Adds or replaces a single definition.
func (b *ScriptBuilder) Define(key, value string) {
	b.definitions[key] = value
}

// Merges a file's definitions and actions into the renderer.
//
// Definitions already present are replaced, so callers control precedence by
// feeding files lowest layer first.
func (b *ScriptBuilder) AddFile(f *File) {
	for _, d := range f.Definitions {
		b.definitions[d.Key] = d.Value
	}
	b.addActions(f)
}

// Merges only a file's actions into the renderer.
//
// Used for action files, which extend the vocabulary of stage scripts without
// touching the definition layers.
func (b *ScriptBuilder) AddActions(f *File) {
	b.addActions(f)
}

func (b *ScriptBuilder) addActions(f *File) {
	for _, a := range f.Actions {
		b.actions[a.Key] = a.Command
	}
}

// Reports whether a definition exists for the given key.
func (b *ScriptBuilder) Defined(key string) bool {
	_, ok := b.definitions[key]
	return ok
}

// Renders script text by substituting every macro reference.
//
// Substituted values are themselves expanded, so definitions and actions may
// reference other macros. References to unknown keys are an error rather than
// passing through silently, which lets a build validate every script before
// running any of them.
func (b *ScriptBuilder) Expand(text string) (string, error) {
	return b.expand(text, 0)
}

func (b *ScriptBuilder) expand(text string, depth int) (string, error) {
	if depth > maxDepth {
		return "", fmt.Errorf("%w (%d levels)", ErrDepth, maxDepth)
	}

	var out strings.Builder
	for i := 0; i < len(text); {
		if text[i] != '%' {
			out.WriteByte(text[i])
			i++
			continue
		}
		if i+1 >= len(text) {
			out.WriteByte('%')
			break
		}

		switch next := text[i+1]; {
		case next == '%':
			out.WriteByte('%')
			i += 2

		case next == '(':
			end := strings.IndexByte(text[i+2:], ')')
			if end < 0 {
				return "", fmt.Errorf("%w: %q", ErrUnterminated, text[i:])
			}
			key := text[i+2 : i+2+end]
			value, ok := b.definitions[key]
			if !ok {
				return "", fmt.Errorf("%w: %%(%s)", ErrUnknownMacro, key)
			}
			expanded, err := b.expand(value, depth+1)
			if err != nil {
				return "", err
			}
			out.WriteString(expanded)
			i += end + 3

		case isNameStart(next):
			j := i + 1
			for j < len(text) && isNameByte(text[j]) {
				j++
			}
			name := text[i+1 : j]
			command, ok := b.actions[name]
			if !ok {
				return "", fmt.Errorf("%w: %%%s", ErrUnknownMacro, name)
			}
			expanded, err := b.expand(command, depth+1)
			if err != nil {
				return "", err
			}
			out.WriteString(expanded)
			i = j

		default:
			// A percent sign not introducing a reference stays literal.
			out.WriteByte('%')
			i++
		}
	}
	return out.String(), nil
}

func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNameByte(c byte) bool {
	return isNameStart(c) || ('0' <= c && c <= '9')
}

package macros

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Represents one parsed macro definitions file.
//
// Definitions and actions keep the order they appear in on disk. Order
// matters to callers layering several files: a later definition of the same
// key replaces an earlier one.
type File struct {
	Definitions []Definition `yaml:"definitions"`
	Actions     []Action     `yaml:"actions"`
}

// A single key/value substitution, written in YAML as a one-entry mapping:
//
//	definitions:
//	  - libdir: /usr/lib
type Definition struct {
	Key   string
	Value string
}

// A named script fragment invoked from stage scripts as %name.
//
// Written either compactly, mapping the name straight to its command, or in
// expanded form with a description:
//
//	actions:
//	  - make: make -j%(jobs)
//	  - install_license:
//	      description: Install LICENSE into the licenses directory
//	      command: install -Dm644 LICENSE %(pkgdir)/usr/share/licenses/%(name)/LICENSE
type Action struct {
	Key         string
	Description string
	Command     string
}

// Decodes a definition from its one-entry mapping form.
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("%w: definitions must hold exactly one key each", ErrMacroFile)
	}

	key, value := node.Content[0], node.Content[1]
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: definition %q must map to a scalar", ErrMacroFile, key.Value)
	}

	d.Key = key.Value
	d.Value = value.Value
	return nil
}

// Decodes an action from either its compact or its expanded form.
func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("%w: actions must hold exactly one key each", ErrMacroFile)
	}

	key, value := node.Content[0], node.Content[1]
	a.Key = key.Value

	// Compact form: the name maps straight to the command.
	if value.Kind == yaml.ScalarNode {
		a.Command = value.Value
		return nil
	}

	var body struct {
		Description string `yaml:"description"`
		Command     string `yaml:"command"`
	}
	if err := value.Decode(&body); err != nil {
		return fmt.Errorf("%w: action %q: %w", ErrMacroFile, a.Key, err)
	}
	if body.Command == "" {
		return fmt.Errorf("%w: action %q has no command", ErrMacroFile, a.Key)
	}

	a.Description = body.Description
	a.Command = body.Command
	return nil
}

// Parses a macro definitions file from its YAML encoding.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		if errors.Is(err, ErrMacroFile) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrMacroFile, err)
	}
	return &f, nil
}

// Reads and parses the macro definitions file at the given path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

// Renders log records in a terse, optionally colored format suitable for a
// terminal.
//
// Clones produced by WithAttrs and WithGroup share the handler's mutable
// configuration, so the level, output, and verbosity can be adjusted after
// the logger has been scoped.
type Handler struct {
	state  *state
	attrs  []slog.Attr
	groups []string
}

// Holds configuration shared by a handler and all of its clones.
type state struct {
	mu      sync.Mutex
	out     io.Writer
	colors  *termenv.Output
	level   slog.LevelVar
	verbose bool
}

// Creates a handler writing to standard error at level info.
//
// Colors are enabled when standard error is a terminal and the environment
// does not ask for them to be suppressed.
func NewHandler() *Handler {
	h := &Handler{state: &state{}}
	h.SetOutput(os.Stderr)
	return h
}

// Adjusts the minimum level a record must have to be emitted.
func (h *Handler) SetLevel(level slog.Level) {
	h.state.level.Set(level)
}

// Redirects records to the given writer.
//
// Color support is re-detected from the writer.
func (h *Handler) SetOutput(w io.Writer) {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	h.state.out = w
	h.state.colors = termenv.NewOutput(w)
}

// Toggles verbose rendering, which prefixes each record with its timestamp.
func (h *Handler) SetVerbose(verbose bool) {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	h.state.verbose = verbose
}

// Whether a record at the given level would be emitted.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.state.level.Level()
}

// Formats and writes a single record.
func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()

	var b strings.Builder
	if h.state.verbose {
		stamp := record.Time
		if stamp.IsZero() {
			stamp = time.Now()
		}
		b.WriteString(h.faint(stamp.Format("15:04:05")))
		b.WriteByte(' ')
	}

	b.WriteString(h.levelLabel(record.Level))
	b.WriteByte(' ')
	b.WriteString(record.Message)

	for _, attr := range h.attrs {
		h.appendAttr(&b, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		h.appendAttr(&b, h.groups, attr)
		return true
	})

	b.WriteByte('\n')

	_, err := io.WriteString(h.state.out, b.String())
	return err
}

// Returns a clone that includes the given attributes in every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

// Returns a clone that qualifies subsequent attribute keys with the given
// group name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *Handler) clone() *Handler {
	return &Handler{
		state:  h.state,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

// Appends a single attribute as " key=value", flattening groups into dotted
// key prefixes. Must be called with the state lock held.
func (h *Handler) appendAttr(b *strings.Builder, groups []string, attr slog.Attr) {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		nested := append(groups, attr.Key)
		for _, member := range value.Group() {
			h.appendAttr(b, nested, member)
		}
		return
	}
	if attr.Equal(slog.Attr{}) {
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(append(append([]string(nil), groups...), key), ".")
	}

	b.WriteByte(' ')
	b.WriteString(h.faint(key + "="))
	b.WriteString(formatValue(value))
}

// Renders a padded, colored level label. Must be called with the state lock
// held.
func (h *Handler) levelLabel(level slog.Level) string {
	label := level.String()
	if len(label) < 5 {
		label += strings.Repeat(" ", 5-len(label))
	}

	colors := h.state.colors
	switch {
	case level >= slog.LevelError:
		return colors.String(label).Foreground(colors.Color("9")).Bold().String()
	case level >= slog.LevelWarn:
		return colors.String(label).Foreground(colors.Color("11")).String()
	case level >= slog.LevelInfo:
		return colors.String(label).Foreground(colors.Color("12")).String()
	default:
		return colors.String(label).Faint().String()
	}
}

func (h *Handler) faint(s string) string {
	return h.state.colors.String(s).Faint().String()
}

// Formats an attribute value for display.
func formatValue(value slog.Value) string {
	switch value.Kind() {
	case slog.KindTime:
		return value.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok && err != nil {
			return err.Error()
		}
		return value.String()
	default:
		return value.String()
	}
}

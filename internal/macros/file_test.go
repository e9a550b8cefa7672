package macros

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParsePreservesOrder(t *testing.T) {
	f, err := Parse([]byte(`
definitions:
  - cflags: "-O2"
  - cflags: "-O3"
  - ldflags: "-s"
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if len(f.Definitions) != 3 {
		t.Fatalf("len(Definitions) = %d, want 3", len(f.Definitions))
	}
	if f.Definitions[1].Key != "cflags" || f.Definitions[1].Value != "-O3" {
		t.Fatalf("Definitions[1] = %+v, want the repeated cflags entry", f.Definitions[1])
	}

	// Layering honors file order, so the repeated key resolves to the later value.
	b := NewScriptBuilder()
	b.AddFile(f)
	got, err := b.Expand("%(cflags)")
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	if got != "-O3" {
		t.Fatalf("Expand(cflags) = %q, want -O3", got)
	}
}

func TestParseActionForms(t *testing.T) {
	f, err := Parse([]byte(`
actions:
  - make: make -j%(jobs)
  - install_license:
      description: Install the license file
      command: install -Dm644 LICENSE %(licensedir)/LICENSE
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if len(f.Actions) != 2 {
		t.Fatalf("len(Actions) = %d, want 2", len(f.Actions))
	}
	if f.Actions[0].Key != "make" || f.Actions[0].Command != "make -j%(jobs)" {
		t.Fatalf("compact action = %+v", f.Actions[0])
	}
	if f.Actions[1].Description != "Install the license file" {
		t.Fatalf("expanded action description = %q", f.Actions[1].Description)
	}
	if f.Actions[1].Command == "" {
		t.Fatal("expanded action has no command")
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"two keys in one definition", "definitions:\n  - a: 1\n    b: 2\n"},
		{"definition maps to a list", "definitions:\n  - a: [1, 2]\n"},
		{"action without command", "actions:\n  - configure:\n      description: no command\n"},
		{"not yaml", ": definitely not yaml ["},
	}

	for _, tt := range tests {
		if _, err := Parse([]byte(tt.data)); !errors.Is(err, ErrMacroFile) {
			t.Errorf("%s: Parse() error = %v, want ErrMacroFile", tt.name, err)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.yml")
	data := "definitions:\n  - prefix: /usr\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(f.Definitions) != 1 || f.Definitions[0].Key != "prefix" {
		t.Fatalf("Load() definitions = %+v", f.Definitions)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err == nil {
		t.Fatal("Load() succeeded on a missing file")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("Load() error = %v, want a not-exist error", err)
	}
}

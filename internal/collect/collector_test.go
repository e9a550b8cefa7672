package collect

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// Builds a small install tree and returns its root.
func installTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestCollectFirstMatchWins(t *testing.T) {
	root := installTree(t, map[string]string{
		"usr/include/curses.h":   "header",
		"usr/bin/nano":           "binary",
		"usr/share/doc/nano/txt": "docs",
	})

	c := NewCollector()
	c.AddRule(Rule{Pattern: "/usr/include", Package: "nano-devel"})
	c.AddRule(Rule{Pattern: "*", Package: "nano"})

	if err := c.Collect(root); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	want := map[string]string{
		"/usr/include/curses.h":   "nano-devel",
		"/usr/bin/nano":           "nano",
		"/usr/share/doc/nano/txt": "nano",
	}
	for _, a := range c.Assignments() {
		if want[a.Path] != a.Package {
			t.Errorf("%s assigned to %q, want %q", a.Path, a.Package, want[a.Path])
		}
		delete(want, a.Path)
	}
	if len(want) != 0 {
		t.Fatalf("paths never assigned: %v", want)
	}
}

func TestCollectFallbackTotality(t *testing.T) {
	root := installTree(t, map[string]string{
		"opt/odd/location/file": "x",
	})

	c := NewCollector()
	c.AddRule(Rule{Pattern: "/usr/include", Package: "devel"})
	c.AddRule(Rule{Pattern: "*", Package: "main"})

	if err := c.Collect(root); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	assignments := c.Assignments()
	if len(assignments) != 1 {
		t.Fatalf("len(assignments) = %d, want 1", len(assignments))
	}
	if assignments[0].Package != "main" {
		t.Fatalf("unmatched path assigned to %q, want main", assignments[0].Package)
	}
}

func TestCollectWithoutRules(t *testing.T) {
	root := installTree(t, map[string]string{"usr/bin/tool": "x"})

	c := NewCollector()
	err := c.Collect(root)
	if !errors.Is(err, ErrNoRule) {
		t.Fatalf("Collect() error = %v, want ErrNoRule", err)
	}
	if !errors.Is(err, ErrCollect) {
		t.Fatalf("Collect() error = %v, want ErrCollect wrapping", err)
	}
}

func TestCollectIdempotent(t *testing.T) {
	root := installTree(t, map[string]string{
		"usr/bin/nano":         "binary",
		"usr/include/curses.h": "header",
	})

	c := NewCollector()
	c.AddRule(Rule{Pattern: "/usr/include", Package: "devel"})
	c.AddRule(Rule{Pattern: "*", Package: "main"})

	if err := c.Collect(root); err != nil {
		t.Fatalf("first Collect() error: %v", err)
	}
	first := c.Assignments()

	if err := c.Collect(root); err != nil {
		t.Fatalf("second Collect() error: %v", err)
	}
	second := c.Assignments()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("assignments changed across identical collections:\n%v\n%v", first, second)
	}
}

func TestCollectDistinctRoots(t *testing.T) {
	native := installTree(t, map[string]string{"usr/bin/tool": "64-bit"})
	emul32 := installTree(t, map[string]string{"usr/bin/tool": "32-bit"})

	c := NewCollector()
	c.AddRule(Rule{Pattern: "*", Package: "main"})

	if err := c.Collect(native); err != nil {
		t.Fatalf("Collect(native) error: %v", err)
	}
	if err := c.Collect(emul32); err != nil {
		t.Fatalf("Collect(emul32) error: %v", err)
	}

	assignments := c.Assignments()
	if len(assignments) != 2 {
		t.Fatalf("len(assignments) = %d, want one per root", len(assignments))
	}
	if assignments[0].Source == assignments[1].Source {
		t.Fatal("distinct roots collided on source path")
	}
}

func TestCollectSymlink(t *testing.T) {
	root := installTree(t, map[string]string{"usr/lib/libfoo.so.1": "elf"})
	if err := os.Symlink("libfoo.so.1", filepath.Join(root, "usr/lib/libfoo.so")); err != nil {
		t.Fatal(err)
	}

	c := NewCollector()
	c.AddRule(Rule{Pattern: "*", Package: "main"})
	if err := c.Collect(root); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	var link *Assignment
	for _, a := range c.Assignments() {
		if a.Path == "/usr/lib/libfoo.so" {
			link = &a
			break
		}
	}
	if link == nil {
		t.Fatal("symlink not collected")
	}
	if link.Link != "libfoo.so.1" {
		t.Fatalf("Link = %q, want libfoo.so.1", link.Link)
	}
	if link.Digest != "" {
		t.Fatalf("symlink has a content digest: %q", link.Digest)
	}
}

func TestCollectDigests(t *testing.T) {
	root := installTree(t, map[string]string{
		"usr/share/a": "same content",
		"usr/share/b": "same content",
	})

	c := NewCollector()
	c.AddRule(Rule{Pattern: "*", Package: "main"})
	if err := c.Collect(root); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	assignments := c.Assignments()
	if len(assignments) != 2 {
		t.Fatalf("len(assignments) = %d, want 2", len(assignments))
	}
	for _, a := range assignments {
		if !strings.HasPrefix(a.Digest, "blake3:") {
			t.Fatalf("digest %q lacks algorithm prefix", a.Digest)
		}
		if len(a.Digest) != len("blake3:")+64 {
			t.Fatalf("digest %q has unexpected length", a.Digest)
		}
	}
	if assignments[0].Digest != assignments[1].Digest {
		t.Fatal("identical content produced different digests")
	}
}

func TestByPackage(t *testing.T) {
	root := installTree(t, map[string]string{
		"usr/include/a.h": "h",
		"usr/bin/tool":    "b",
		"usr/bin/other":   "b2",
	})

	c := NewCollector()
	c.AddRule(Rule{Pattern: "/usr/include", Package: "devel"})
	c.AddRule(Rule{Pattern: "*", Package: "main"})
	if err := c.Collect(root); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	grouped := c.ByPackage()
	if len(grouped["devel"]) != 1 || len(grouped["main"]) != 2 {
		t.Fatalf("grouping = devel:%d main:%d, want devel:1 main:2",
			len(grouped["devel"]), len(grouped["main"]))
	}
	if grouped["main"][0].Path > grouped["main"][1].Path {
		t.Fatal("grouped assignments not ordered by path")
	}
}

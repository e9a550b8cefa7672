package build

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/adrg/xdg"
	"github.com/opencontainers/go-digest"

	"github.com/stoneforge/mason/internal/platform"
)

// Points the home-anchored paths at a throwaway directory for one test.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Cleanup(xdg.Reload)
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	xdg.Reload()
	return home
}

// Writes a macro tree for whatever platform the test host detects as.
func writeHostMacroTree(t *testing.T, dir string) {
	t.Helper()
	plat := platform.Detect()
	writeFile(t, filepath.Join(dir, "base.yml"), `
definitions:
    - opt: -O2
actions:
    - scriptBase: |
        set -e
        cd %(builddir)
`)
	writeFile(t, filepath.Join(dir, plat.Name+".yml"), "definitions:\n    - march: native\n")
	if plat.Emul32 {
		writeFile(t, filepath.Join(dir, "emul32", plat.Name+".yml"), "definitions:\n    - march: i686\n")
	}
}

// Builds a gzipped tar archive holding the given files.
func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, name := range slices.Sorted(maps.Keys(files)) {
		content := files[name]
		header := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := io.WriteString(tw, content); err != nil {
			t.Fatalf("write payload: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

func TestBuilderEndToEnd(t *testing.T) {
	isolateHome(t)

	archive := tarball(t, map[string]string{"hello-1.0/hello.txt": "hello from mason\n"})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(archive)
	}))
	defer srv.Close()

	macroDir := t.TempDir()
	writeHostMacroTree(t, macroDir)

	recipePath := filepath.Join(t.TempDir(), "stone.yml")
	writeFile(t, recipePath, fmt.Sprintf(`
name: hello
version: "1.0"
release: 1
summary: End to end fixture
upstreams:
    - %s/hello-1.0.tar.gz: %s
install: |
    install -Dm644 hello.txt %%(pkgdir)/usr/share/hello/hello.txt
`, srv.URL, digest.FromBytes(archive)))

	outDir := t.TempDir()
	opts := Options{Output: outDir, Jobs: 2, Macros: macroDir}

	b, err := New(recipePath, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b.installer = ""
	if err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	pkg := filepath.Join(outDir, "hello-1.0-1.pkg.tar.zst")
	if _, err := os.Stat(pkg); err != nil {
		t.Fatalf("emitted package: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("upstream fetches = %d, want 1", got)
	}

	// A second build of the same recipe finds the upstream in the cache and
	// issues no further network fetch.
	b, err = New(recipePath, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b.installer = ""
	if err := b.Build(context.Background()); err != nil {
		t.Fatalf("second Build failed: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("upstream fetches after rebuild = %d, want 1", got)
	}
}

func TestBuilderBuildFailureEmitsNothing(t *testing.T) {
	isolateHome(t)

	macroDir := t.TempDir()
	writeHostMacroTree(t, macroDir)

	recipePath := filepath.Join(t.TempDir(), "stone.yml")
	writeFile(t, recipePath, `
name: broken
version: "1.0"
release: 1
build: |
    exit 1
install: |
    touch %(pkgdir)/installed-marker
`)

	outDir := t.TempDir()
	b, err := New(recipePath, Options{Output: outDir, Jobs: 1, Macros: macroDir})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b.installer = ""

	err = b.Build(context.Background())
	if !errors.Is(err, ErrBuild) {
		t.Fatalf("Build error = %v, want %v", err, ErrBuild)
	}
	if !strings.Contains(err.Error(), "stage build") {
		t.Fatalf("error %q does not name the failing stage", err)
	}

	// The install stage never ran and no package was emitted.
	if _, err := os.Stat(filepath.Join(b.Context().PkgDir(), "installed-marker")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("install marker: %v, want not exist", err)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("output dir has %d entries, want none", len(entries))
	}
}

func TestBuilderUnsupportedArchitecture(t *testing.T) {
	isolateHome(t)

	macroDir := t.TempDir()
	writeHostMacroTree(t, macroDir)

	recipePath := filepath.Join(t.TempDir(), "stone.yml")
	writeFile(t, recipePath, `
name: elsewhere
version: "1.0"
release: 1
architectures:
    - s390x
build: |
    make
`)

	if _, err := New(recipePath, Options{Macros: macroDir}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("New error = %v, want %v", err, ErrUnsupported)
	}
}

func TestBuilderValidationStopsPipeline(t *testing.T) {
	isolateHome(t)

	macroDir := t.TempDir()
	writeHostMacroTree(t, macroDir)

	recipePath := filepath.Join(t.TempDir(), "stone.yml")
	writeFile(t, recipePath, `
name: typo
version: "1.0"
release: 1
build: |
    %make_fast
`)

	b, err := New(recipePath, Options{Macros: macroDir, Output: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b.installer = ""

	if err := b.Build(context.Background()); !errors.Is(err, ErrValidate) {
		t.Fatalf("Build error = %v, want %v", err, ErrValidate)
	}
}

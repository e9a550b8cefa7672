package paths

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/stoneforge/mason/internal"
)

const (

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644

	// System location holding the installed macro definitions.
	systemMacroDir = "/usr/share/mason/macros"
)

// Raised when no home directory can be resolved for the current user.
var ErrNoHome = errors.New("cannot determine home directory")

// Base directory for isolated build roots, shared with the moss tree.
//
//	<home>/moss/buildRoot
//
// Each build claims <base>/<name>-<release> for itself.
func BuildRootBase() (string, error) {
	if xdg.Home == "" {
		return "", ErrNoHome
	}
	return filepath.Join(xdg.Home, "moss", "buildRoot"), nil
}

// Directory holding cached upstream source artefacts.
//
//	Linux:   ~/.cache/mason/upstreams
//	macOS:   ~/Library/Caches/mason/upstreams
//
// Entries are keyed by content hash and never evicted by mason itself.
func UpstreamCache() string {
	return filepath.Join(xdg.CacheHome, internal.Name, "upstreams")
}

// Candidate directories for macro definitions, in preference order: a
// "macros" directory next to the running executable (development trees),
// then the fixed system location.
func MacroDirs() []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Join(filepath.Dir(exe), "macros"))
	}
	return append(dirs, systemMacroDir)
}

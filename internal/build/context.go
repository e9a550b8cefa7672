package build

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/stoneforge/mason/internal/macros"
	"github.com/stoneforge/mason/internal/paths"
	"github.com/stoneforge/mason/internal/platform"
	"github.com/stoneforge/mason/internal/recipe"
)

const (

	// Subdirectory of the build root receiving installed files.
	pkgSubdir = "pkgdir"

	// Subdirectory of the build root receiving materialized sources.
	sourceSubdir = "sourcedir"

	// Name of the base macro definitions file.
	baseMacroFile = "base.yml"

	// Subdirectory of the macro directory holding 32-bit overrides.
	emul32Subdir = "emul32"

	// Subdirectory of the macro directory holding additive action files.
	actionsSubdir = "actions"
)

// The loaded macro layer: base definitions, native-architecture definitions,
// optional 32-bit overrides, and the additive action files.
type macroSet struct {
	base    *macros.File
	arch    *macros.File
	emul32  *macros.File            // Nil when the platform has no 32-bit mode.
	actions map[string]*macros.File // Keyed by filename without extension.
}

// Shared state for one build invocation.
//
// A context is constructed once per build, bound to an isolated root
// directory, and passed by reference into every profile and stage. After
// [Context.LoadMacros] and initial configuration complete it is treated as
// read-only for the remainder of the build, so profiles may consult it
// without locking.
type Context struct {
	specDir   string            // Directory holding the recipe file.
	rootDir   string            // Isolated build root owned by this build.
	outputDir string            // Where emitted packages are written.
	jobs      int               // Requested parallelism. <1 means autodetect.
	recipe    *recipe.Recipe    // Parsed recipe. Never nil.
	platform  platform.Platform // Detected build host.
	macros    *macroSet         // Loaded macro layer. Set by LoadMacros.
}

func newContext(specDir, rootDir, outputDir string, jobs int, rcp *recipe.Recipe, plat platform.Platform) *Context {
	return &Context{
		specDir:   specDir,
		rootDir:   rootDir,
		outputDir: outputDir,
		jobs:      jobs,
		recipe:    rcp,
		platform:  plat,
	}
}

// Returns the directory holding the recipe file.
func (c *Context) SpecDir() string {
	return c.specDir
}

// Returns the isolated build root owned by this build.
func (c *Context) RootDir() string {
	return c.rootDir
}

// Returns the directory emitted packages are written to.
func (c *Context) OutputDir() string {
	return c.outputDir
}

// Returns the install root shared by every profile of this build.
func (c *Context) PkgDir() string {
	return filepath.Join(c.rootDir, pkgSubdir)
}

// Returns the directory upstream sources are materialized into.
func (c *Context) SourceDir() string {
	return filepath.Join(c.rootDir, sourceSubdir)
}

// Returns the parsed recipe this build was constructed from.
func (c *Context) Recipe() *recipe.Recipe {
	return c.recipe
}

// Returns the detected build host.
func (c *Context) Platform() platform.Platform {
	return c.platform
}

// Returns the job count for parallel build steps. A requested value below
// one autodetects the host's available parallelism.
func (c *Context) Jobs() int {
	if c.jobs < 1 {
		return runtime.NumCPU()
	}
	return c.jobs
}

// Loads the macro layer from the given directory, or from the first default
// location that exists when dir is empty.
//
// The base file and the file named after the platform are both required.
// When the platform supports 32-bit compatibility builds the matching file
// under the emul32 subdirectory is required as well. The actions
// subdirectory is optional; every file in it is parsed and stored keyed by
// filename without extension.
func (c *Context) LoadMacros(dir string) error {
	if dir == "" {
		resolved, err := defaultMacroDir()
		if err != nil {
			return err
		}
		dir = resolved
	}

	set := &macroSet{actions: make(map[string]*macros.File)}

	var err error
	if set.base, err = loadMacroFile(filepath.Join(dir, baseMacroFile)); err != nil {
		return err
	}
	archFile := c.platform.Name + ".yml"
	if set.arch, err = loadMacroFile(filepath.Join(dir, archFile)); err != nil {
		return err
	}
	if c.platform.Emul32 {
		if set.emul32, err = loadMacroFile(filepath.Join(dir, emul32Subdir, archFile)); err != nil {
			return err
		}
	}

	if err := loadActionFiles(filepath.Join(dir, actionsSubdir), set.actions); err != nil {
		return err
	}

	c.macros = set
	return nil
}

// Seeds a renderer with this build's substitution keys and layers the loaded
// macro files for one architecture.
//
// The base file loads first, then the architecture file, then the 32-bit
// overrides for the emul32 profile, so later layers win per key. Action
// files cannot override definitions; they extend the action vocabulary and
// load last in sorted filename order.
func (c *Context) PrepareScripts(sb *macros.ScriptBuilder, arch string) error {
	if c.macros == nil {
		return fmt.Errorf("%w: macros not loaded", ErrMacros)
	}

	sb.Define("name", c.recipe.Name)
	sb.Define("version", c.recipe.Version)
	sb.Define("release", strconv.FormatInt(c.recipe.Release, 10))
	sb.Define("jobs", strconv.Itoa(c.Jobs()))
	sb.Define("pkgdir", c.PkgDir())
	sb.Define("sourcedir", c.SourceDir())
	sb.Define("arch", arch)

	sb.AddFile(c.macros.base)
	sb.AddFile(c.macros.arch)
	if arch == c.platform.Emul32Name() {
		if c.macros.emul32 == nil {
			return fmt.Errorf("%w: no emul32 definitions loaded", ErrMacros)
		}
		sb.AddFile(c.macros.emul32)
	}

	for _, name := range slices.Sorted(maps.Keys(c.macros.actions)) {
		sb.AddActions(c.macros.actions[name])
	}

	return nil
}

// Resolves the default macro directory as the first candidate location that
// exists on disk.
func defaultMacroDir() (string, error) {
	candidates := paths.MacroDirs()
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: no macro directory at %s", ErrMacros, strings.Join(candidates, " or "))
}

// Loads one required macro file. The returned error names the path, either
// through the read failure or through the parse wrapper.
func loadMacroFile(path string) (*macros.File, error) {
	f, err := macros.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMacros, err)
	}
	return f, nil
}

// Loads every action file beneath dir, keyed by filename without extension.
// A missing directory is not an error; action files are optional.
func loadActionFiles(dir string, into map[string]*macros.File) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMacros, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		f, err := macros.Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMacros, err)
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		into[name] = f
	}

	return nil
}

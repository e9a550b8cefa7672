package build

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/stoneforge/mason/internal/collect"
	"github.com/stoneforge/mason/internal/emit"
	"github.com/stoneforge/mason/internal/fetch"
	"github.com/stoneforge/mason/internal/macros"
	"github.com/stoneforge/mason/internal/paths"
	"github.com/stoneforge/mason/internal/platform"
	"github.com/stoneforge/mason/internal/recipe"
)

// Tunable builder behavior.
type Options struct {
	Output string // Directory receiving emitted packages. Empty means the working directory.
	Jobs   int    // Parallel job count for stage scripts. A value below 1 autodetects.
	Macros string // Macro directory override. Empty resolves the default locations.
}

// Drives one recipe through the full pipeline: root preparation, script
// validation, upstream fetching, per-architecture builds, asset collection,
// and package emission.
//
// A builder exclusively owns its isolated build root for the duration of one
// [Builder.Build] call. Two builders aimed at the same recipe name and
// release must not run at once.
type Builder struct {
	context   *Context
	cache     *fetch.Cache
	profiles  []*Profile
	collector *collect.Collector
	summaries map[string]string // Package summaries keyed by rendered name.
	installer string            // External package installer. Empty skips provisioning.
}

// Creates a builder for the recipe at the given path.
//
// The recipe is parsed and validated, the macro layer is loaded, one profile
// is registered per architecture the recipe supports on this host, and the
// collection rules are put in place. Construction performs no filesystem
// changes outside reading; the pipeline starts with [Builder.Build].
func New(recipePath string, opts Options) (*Builder, error) {
	r, err := recipe.Load(recipePath)
	if err != nil {
		return nil, err
	}

	specDir, err := filepath.Abs(filepath.Dir(recipePath))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	base, err := paths.BuildRootBase()
	if err != nil {
		return nil, err
	}
	rootDir := filepath.Join(base, fmt.Sprintf("%s-%d", r.Name, r.Release))

	output := opts.Output
	if output == "" {
		if output, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
		}
	}

	c := newContext(specDir, rootDir, output, opts.Jobs, r, platform.Detect())
	if err := c.LoadMacros(opts.Macros); err != nil {
		return nil, err
	}

	b := &Builder{
		context:   c,
		cache:     fetch.NewCache(paths.UpstreamCache()),
		installer: defaultInstaller,
	}
	if err := b.registerProfiles(); err != nil {
		return nil, err
	}
	if err := b.registerRules(); err != nil {
		return nil, err
	}

	return b, nil
}

// Returns the builder's shared context.
func (b *Builder) Context() *Context {
	return b.context
}

// Returns the registered profiles in build order.
func (b *Builder) Profiles() []*Profile {
	return b.profiles
}

// Runs the full pipeline.
//
// Steps run in a fixed order and the first failure aborts the run: prepare
// the root, validate every profile's scripts, fetch upstream sources, build
// each profile, collect installed assets, emit packages. A failing stage
// leaves no emitted package behind.
func (b *Builder) Build(ctx context.Context) error {
	r := b.context.Recipe()
	slog.Info("building package", "name", r.Name, "version", r.Version, "release", r.Release)

	if err := b.prepareRoot(ctx); err != nil {
		return err
	}
	if err := b.validate(); err != nil {
		return err
	}
	if err := b.fetchUpstreams(ctx); err != nil {
		return err
	}
	for _, p := range b.profiles {
		slog.Info("building architecture", "architecture", p.Architecture())
		if err := p.build(ctx); err != nil {
			return err
		}
	}
	if err := b.collect(); err != nil {
		return err
	}
	return b.emit()
}

// Registers one profile per architecture the recipe supports on this host.
//
// The 32-bit compatibility profile builds first so the native build's files
// win any colliding paths in the shared install root. A recipe supporting
// neither the host nor a generic marker cannot build here.
func (b *Builder) registerProfiles() error {
	r := b.context.Recipe()
	plat := b.context.Platform()

	if plat.Emul32 && (r.SupportedArchitecture("emul32") || r.SupportedArchitecture(plat.Emul32Name())) {
		p, err := newProfile(b.context, plat.Emul32Name())
		if err != nil {
			return err
		}
		b.profiles = append(b.profiles, p)
	}
	if r.SupportedArchitecture("native") || r.SupportedArchitecture(plat.Name) {
		p, err := newProfile(b.context, plat.Name)
		if err != nil {
			return err
		}
		b.profiles = append(b.profiles, p)
	}

	if len(b.profiles) == 0 {
		return fmt.Errorf("%w: %s supports %s", ErrUnsupported, r.Name, strings.Join(r.Architectures, ", "))
	}
	return nil
}

// Registers collection rules: the recipe's subpackage paths in declaration
// order, then the mandatory fallback assigning everything else to the main
// package.
//
// Subpackage names may use macros, so they render against the native
// profile's definitions before registration.
func (b *Builder) registerRules() error {
	r := b.context.Recipe()

	sb := macros.NewScriptBuilder()
	if err := b.context.PrepareScripts(sb, b.context.Platform().Name); err != nil {
		return err
	}

	b.collector = collect.NewCollector()
	b.summaries = map[string]string{r.Name: r.Summary}

	for _, pkg := range r.Packages {
		name, err := sb.Expand(pkg.Name)
		if err != nil {
			return fmt.Errorf("%w: package name %q: %w", ErrValidate, pkg.Name, err)
		}
		b.summaries[name] = pkg.Summary
		for _, pattern := range pkg.Paths {
			b.collector.AddRule(collect.Rule{Pattern: pattern, Package: name})
		}
	}

	b.collector.AddRule(collect.Rule{Pattern: "*", Package: r.Name})
	return nil
}

// Renders every profile's stage scripts before anything executes.
func (b *Builder) validate() error {
	for _, p := range b.profiles {
		if err := p.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Brings every upstream source into the build.
//
// Sources already cached are not fetched again. The fetch batch is
// all-or-nothing: the first failure cancels the remaining transfers and
// aborts the pipeline. Afterwards every declared source, cached or fresh, is
// materialized into the source directory under its target name.
func (b *Builder) fetchUpstreams(ctx context.Context) error {
	r := b.context.Recipe()

	q := fetch.NewQueue(b.cache, 0)
	for _, u := range r.Upstreams {
		if b.cache.Contains(fetch.Key(u)) {
			continue
		}
		q.Enqueue(u)
	}
	if !q.Empty() {
		if err := q.Fetch(ctx); err != nil {
			return err
		}
	}

	for _, u := range r.Upstreams {
		if err := fetch.Materialize(ctx, b.cache, u, b.context.SourceDir()); err != nil {
			return err
		}
	}
	return nil
}

// Walks every distinct install root once.
//
// Profiles share the context's install root, so however many profiles
// installed into it, each root scans a single time.
func (b *Builder) collect() error {
	seen := make(map[string]bool)
	for _, p := range b.profiles {
		root := p.InstallRoot()
		if seen[root] {
			continue
		}
		seen[root] = true
		if err := b.collector.Collect(root); err != nil {
			return err
		}
	}
	return nil
}

// Writes one archive per package that collected at least one file.
func (b *Builder) emit() error {
	r := b.context.Recipe()

	grouped := b.collector.ByPackage()
	for _, name := range slices.Sorted(maps.Keys(grouped)) {
		meta := emit.Metadata{
			Version: r.Version,
			Release: r.Release,
			Summary: b.summaries[name],
		}
		if _, err := emit.Write(name, meta, grouped[name], b.context.OutputDir()); err != nil {
			return err
		}
	}
	return nil
}

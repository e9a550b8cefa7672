package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/stoneforge/mason/internal/macros"
	"github.com/stoneforge/mason/internal/paths"
	"github.com/stoneforge/mason/internal/recipe"
)

// Keys the macro files may define to inject instrumentation flags for a
// profile-guided-optimization phase. A stage whose phase has no matching
// definition renders with empty flags.
var pgoFlagKeys = map[Phase]string{
	PhaseStage1: "pgo_stage1_flags",
	PhaseStage2: "pgo_stage2_flags",
	PhaseUse:    "pgo_use_flags",
}

// One architecture's full build pipeline: an ordered sequence of stages and
// the locations they run against.
//
// Profiles of one build share the context's install root, so native and
// emul32 files land in a single tree and split into packages by collection
// rules.
type Profile struct {
	context *Context
	arch    string
	stages  []*Stage
}

// Creates a profile for one architecture and assembles its stage plan from
// the context's recipe.
func newProfile(c *Context, arch string) (*Profile, error) {
	p := &Profile{context: c, arch: arch}
	if err := p.plan(); err != nil {
		return nil, err
	}
	return p, nil
}

// Returns the architecture this profile builds for.
func (p *Profile) Architecture() string {
	return p.arch
}

// Returns the profile's stages in execution order.
func (p *Profile) Stages() []*Stage {
	return p.stages
}

// Returns the directory the profile's files install into.
func (p *Profile) InstallRoot() string {
	return p.context.PkgDir()
}

// Returns the directory the profile's stages run in.
func (p *Profile) BuildDir() string {
	return filepath.Join(p.context.RootDir(), "build", archSlug(p.arch))
}

// Returns the directory profile-guided-optimization data accumulates in.
func (p *Profile) pgoDir() string {
	return filepath.Join(p.context.RootDir(), "pgo", archSlug(p.arch))
}

// Assembles the stage sequence for this profile from the recipe.
//
// Prepare always comes first. A recipe with a workload script builds through
// instrumented profile-guided phases, and the LLVM toolchain adds a second
// instrumentation pass for context-sensitive profile data. Stages with no
// script are skipped.
func (p *Profile) plan() error {
	r := p.context.Recipe()

	type step struct {
		kind   Kind
		phase  Phase
		script string
	}

	steps := []step{{KindPrepare, PhaseNone, prepareScript(r.Upstreams)}}
	if strings.TrimSpace(r.Workload) != "" {
		steps = append(steps,
			step{KindSetup, PhaseStage1, r.Setup},
			step{KindBuild, PhaseStage1, r.Build},
			step{KindWorkload, PhaseStage1, r.Workload},
		)
		if r.Toolchain == recipe.ToolchainLLVM {
			steps = append(steps,
				step{KindSetup, PhaseStage2, r.Setup},
				step{KindBuild, PhaseStage2, r.Build},
				step{KindWorkload, PhaseStage2, r.Workload},
			)
		}
		steps = append(steps,
			step{KindSetup, PhaseUse, r.Setup},
			step{KindBuild, PhaseUse, r.Build},
		)
	} else {
		steps = append(steps,
			step{KindSetup, PhaseNone, r.Setup},
			step{KindBuild, PhaseNone, r.Build},
		)
	}
	steps = append(steps,
		step{KindInstall, PhaseNone, r.Install},
		step{KindCheck, PhaseNone, r.Check},
	)

	for _, st := range steps {
		if strings.TrimSpace(st.script) == "" {
			continue
		}
		typ, err := NewType(st.kind, st.phase)
		if err != nil {
			return err
		}
		s := newStage(p, typ)
		s.SetScript(st.script)
		p.stages = append(p.stages, s)
	}

	return nil
}

// Builds the renderer for one stage type: the context's layered definitions
// plus this profile's locations and whatever instrumentation flags the
// stage's phase calls for.
func (p *Profile) renderer(typ Type) (*macros.ScriptBuilder, error) {
	sb := macros.NewScriptBuilder()
	if err := p.context.PrepareScripts(sb, p.arch); err != nil {
		return nil, err
	}

	sb.Define("builddir", p.BuildDir())
	sb.Define("pgo_dir", p.pgoDir())

	sb.Define("pgo_flags", "")
	if key, ok := pgoFlagKeys[typ.Phase]; ok && sb.Defined(key) {
		sb.Define("pgo_flags", "%("+key+")")
	}

	return sb, nil
}

// Renders every stage script without executing anything.
//
// Validation runs before the pipeline commits any side effects, so a recipe
// referencing an unknown macro fails before any fetching or building starts.
func (p *Profile) validate() error {
	for _, s := range p.stages {
		sb, err := p.renderer(s.Type())
		if err != nil {
			return fmt.Errorf("%w: architecture %s, stage %s: %w", ErrValidate, p.arch, s.Name(), err)
		}
		if _, err := sb.Expand(s.Script()); err != nil {
			return fmt.Errorf("%w: architecture %s, stage %s: %w", ErrValidate, p.arch, s.Name(), err)
		}
	}
	return nil
}

// Runs every stage in order.
//
// Later stages assume filesystem state left by earlier ones, so the first
// failure stops the profile and the error names the stage that caused it.
func (p *Profile) build(ctx context.Context) error {
	for _, dir := range []string{p.BuildDir(), p.pgoDir()} {
		if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
			return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
		}
	}

	env := buildEnv(p.context.RootDir())
	for _, s := range p.stages {
		sb, err := p.renderer(s.Type())
		if err != nil {
			return err
		}
		script, err := sb.Expand(s.Script())
		if err != nil {
			return fmt.Errorf("%w: architecture %s, stage %s: %w", ErrBuild, p.arch, s.Name(), err)
		}

		slog.Info("running stage", "architecture", p.arch, "stage", s.Name())
		code, err := runScript(ctx, p.BuildDir(), env, script)
		if err != nil {
			return fmt.Errorf("%w: architecture %s, stage %s: %w", ErrBuild, p.arch, s.Name(), err)
		}
		if code != 0 {
			return fmt.Errorf("%w: architecture %s, stage %s: exit status %d", ErrBuild, p.arch, s.Name(), code)
		}
	}

	return nil
}

// Generates the script extracting every materialized source into the build
// directory. Archives unpack with their leading path component stripped;
// checked-out git trees and plain files copy as they are.
func prepareScript(upstreams []recipe.Upstream) string {
	var b strings.Builder
	for _, u := range upstreams {
		target := "%(sourcedir)/" + u.Target()
		switch {
		case u.Kind == recipe.KindGit:
			fmt.Fprintf(&b, "cp -a %s/. .\n", target)
		case isArchive(u.Target()):
			fmt.Fprintf(&b, "tar xf %s --strip-components=1 --no-same-owner\n", target)
		default:
			fmt.Fprintf(&b, "cp -a %s .\n", target)
		}
	}
	return b.String()
}

var archiveSuffixes = []string{
	".tar",
	".tar.bz2",
	".tar.gz",
	".tar.xz",
	".tar.zst",
	".tbz2",
	".tgz",
}

func isArchive(name string) bool {
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Flattens an architecture name for use as a path component.
func archSlug(arch string) string {
	return strings.ReplaceAll(arch, "/", "-")
}

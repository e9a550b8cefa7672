package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/stoneforge/mason/internal/paths"
	"github.com/stoneforge/mason/internal/recipe"
)

// External package installer provisioning build roots.
const defaultInstaller = "moss"

// Packages every build root receives regardless of recipe.
var basePackages = []string{
	"bash",
	"coreutils",
	"diffutils",
	"findutils",
	"gawk",
	"grep",
	"gzip",
	"linux-headers",
	"make",
	"patch",
	"pkgconf",
	"sed",
	"tar",
	"util-linux",
	"xz",
}

// Compiler packages per toolchain.
var toolchainPackages = map[string][]string{
	recipe.ToolchainGNU:  {"binutils", "gcc", "glibc-devel"},
	recipe.ToolchainLLVM: {"clang", "lld", "llvm"},
}

// Additions for 32-bit compatibility builds. LLVM targets 32-bit without a
// separate compiler package, so only the runtime headers differ.
var emul32Packages = map[string][]string{
	recipe.ToolchainGNU:  {"gcc-32bit", "glibc-32bit-devel"},
	recipe.ToolchainLLVM: {"glibc-32bit-devel"},
}

// Resets the isolated build root.
//
// A root left over from a previous run of the same name and release is
// removed entirely, then the install and source directories are created
// fresh and the root is provisioned.
func (b *Builder) prepareRoot(ctx context.Context) error {
	root := b.context.RootDir()
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	for _, dir := range []string{b.context.PkgDir(), b.context.SourceDir()} {
		if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
			return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
		}
	}

	return b.provision(ctx)
}

// Installs the build root's package set with the external installer.
//
// The installer runs with a minimal environment so host configuration cannot
// leak into the root. An empty installer name skips provisioning and the
// build relies on the host's own tooling.
func (b *Builder) provision(ctx context.Context) error {
	if b.installer == "" {
		return nil
	}

	pkgs := b.provisionPackages()
	args := append([]string{"install", "-D", b.context.RootDir()}, pkgs...)

	slog.Info("provisioning build root", "installer", b.installer, "packages", len(pkgs))
	res, err := runCommand(ctx, "", []string{"PATH=/usr/bin"}, b.installer, args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: %s exited %d: %s", ErrCommandFailed, b.installer, res.ExitCode, strings.TrimSpace(res.Output))
	}
	return nil
}

// Assembles the package list for the build root: the fixed base set, the
// recipe's toolchain, 32-bit additions when an emul32 profile is registered,
// and the recipe's own build and check dependencies.
func (b *Builder) provisionPackages() []string {
	r := b.context.Recipe()

	pkgs := slices.Clone(basePackages)
	pkgs = append(pkgs, toolchainPackages[r.Toolchain]...)
	if b.hasEmul32Profile() {
		pkgs = append(pkgs, emul32Packages[r.Toolchain]...)
	}
	pkgs = append(pkgs, r.BuildDeps...)
	pkgs = append(pkgs, r.CheckDeps...)

	slices.Sort(pkgs)
	return slices.Compact(pkgs)
}

func (b *Builder) hasEmul32Profile() bool {
	name := b.context.Platform().Emul32Name()
	for _, p := range b.profiles {
		if p.Architecture() == name {
			return true
		}
	}
	return false
}

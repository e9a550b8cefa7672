package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"

	"github.com/stoneforge/mason/internal/recipe"
)

// Mirrors a git upstream into the cache.
//
// The mirror is cloned bare into scratch space and committed under the
// URI-derived key. Refs are resolved later, at materialization, so one
// mirror serves every ref a recipe may ask for.
func (q *Queue) fetchGit(ctx context.Context, u recipe.Upstream) error {
	slog.Info("mirroring", "uri", u.URI, "ref", u.Ref)

	tmp, err := q.cache.TempDir()
	if err != nil {
		return err
	}

	mirror := filepath.Join(tmp, "mirror.git")
	if err := runGit(ctx, "", "clone", "--mirror", "--", u.URI, mirror); err != nil {
		return err
	}

	return q.cache.Commit(mirror, Key(u))
}

// Clones a cached mirror into the source directory and checks out the
// declared ref.
func materializeGit(ctx context.Context, mirror, dest, ref string) error {
	if err := runGit(ctx, "", "clone", "--shared", "--", mirror, dest); err != nil {
		return err
	}
	return runGit(ctx, dest, "checkout", "--detach", ref)
}

// Runs the external git binary, returning its combined output in the error
// on failure.
func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", args[0], err, bytes.TrimSpace(output))
	}
	return nil
}

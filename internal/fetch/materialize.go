package fetch

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/stoneforge/mason/internal/paths"
	"github.com/stoneforge/mason/internal/recipe"
)

// Places a cached upstream into the given directory under its target name,
// decoupling where the cache stores an entry from where a build sees it.
//
// Plain sources hard-link from the cache when the filesystems allow it and
// fall back to a copy. Git sources are cloned from their mirror and checked
// out at the declared ref. Materializing over a previous materialization
// replaces it.
func Materialize(ctx context.Context, cache *Cache, u recipe.Upstream, dir string) error {
	source, err := cache.Resolve(Key(u))
	if err != nil {
		return err
	}

	dest := filepath.Join(dir, u.Target())
	if err := os.RemoveAll(dest); err != nil {
		return err
	}

	if u.Kind == recipe.KindGit {
		return materializeGit(ctx, source, dest, u.Ref)
	}
	return linkOrCopy(source, dest)
}

func linkOrCopy(src, dest string) error {
	if err := os.Link(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

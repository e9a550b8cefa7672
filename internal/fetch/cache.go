package fetch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/containerd/errdefs"
	"github.com/opencontainers/go-digest"

	"github.com/stoneforge/mason/internal/paths"
	"github.com/stoneforge/mason/internal/recipe"
)

// Stores fetched upstream sources keyed by digest.
//
// Plain sources are stored as files named by their verified content hash;
// git sources as bare mirror directories named by a digest of the repository
// URI. Entries are never evicted: a hash-keyed blob cannot go stale, and a
// mirror only accumulates refs.
type Cache struct {
	root string
}

// Creates a cache rooted at the given directory. Nothing is touched on disk
// until an entry is committed.
func NewCache(root string) *Cache {
	return &Cache{root: root}
}

// Returns the cache key for an upstream.
//
// Plain sources key by their declared content hash. Git sources have no
// content hash, so they key by a digest of the repository URI instead.
func Key(u recipe.Upstream) digest.Digest {
	if u.Kind == recipe.KindGit {
		return digest.FromString("git|" + u.URI)
	}
	return u.Hash
}

// Returns the path the entry with this key lives at. Entries shard by the
// first two hex characters to keep directory fan-out flat.
func (c *Cache) Path(key digest.Digest) string {
	hex := key.Encoded()
	return filepath.Join(c.root, key.Algorithm().String(), hex[:2], hex)
}

// Reports whether an entry exists for the given key. Checking has no side
// effects.
func (c *Cache) Contains(key digest.Digest) bool {
	_, err := os.Stat(c.Path(key))
	return err == nil
}

// Returns the path of an existing entry.
func (c *Cache) Resolve(key digest.Digest) (string, error) {
	path := c.Path(key)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: cache entry %s", errdefs.ErrNotFound, key)
	}
	return path, nil
}

// Moves a verified download into the cache under the given key.
//
// The source must live on the cache's filesystem (use [Cache.TempFile] or
// [Cache.TempDir]) so the move is a rename. Committing a key that already
// exists discards the source and keeps the existing entry.
func (c *Cache) Commit(src string, key digest.Digest) error {
	path := c.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return err
	}

	if c.Contains(key) {
		return os.RemoveAll(src)
	}
	if err := os.Rename(src, path); err != nil {
		// A concurrent fetch of the same key may have won the rename.
		if c.Contains(key) {
			return os.RemoveAll(src)
		}
		return err
	}
	return nil
}

// Creates a scratch file on the cache's filesystem for an in-flight download.
func (c *Cache) TempFile() (*os.File, error) {
	if err := os.MkdirAll(c.scratchDir(), paths.DefaultDirMode); err != nil {
		return nil, err
	}
	return os.CreateTemp(c.scratchDir(), "fetch-*")
}

// Creates a scratch directory on the cache's filesystem for an in-flight
// mirror.
func (c *Cache) TempDir() (string, error) {
	if err := os.MkdirAll(c.scratchDir(), paths.DefaultDirMode); err != nil {
		return "", err
	}
	return os.MkdirTemp(c.scratchDir(), "fetch-*")
}

func (c *Cache) scratchDir() string {
	return filepath.Join(c.root, "tmp")
}

package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/stoneforge/mason/internal/recipe"
)

// Downloads a plain source, verifies it against its declared content hash,
// and commits it to the cache.
//
// The download streams through a digester into a scratch file, so nothing
// unverified ever appears under a cache key.
func (q *Queue) fetchPlain(ctx context.Context, u recipe.Upstream) error {
	slog.Info("downloading", "uri", u.URI)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.URI, nil)
	if err != nil {
		return err
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if got, want := resp.StatusCode, http.StatusOK; got != want {
		return fmt.Errorf("unexpected HTTP status: got %d (%v), want %d", got, resp.Status, want)
	}

	tmp, err := q.cache.TempFile()
	if err != nil {
		return err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	digester := u.Hash.Algorithm().Digester()
	if _, err := io.Copy(io.MultiWriter(tmp, digester.Hash()), resp.Body); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if got := digester.Digest(); got != u.Hash {
		return fmt.Errorf("%w: got %s, want %s", ErrVerify, got, u.Hash)
	}

	return q.cache.Commit(tmp.Name(), u.Hash)
}

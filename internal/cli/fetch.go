package cli

import (
	"context"
	"log/slog"

	"github.com/stoneforge/mason/internal/fetch"
	"github.com/stoneforge/mason/internal/paths"
	"github.com/stoneforge/mason/internal/recipe"
)

// Represents the 'mason fetch' command.
type FetchCmd struct {
	Recipe string `arg:"" help:"Path to the recipe file." type:"existingfile"`
}

// Executes the fetch command.
//
// Warms the upstream cache for a recipe without building it: every declared
// source not already cached is downloaded and verified, so a later build can
// start without network access.
func (c *FetchCmd) Run(ctx context.Context) error {
	r, err := recipe.Load(c.Recipe)
	if err != nil {
		return err
	}

	cache := fetch.NewCache(paths.UpstreamCache())
	queue := fetch.NewQueue(cache, 0)
	for _, u := range r.Upstreams {
		if cache.Contains(fetch.Key(u)) {
			slog.Debug("already cached", "uri", u.URI)
			continue
		}
		queue.Enqueue(u)
	}

	if queue.Empty() {
		slog.Info("all upstreams cached", "recipe", r.Name)
		return nil
	}
	if err := queue.Fetch(ctx); err != nil {
		return err
	}

	slog.Info("upstreams fetched", "recipe", r.Name)
	return nil
}

package fetch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/stoneforge/mason/internal/recipe"
)

// Parallel downloads per batch when the caller does not say otherwise.
const defaultWorkers = 4

// Collects upstream sources to fetch and drains them as one parallel batch.
//
// Enqueueing deduplicates by cache key, so a source declared twice (or by
// two recipes sharing a queue) transfers once. Enqueue and Fetch are not
// safe for concurrent use; the parallelism lives inside Fetch.
type Queue struct {
	cache   *Cache
	client  *http.Client
	workers int

	jobs []recipe.Upstream
	seen map[digest.Digest]bool
}

// Creates a queue fetching into the given cache with at most workers
// parallel transfers. A workers value below 1 selects a small default.
func NewQueue(cache *Cache, workers int) *Queue {
	if workers < 1 {
		workers = defaultWorkers
	}

	// Some servers serve pre-compressed archives; transparent gzip handling
	// would silently decompress them and break content hashes.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true

	return &Queue{
		cache:   cache,
		client:  &http.Client{Transport: transport},
		workers: workers,
		seen:    make(map[digest.Digest]bool),
	}
}

// Adds an upstream to the batch unless an equivalent source is already
// queued or was already drained by this queue.
func (q *Queue) Enqueue(u recipe.Upstream) {
	key := Key(u)
	if q.seen[key] {
		return
	}
	q.seen[key] = true
	q.jobs = append(q.jobs, u)
}

// Reports whether the batch has any pending fetches.
func (q *Queue) Empty() bool {
	return len(q.jobs) == 0
}

// Drains the batch, blocking until every pending fetch has finished.
//
// Fetches run in parallel up to the worker limit. The first failure cancels
// the remaining transfers and is returned; the batch is considered drained
// either way, so a retry must enqueue again through a fresh queue.
func (q *Queue) Fetch(ctx context.Context) error {
	jobs := q.jobs
	q.jobs = nil

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(q.workers)

	for _, u := range jobs {
		g.Go(func() error {
			if err := q.fetch(ctx, u); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrFetch, u.URI, err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (q *Queue) fetch(ctx context.Context, u recipe.Upstream) error {
	switch u.Kind {
	case recipe.KindGit:
		return q.fetchGit(ctx, u)
	default:
		return q.fetchPlain(ctx, u)
	}
}

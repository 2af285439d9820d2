// Package pool runs independent per-item tasks on a bounded number of workers.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const (
	MinWorkers = 1
	MaxWorkers = 10
)

// Clamp keeps a requested worker count within [MinWorkers, MaxWorkers].
// Zero or negative requests fall back to MinWorkers.
func Clamp(requested int) int {
	return max(min(requested, MaxWorkers), MinWorkers)
}

// ForEach calls fn for every index in [0, n) using at most workers goroutines.
// Each call owns its index, so callers write results into a pre-sized slice
// and merge after ForEach returns. Tasks not yet started when ctx is cancelled
// are skipped and ctx.Err() is returned.
func ForEach(ctx context.Context, workers, n int, fn func(ctx context.Context, i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Clamp(workers))

	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			fn(gctx, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

package engine

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// PourBatch runs one Pour per funnel dictionary concurrently against the
// same frozen graph, with at most limit calls in flight (defaulting to
// runtime.NumCPU()). Results align with the input order. The first failure
// cancels the remaining calls and is returned.
//
// The graph topology is read-only during execution, so the only shared
// state between the calls is immutable; each call owns its value store.
func (w *Waterwork) PourBatch(ctx context.Context, funnels []*ValueDict, limit int) ([]*ValueDict, error) {
	results := make([]*ValueDict, len(funnels))
	g, gctx := errgroup.WithContext(ctx)
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)

	for i, funnel := range funnels {
		g.Go(func() error {
			out, err := w.Pour(funnel, WithContext(gctx))
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// PumpBatch is the backward counterpart of PourBatch: one Pump per tap
// dictionary with bounded concurrency.
func (w *Waterwork) PumpBatch(ctx context.Context, taps []*ValueDict, limit int) ([]*ValueDict, error) {
	results := make([]*ValueDict, len(taps))
	g, gctx := errgroup.WithContext(ctx)
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)

	for i, tapDict := range taps {
		g.Go(func() error {
			out, err := w.Pump(tapDict, WithContext(gctx))
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

package benchmark

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"ocflbench/repo"
)

var errPoolClosed = errors.New("processing pool is closed")

// processingPool runs a worker's per-file uploads with at most size of them in
// flight. Every batch runs under the pool's context, so closing the pool
// cancels whatever is still running.
type processingPool struct {
	ctx    context.Context
	cancel context.CancelFunc
	size   int
}

func newProcessingPool(ctx context.Context, size int) *processingPool {
	ctx, cancel := context.WithCancel(ctx)
	return &processingPool{ctx: ctx, cancel: cancel, size: size}
}

// fanout implements repo.Fanout. It returns after every task has returned. The
// first failure cancels the remaining tasks of the batch and is returned.
func (p *processingPool) fanout(_ context.Context, tasks []repo.Task) error {
	if p.ctx.Err() != nil {
		return errPoolClosed
	}

	g, gctx := errgroup.WithContext(p.ctx)
	g.SetLimit(p.size)
	for _, task := range tasks {
		g.Go(func() error {
			return task(gctx)
		})
	}
	return g.Wait()
}

func (p *processingPool) close() {
	p.cancel()
}

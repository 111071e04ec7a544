package benchmark

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"ocflbench/barrier"
	"ocflbench/generator"
	"ocflbench/histogram"
	"ocflbench/repo"
)

// runStats counts measured iterations across all workers.
type runStats struct {
	succeeded atomic.Int64
	failed    atomic.Int64
}

// worker is one load generating goroutine. It is handed to its goroutine by
// value; the shared pieces are the recorder, barrier, repository, limiter and
// stats.
type worker struct {
	id     string
	params BenchmarkParams
	info   repo.VersionInfo

	repo     repo.Repository
	gen      *generator.Generator
	recorder *histogram.Recorder
	barrier  *barrier.Barrier
	limiter  *rate.Limiter
	stats    *runStats

	onMeasured       func()
	progressInterval time.Duration
	logger           *slog.Logger
}

// run generates the worker's test object, runs the warmup loop, meets the
// coordinator at both barrier rounds, runs the measurement loop and removes the
// test object. It never returns an error: failures are logged and end only
// this worker.
func (w worker) run(ctx context.Context) {
	var (
		objectPath string
		rounds     int
	)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker panicked, exiting", slog.Any("panic", r))
		}
		// a worker that will never reach the barrier must not hold up the others
		if rounds < 2 {
			w.barrier.Deregister()
		}
		w.gen.Remove(objectPath)
	}()

	w.logger.Info("starting worker")

	w.logger.Info("generating test object")
	objectPath, err := w.gen.Generate(w.params.Files)
	if err != nil {
		w.logger.Error("error generating test object, worker exiting", slog.Any("err", err))
		return
	}
	w.logger.Info("generated test object", slog.String("path", objectPath))

	w.logger.Info("running warmup", slog.Int64("iterations", w.params.WarmupIterations))
	if err := w.loop(ctx, objectPath, w.params.WarmupIterations, false); err != nil {
		w.logger.Info("worker interrupted during warmup")
		return
	}

	w.logger.Info("warmup complete, waiting for other workers to finish")
	for rounds < 2 {
		if _, err := w.barrier.Await(ctx); err != nil {
			w.logger.Info("worker interrupted while waiting for other workers")
			return
		}
		rounds++
	}

	w.logger.Info("running load test", slog.Int64("iterations", w.params.Iterations))
	if err := w.loop(ctx, objectPath, w.params.Iterations, true); err != nil {
		w.logger.Info("worker interrupted during load test")
		return
	}
	w.logger.Info("completed load test")
}

// loop runs iterations write/purge cycles. It returns ctx.Err() when
// interrupted; cancellation is only checked between iterations. Storage calls
// run detached from ctx so that an operation in flight is allowed to finish.
func (w *worker) loop(ctx context.Context, objectPath string, iterations int64, measured bool) error {
	var fan repo.Fanout
	if w.params.ProcessingThreads > 1 {
		pool := newProcessingPool(context.WithoutCancel(ctx), w.params.ProcessingThreads)
		defer pool.close()
		fan = pool.fanout
	}

	opCtx := context.WithoutCancel(ctx)
	runStart := time.Now()
	lastLog := runStart

	for i := int64(0); i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := time.Now()
		if now.Sub(runStart) >= w.progressInterval && now.Sub(lastLog) >= w.progressInterval {
			lastLog = now
			w.logger.Info("progress", slog.Int64("objects", i), slog.Duration("elapsed", now.Sub(runStart)))
		}

		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		objectID := fmt.Sprintf("%s-%d", w.id, i)
		err := w.iterate(opCtx, objectID, objectPath, fan)
		if err != nil {
			w.logger.Error("error writing object", slog.String("id", objectID), slog.Any("err", err))
		}
		if measured {
			if err != nil {
				w.stats.failed.Add(1)
			} else {
				w.stats.succeeded.Add(1)
			}
			if w.onMeasured != nil {
				w.onMeasured()
			}
		}
	}

	w.logger.Info("run completed", slog.Duration("elapsed", time.Since(runStart)))
	return nil
}

// iterate writes one object and purges it again. Only the write is timed. A
// failed purge is logged but does not fail the iteration.
func (w *worker) iterate(ctx context.Context, objectID, objectPath string, fan repo.Fanout) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := w.write(ctx, objectID, objectPath, fan); err != nil {
		return err
	}
	if err := w.repo.PurgeObject(ctx, objectID); err != nil {
		w.logger.Warn("error purging object", slog.String("id", objectID), slog.Any("err", err))
	}
	return nil
}

// write puts the test object and records its latency, whether or not it fails.
func (w *worker) write(ctx context.Context, objectID, objectPath string, fan repo.Fanout) error {
	start := time.Now()
	defer func() {
		w.recorder.Record(time.Since(start))
	}()

	if fan == nil {
		return w.repo.PutObject(ctx, objectID, objectPath, w.info)
	}
	return w.repo.PutObjectConcurrent(ctx, objectID, objectPath, w.info, fan)
}

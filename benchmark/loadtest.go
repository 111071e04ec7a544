// Package benchmark runs the object write load test: a set of workers that
// repeatedly write and purge a generated test object while the latency of each
// write is recorded.
package benchmark

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"ocflbench/barrier"
	"ocflbench/generator"
	"ocflbench/histogram"
	"ocflbench/repo"
)

const defaultProgressInterval = time.Minute

// DefaultVersionInfo is attached to every version written by the load test.
var DefaultVersionInfo = repo.VersionInfo{
	UserName:    "ocflbench",
	UserAddress: "ocflbench@example.com",
	Message:     "Testing",
}

// Result is the outcome of a load test run.
type Result struct {
	// Histogram holds the write latencies of the measurement phase only.
	Histogram *hdrhistogram.Histogram

	Workers    int
	Iterations int64 // measured iterations per worker
	Succeeded  int64
	Failed     int64

	// Elapsed is the wall time of the measurement phase.
	Elapsed time.Duration

	ObjectFiles int
	ObjectBytes int64
}

// LoadTest writes generated test objects to a repository from many workers at
// once and measures how long each write takes.
type LoadTest struct {
	repo   repo.Repository
	params BenchmarkParams
	gen    *generator.Generator
	info   repo.VersionInfo

	rateLimit        int
	onMeasured       func()
	progressInterval time.Duration
	logger           *slog.Logger
}

// Option configures a LoadTest.
type Option func(*LoadTest)

// WithLogger sets the logger. If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(lt *LoadTest) {
		lt.logger = logger
	}
}

// WithRateLimit caps the number of writes per second across all workers.
// Zero means no limit.
func WithRateLimit(opsPerSecond int) Option {
	return func(lt *LoadTest) {
		lt.rateLimit = opsPerSecond
	}
}

// WithProgress registers fn to be called after every measured iteration.
func WithProgress(fn func()) Option {
	return func(lt *LoadTest) {
		lt.onMeasured = fn
	}
}

// WithProgressInterval sets how often workers log their progress.
func WithProgressInterval(d time.Duration) Option {
	return func(lt *LoadTest) {
		lt.progressInterval = d
	}
}

// WithVersionInfo sets the version metadata written with every object.
func WithVersionInfo(info repo.VersionInfo) Option {
	return func(lt *LoadTest) {
		lt.info = info
	}
}

// NewLoadTest validates params and returns a LoadTest writing to r.
func NewLoadTest(r repo.Repository, params BenchmarkParams, opts ...Option) (*LoadTest, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: repository is required", ErrInvalidConfiguration)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params.Files = maps.Clone(params.Files)

	lt := &LoadTest{
		repo:             r,
		params:           params,
		info:             DefaultVersionInfo,
		progressInterval: defaultProgressInterval,
		logger:           slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(lt)
	}
	if lt.rateLimit < 0 {
		return nil, fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfiguration)
	}
	lt.gen = generator.New(params.TempDir, lt.logger)
	return lt, nil
}

// Run executes the load test and returns the latency distribution of the
// measurement phase.
//
// All workers warm up first. The coordinator then meets them at a barrier
// twice: once every worker has finished its warmup it resets the histogram,
// and only after the second round does anybody start measuring. The second
// round keeps a fast worker from recording a measurement before the reset.
//
// Cancelling ctx stops workers at their next iteration boundary; Run then
// returns whatever was measured so far with a nil error.
func (lt *LoadTest) Run(ctx context.Context) (*Result, error) {
	if err := os.MkdirAll(lt.params.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	lt.logger.Info("starting load test",
		slog.Int("workers", lt.params.Workers),
		slog.Int64("warmup", lt.params.WarmupIterations),
		slog.Int64("iterations", lt.params.Iterations),
		slog.Int("processing_threads", lt.params.ProcessingThreads),
		slog.String("files", lt.params.Files.String()))

	recorder := histogram.New()
	b := barrier.New(lt.params.Workers + 1)
	stats := &runStats{}

	var limiter *rate.Limiter
	if lt.rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(lt.rateLimit), 1)
	}

	var wg sync.WaitGroup
	for range lt.params.Workers {
		w := lt.newWorker(recorder, b, limiter, stats)
		wg.Add(1)
		go func(w worker) {
			defer wg.Done()
			w.run(ctx)
		}(w)
	}

	// The coordinator never abandons the barrier: workers that stop early
	// deregister, so both rounds always complete.
	_, _ = b.Await(context.Background())
	recorder.Reset()
	_, _ = b.Await(context.Background())
	start := time.Now()

	wg.Wait()
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		lt.logger.Warn("load test interrupted")
	} else {
		lt.logger.Info("load test complete")
	}

	return &Result{
		Histogram:   recorder.Snapshot(),
		Workers:     lt.params.Workers,
		Iterations:  lt.params.Iterations,
		Succeeded:   stats.succeeded.Load(),
		Failed:      stats.failed.Load(),
		Elapsed:     elapsed,
		ObjectFiles: lt.params.Files.Files(),
		ObjectBytes: lt.params.Files.Bytes(),
	}, nil
}

func (lt *LoadTest) newWorker(recorder *histogram.Recorder, b *barrier.Barrier, limiter *rate.Limiter, stats *runStats) worker {
	id := uuid.NewString()
	return worker{
		id:               id,
		params:           lt.params,
		info:             lt.info,
		repo:             lt.repo,
		gen:              lt.gen,
		recorder:         recorder,
		barrier:          b,
		limiter:          limiter,
		stats:            stats,
		onMeasured:       lt.onMeasured,
		progressInterval: lt.progressInterval,
		logger:           lt.logger.With(slog.String("worker", id)),
	}
}

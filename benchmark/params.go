package benchmark

import (
	"errors"
	"fmt"

	"ocflbench/filespec"
)

// ErrInvalidConfiguration is returned when the benchmark parameters are
// rejected before any worker starts.
var ErrInvalidConfiguration = errors.New("invalid load test configuration")

// BenchmarkParams holds the parameters of a load test run
type BenchmarkParams struct {
	Workers           int           // Number of concurrent workers
	WarmupIterations  int64         // Iterations per worker before measurement starts
	Iterations        int64         // Measured iterations per worker
	ProcessingThreads int           // Per-worker upload pool size; more than 1 uploads files concurrently
	Files             filespec.Spec // Test object composition
	TempDir           string        // Directory test objects are generated in
}

// Validate checks the parameters and normalizes defaults.
func (p *BenchmarkParams) Validate() error {
	if p.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be 1 or more", ErrInvalidConfiguration)
	}
	if p.WarmupIterations < 1 {
		return fmt.Errorf("%w: warmup iterations must be 1 or more", ErrInvalidConfiguration)
	}
	if p.Workers < 1 {
		return fmt.Errorf("%w: thread count must be 1 or more", ErrInvalidConfiguration)
	}
	if p.ProcessingThreads == 0 {
		p.ProcessingThreads = 1
	}
	if p.ProcessingThreads < 1 {
		return fmt.Errorf("%w: processing thread count must be 1 or more", ErrInvalidConfiguration)
	}
	if len(p.Files) == 0 {
		return fmt.Errorf("%w: file spec must contain 1 or more files", ErrInvalidConfiguration)
	}
	for size, count := range p.Files {
		if size < 1 || count < 1 {
			return fmt.Errorf("%w: file spec entry %d=%d must be positive", ErrInvalidConfiguration, size, count)
		}
	}
	if p.TempDir == "" {
		return fmt.Errorf("%w: temp directory is required", ErrInvalidConfiguration)
	}
	return nil
}

// Package histogram records operation latencies in a high dynamic range
// histogram shared by all benchmark workers.
package histogram

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minLatency        = int64(time.Nanosecond)
	maxLatency        = int64(time.Hour)
	significantDigits = 3
)

// Recorder is a thread-safe latency histogram with nanosecond resolution.
type Recorder struct {
	mu sync.Mutex
	h  *hdrhistogram.Histogram
}

// New returns an empty Recorder tracking 1ns to 1h with 3 significant digits.
func New() *Recorder {
	return &Recorder{h: hdrhistogram.New(minLatency, maxLatency, significantDigits)}
}

// Record adds one sample. Durations outside the trackable range are clamped
// so that no sample is ever dropped.
func (r *Recorder) Record(d time.Duration) {
	v := int64(d)
	if v < 0 {
		v = 0
	}
	if v > maxLatency {
		v = maxLatency
	}
	r.mu.Lock()
	// cannot fail: v is within the trackable range
	_ = r.h.RecordValue(v)
	r.mu.Unlock()
}

// Reset discards every recorded sample.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.h.Reset()
	r.mu.Unlock()
}

// Count returns the number of recorded samples.
func (r *Recorder) Count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.h.TotalCount()
}

// Snapshot returns an independent copy of the current distribution.
func (r *Recorder) Snapshot() *hdrhistogram.Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	return hdrhistogram.Import(r.h.Export())
}

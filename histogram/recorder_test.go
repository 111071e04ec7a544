package histogram

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ConcurrentWriters(t *testing.T) {
	r := New()

	const writers, samples = 8, 1000
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range samples {
				r.Record(time.Duration(w*samples+i) * time.Microsecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(writers*samples), r.Count())
}

func TestRecorder_Reset(t *testing.T) {
	r := New()
	r.Record(time.Millisecond)
	r.Record(2 * time.Millisecond)
	require.Equal(t, int64(2), r.Count())

	r.Reset()
	assert.Equal(t, int64(0), r.Count())

	r.Record(5 * time.Millisecond)
	assert.Equal(t, int64(1), r.Count())
}

func TestRecorder_Clamp(t *testing.T) {
	r := New()
	r.Record(-time.Second)
	r.Record(0)
	r.Record(2 * time.Hour)

	snap := r.Snapshot()
	assert.Equal(t, int64(3), snap.TotalCount())
	assert.Equal(t, int64(0), snap.Min())
	assert.True(t, snap.ValuesAreEquivalent(int64(time.Hour), snap.Max()))
}

func TestRecorder_SnapshotIsIndependent(t *testing.T) {
	r := New()
	for i := 1; i <= 100; i++ {
		r.Record(time.Duration(i) * time.Millisecond)
	}

	snap := r.Snapshot()
	r.Reset()

	assert.Equal(t, int64(100), snap.TotalCount())
	assert.InEpsilon(t, float64(50*time.Millisecond), float64(snap.ValueAtQuantile(50)), 0.01)
	assert.InEpsilon(t, float64(100*time.Millisecond), float64(snap.Max()), 0.01)
}

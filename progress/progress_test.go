package progress

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar_ConcurrentTicks(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, 100).SetCaption("Measuring")

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				bar.Tick()
			}
		}()
	}
	wg.Wait()
	bar.Finish()

	assert.Equal(t, int64(100), bar.Current())
}

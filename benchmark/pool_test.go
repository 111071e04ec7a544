package benchmark

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocflbench/repo"
)

func TestProcessingPool_LimitsConcurrency(t *testing.T) {
	pool := newProcessingPool(context.Background(), 3)
	defer pool.close()

	var inFlight, maxInFlight, done atomic.Int32
	tasks := make([]repo.Task, 10)
	for i := range tasks {
		tasks[i] = func(context.Context) error {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			done.Add(1)
			return nil
		}
	}

	require.NoError(t, pool.fanout(context.Background(), tasks))
	assert.Equal(t, int32(10), done.Load(), "fanout returns after every task")
	assert.LessOrEqual(t, maxInFlight.Load(), int32(3))
}

func TestProcessingPool_FirstErrorCancelsBatch(t *testing.T) {
	pool := newProcessingPool(context.Background(), 2)
	defer pool.close()

	boom := errors.New("boom")
	var cancelled atomic.Bool
	err := pool.fanout(context.Background(), []repo.Task{
		func(context.Context) error { return boom },
		func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				cancelled.Store(true)
			case <-time.After(5 * time.Second):
			}
			return nil
		},
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, cancelled.Load())

	// the pool stays usable for the next batch
	require.NoError(t, pool.fanout(context.Background(), []repo.Task{
		func(context.Context) error { return nil },
	}))
}

func TestProcessingPool_Closed(t *testing.T) {
	pool := newProcessingPool(context.Background(), 2)
	pool.close()

	err := pool.fanout(context.Background(), []repo.Task{
		func(context.Context) error { return nil },
	})
	require.ErrorIs(t, err, errPoolClosed)
}

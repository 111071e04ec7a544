package barrier

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrier_ReleasesTogether(t *testing.T) {
	const parties = 5
	b := New(parties)

	var arrived, passed atomic.Int32
	var wg sync.WaitGroup
	for range parties - 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			arrived.Add(1)
			round, err := b.Await(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 0, round)
			passed.Add(1)
		}()
	}

	require.Eventually(t, func() bool { return arrived.Load() == parties-1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), passed.Load(), "no party may pass before the last arrives")

	round, err := b.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, round)

	wg.Wait()
	assert.Equal(t, int32(parties-1), passed.Load())
	assert.Equal(t, 1, b.Round())
}

// The coordinator pattern: arrive, act alone, arrive again. No participant may
// observe the second round before the coordinator's action has happened.
func TestBarrier_TwoRoundHandshake(t *testing.T) {
	for trial := range 50 {
		const workers = 4
		b := New(workers + 1)

		var reset atomic.Bool
		var violations atomic.Int32
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := b.Await(context.Background())
				assert.NoError(t, err)
				_, err = b.Await(context.Background())
				assert.NoError(t, err)
				if !reset.Load() {
					violations.Add(1)
				}
			}()
		}

		_, err := b.Await(context.Background())
		require.NoError(t, err)
		if trial%2 == 0 {
			time.Sleep(time.Millisecond)
		}
		reset.Store(true)
		round, err := b.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, round)

		wg.Wait()
		require.Equal(t, int32(0), violations.Load(), "trial %d", trial)
	}
}

func TestBarrier_Deregister(t *testing.T) {
	b := New(3)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := b.Await(context.Background())
		assert.NoError(t, err)
	}()

	go func() {
		_, err := b.Await(context.Background())
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.arrived == 2
	}, time.Second, time.Millisecond)

	b.Deregister()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deregistering the last missing party must release the round")
	}
	assert.Equal(t, 2, b.Parties())

	// later rounds only wait for the remaining two parties
	var wg sync.WaitGroup
	wg.Add(2)
	for range 2 {
		go func() {
			defer wg.Done()
			round, err := b.Await(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 1, round)
		}()
	}
	wg.Wait()
}

func TestBarrier_SingleParty(t *testing.T) {
	b := New(1)
	for i := range 3 {
		round, err := b.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, round)
	}
}

func TestBarrier_CancelWithdrawsArrival(t *testing.T) {
	b := New(2)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := b.Await(ctx)
		errc <- err
	}()

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.arrived == 1
	}, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)

	// the withdrawn party leaves, the other one must not be released alone
	b.Deregister()
	assert.Equal(t, 0, b.Round())

	round, err := b.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, round)
	assert.Equal(t, 1, b.Round())
}

// Package barrier provides a reusable rendezvous barrier: a fixed group of
// parties repeatedly meet at the barrier, and nobody proceeds past a round until
// every registered party has arrived.
package barrier

import (
	"context"
	"sync"
)

// Barrier is a cyclic counting barrier. Parties may leave the group with
// Deregister, after which rounds trip without them.
type Barrier struct {
	mu      sync.Mutex
	parties int
	arrived int
	round   int
	release chan struct{}
}

// New returns a barrier for the given number of parties.
func New(parties int) *Barrier {
	return &Barrier{
		parties: parties,
		release: make(chan struct{}),
	}
}

// Await arrives at the barrier and blocks until every registered party has
// arrived in the current round. It returns the index of the round that was
// completed, starting at 0.
//
// If ctx is done before the round completes, the arrival is withdrawn and
// ctx.Err() is returned. The caller is still registered for later rounds.
func (b *Barrier) Await(ctx context.Context) (int, error) {
	b.mu.Lock()
	round := b.round
	release := b.release
	b.arrived++
	if b.tripLocked() {
		b.mu.Unlock()
		return round, nil
	}
	b.mu.Unlock()

	select {
	case <-release:
		return round, nil
	case <-ctx.Done():
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.round != round {
		// released concurrently with cancellation
		return round, nil
	}
	b.arrived--
	return round, ctx.Err()
}

// Deregister permanently removes one party. If every remaining party has
// already arrived in the current round, the round completes.
func (b *Barrier) Deregister() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.parties > 0 {
		b.parties--
	}
	b.tripLocked()
}

// Parties returns the number of registered parties.
func (b *Barrier) Parties() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parties
}

// Round returns the index of the round currently being assembled.
func (b *Barrier) Round() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.round
}

func (b *Barrier) tripLocked() bool {
	if b.arrived == 0 || b.arrived < b.parties {
		return false
	}
	close(b.release)
	b.release = make(chan struct{})
	b.arrived = 0
	b.round++
	return true
}

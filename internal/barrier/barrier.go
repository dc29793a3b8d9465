// Package barrier implements the all-active-workers rendezvous the pool
// uses to end a together frame.
package barrier

import "sync"

// Barrier is a reusable cyclic barrier for a fixed party size. Unlike a
// one-shot sync.WaitGroup, a Barrier can be waited on again immediately
// after it releases, via its generation counter — exactly what
// repeated together frames need.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	waiting    int
	generation uint64
}

// New creates a barrier for n parties.
func New(n int) *Barrier {
	b := &Barrier{parties: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until n parties (across all goroutines sharing this Barrier)
// have called Wait, then releases all of them together. The required
// property is that every publication any party made before
// its own Wait call is visible to every party after Wait returns; the
// mutex acquired by every waiter and by the releasing party provides that
// happens-before edge.
func (b *Barrier) Wait() {
	b.mu.Lock()
	gen := b.generation
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for gen == b.generation {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// Resize changes the number of parties required to release the barrier.
// Only safe to call when no goroutine is currently blocked in Wait.
func (b *Barrier) Resize(n int) {
	b.mu.Lock()
	b.parties = n
	b.mu.Unlock()
}

// Parties returns the configured party count.
func (b *Barrier) Parties() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parties
}

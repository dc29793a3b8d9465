// Package deque implements the per-worker split deque and
// the thief side of the steal protocol: a fixed-capacity array
// of task slots partitioned by the triple (head, split, tail) into private,
// shared, and stolen regions.
//
// head and split are owner-private; tail is folded together with split into
// a single published atomic pair so a thief's observation of "is there
// shared work, and where does it end" is one atomic read, and the owner's
// wholesale republish after draining is one atomic store. This mirrors the
// C original's packed 64-bit {tail, split}, grounded here as a
// go.uber.org/atomic.Uint64 with manual packing: thief observation
// and owner wholesale publish are both single-op atomic.
package deque

import (
	"errors"

	"go.uber.org/atomic"

	"github.com/go-foundations/forkjoin/internal/task"
)

// DefaultCapacity is used when a caller asks for dqsize=0.
const DefaultCapacity = 100_000

// ErrStackOverflow is returned when a spawn would push past the deque's
// fixed capacity. This is a fatal, unrecoverable condition —
// callers are expected to treat it as a programmer error, not retry it.
var ErrStackOverflow = errors.New("forkjoin: task stack overflow")

func pack(tail, split int32) uint64 {
	return uint64(uint32(tail))<<32 | uint64(uint32(split))
}

func unpack(v uint64) (tail, split int32) {
	return int32(v >> 32), int32(uint32(v))
}

// Deque is one worker's split deque. All owner-side methods must only be
// called from that worker's own goroutine; Steal is the only method safe
// to call from any other worker.
type Deque struct {
	slots    []*task.Task
	capacity int32

	// Owner-private. Never touched by a thief.
	head          int32
	split         int32
	allstolenPriv bool

	// Cross-thread. published packs (tail, split); allstolenPub and
	// movesplit are each a single flag, single-writer on one side.
	published    atomic.Uint64
	allstolenPub atomic.Bool
	movesplit    atomic.Bool
}

// New allocates a deque of the given capacity. The deque base is
// allocated once at worker startup and never resized.
func New(capacity int) *Deque {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	d := &Deque{
		slots:    make([]*task.Task, capacity),
		capacity: int32(capacity),
	}
	d.published.Store(pack(0, 0))
	return d
}

// Capacity returns the deque's fixed slot count.
func (d *Deque) Capacity() int32 { return d.capacity }

// Head returns the owner's current head index.
func (d *Deque) Head() int32 { return d.head }

// Split returns the owner's private view of the split boundary.
func (d *Deque) Split() int32 { return d.split }

// At returns the task pointer stored at idx, or nil if the slot is unused.
// Safe for the owner at any index, and for a thief at an index it has
// exclusively claimed via Steal.
func (d *Deque) At(idx int32) *task.Task { return d.slots[idx] }

// PublishedTailSplit performs the thief's acquire-ordered read of the
// shared-region boundary.
func (d *Deque) PublishedTailSplit() (tail, split int32) {
	return unpack(d.published.Load())
}

// Push installs t at head and applies the
// allstolen/movesplit republish rules before advancing head.
func (d *Deque) Push(t *task.Task) error {
	if d.head >= d.capacity {
		return ErrStackOverflow
	}
	d.slots[d.head] = t

	switch {
	case d.allstolenPriv:
		d.republish()
	case d.movesplit.Load() && d.head-d.split > 1:
		d.growShared()
	}

	d.head++
	return nil
}

// republish resets the published pair wholesale after the owner observed
// its shared region fully drained.
// The new task at d.head becomes the sole shared-region occupant,
// immediately stealable; split/head then continue to grow as usual.
func (d *Deque) republish() {
	d.split = d.head + 1
	d.published.Store(pack(d.head, d.split))
	d.allstolenPriv = false
	d.allstolenPub.Store(false)
	d.movesplit.Store(false)
}

// growShared moves split rightward to the midpoint of [split, head],
// widening the region thieves may steal from, growing the stealable
// region proactively rather than reactively.
func (d *Deque) growShared() {
	newSplit := d.split + (d.head-d.split+1)/2
	d.split = newSplit
	tail, _ := unpack(d.published.Load())
	d.published.Store(pack(tail, newSplit))
	d.movesplit.Store(false)
}

// StealOutcome classifies the result of a steal attempt.
type StealOutcome int

const (
	// Stolen: the thief now owns slots[idx] for execution.
	Stolen StealOutcome = iota
	// NoWork: tail >= split; the victim's shared region is empty. The
	// thief has set movesplit on the victim as a side effect.
	NoWork
	// Busy: a concurrent CAS raced this one; retry a (possibly
	// different) victim.
	Busy
)

// Steal attempts to claim the victim's oldest shared task.
// On NoWork it sets movesplit so the owner grows the shared
// region on its next push.
func (d *Deque) Steal() (idx int32, outcome StealOutcome) {
	cur := d.published.Load()
	tail, split := unpack(cur)
	if tail >= split {
		d.movesplit.Store(true)
		return 0, NoWork
	}
	next := pack(tail+1, split)
	if !d.published.CAS(cur, next) {
		return 0, Busy
	}
	return tail, Stolen
}

// MarkAllStolenIfEmpty is called by the owner when it observes its deque
// as empty to thieves (split == head, i.e. nothing left to give away).
// The next Push will wholesale-republish.
func (d *Deque) MarkAllStolenIfEmpty() {
	if d.split >= d.head {
		d.allstolenPriv = true
		d.allstolenPub.Store(true)
	}
}

// AllStolen reports the thief-visible allstolen flag.
func (d *Deque) AllStolen() bool { return d.allstolenPub.Load() }

// Movesplit reports whether a thief has requested the shared region grow.
func (d *Deque) Movesplit() bool { return d.movesplit.Load() }

// DecrementHead moves head back by one, speculatively reclaiming the slot
// at the new head for the owner's sync/drop engine. Returns
// the reclaimed index.
func (d *Deque) DecrementHead() int32 {
	d.head--
	return d.head
}

// IncrementHead undoes a speculative DecrementHead when the sync engine
// determines the slot cannot be reclaimed locally after all (it is
// genuinely in the shared or stolen region and must be awaited instead).
func (d *Deque) IncrementHead() { d.head++ }

// InPrivateRegion reports whether idx is still owner-private, i.e. not yet
// exposed to thieves.
func (d *Deque) InPrivateRegion(idx int32) bool {
	return idx >= d.split
}

// ShrinkToReclaim moves split leftward to idx, reclaiming a task that had
// entered the shared region but was not yet stolen. Returns false if a thief has
// already advanced tail past idx, meaning the task is no longer
// reclaimable this way.
func (d *Deque) ShrinkToReclaim(idx int32) bool {
	cur := d.published.Load()
	tail, split := unpack(cur)
	if idx < tail {
		return false
	}
	if split <= idx {
		// Already private or already shrunk past idx by a previous call.
		return true
	}
	next := pack(tail, idx)
	if !d.published.CAS(cur, next) {
		return false
	}
	d.split = idx
	return true
}

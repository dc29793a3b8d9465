// Package task implements the scheduler's task descriptor:
// a fixed-shape record carrying a type-erased trampoline, a thief handle,
// and boxed argument/result payloads.
//
// The original C scheduler lays arguments and results out in a single
// compile-time-sized union so every deque slot is the same width. Go has
// no portable way to express that union without unsafe pointer arithmetic,
// so the descriptor instead boxes the payload into an `any` — the same
// type-erasure the union achieves, minus the raw-byte layout. See
// DESIGN.md for the tradeoff. The footprint discipline the union enforced
// at compile time is kept as a runtime assertion: NewSpawned panics if a
// caller's argument/result pair would not have fit the configured bound.
package task

import (
	"fmt"

	"go.uber.org/atomic"
)

// MaxPayloadBytes bounds the combined size of a task's boxed args/result,
// mirroring the compile-time footprint bound the typed wrappers enforce in
// the original scheduler. It exists to catch accidental use of the
// scheduler for coarse-grained, heap-churning payloads rather than the
// small argument tuples fork/join tasks are meant to carry.
const MaxPayloadBytes = 512

// thiefState packs the task's four logical lifecycle values into a
// single atomic word so the thief handle is one CAS-able unit:
//
//	Empty      -> never spawned, or cleared after a sync/drop reclaim
//	Spawned    -> spawned, not yet claimed by a thief
//	>=0        -> claimed: the worker id of the claiming thief
//	Completed  -> the claiming thief has written the result
type thiefState int64

const (
	Empty     thiefState = -1
	Spawned   thiefState = -2
	Completed thiefState = -3
)

func claimedBy(workerID int) thiefState { return thiefState(workerID) }

// Task is the scheduler's fixed-shape descriptor. Every spawned task,
// regardless of its argument/result types, is boxed into one of these so a
// deque can hold a homogeneous, contiguous array.
type Task struct {
	run     func(*Task)
	args    any
	result  any
	thief   atomic.Int64
	payload int // approximate boxed footprint, for the size assertion
}

// Trampoline is the type-erased function a typed wrapper installs: read
// args out of the descriptor, invoke the user body, write the result back.
// Its only observable effect must be exactly that.
type Trampoline func(args any) any

// NewSpawned builds a descriptor in the Spawned state, ready to be placed
// in a deque slot. payloadBytes is an estimate supplied by the typed
// wrapper (e.g. unsafe.Sizeof on the argument/result types) used purely
// for the footprint assertion below.
func NewSpawned(trampoline Trampoline, args any, payloadBytes int) *Task {
	if payloadBytes > MaxPayloadBytes {
		panic(fmt.Sprintf("forkjoin: task footprint %d bytes exceeds MaxPayloadBytes (%d)", payloadBytes, MaxPayloadBytes))
	}
	t := &Task{args: args, payload: payloadBytes}
	t.run = func(self *Task) {
		self.result = trampoline(self.args)
	}
	t.thief.Store(int64(Spawned))
	return t
}

// Reset clears a completed or reclaimed descriptor so its deque slot can
// be reused by a future spawn.
func (t *Task) Reset() {
	t.run = nil
	t.args = nil
	t.result = nil
	t.payload = 0
	t.thief.Store(int64(Empty))
}

// Run invokes the trampoline. Called exactly once per task, either by the
// owner (inline/reclaimed execution) or by the thief that claimed it.
func (t *Task) Run() { t.run(t) }

// Result returns the boxed result written by Run.
func (t *Task) Result() any { return t.result }

// IsEmpty reports whether the slot holds no live task.
func (t *Task) IsEmpty() bool { return thiefState(t.thief.Load()) == Empty }

// IsSpawned reports whether the task has been published but not yet
// claimed by any thief.
func (t *Task) IsSpawned() bool { return thiefState(t.thief.Load()) == Spawned }

// IsCompleted reports whether a thief has written the result.
func (t *Task) IsCompleted() bool { return thiefState(t.thief.Load()) == Completed }

// ClaimedBy reports the worker id that claimed this task, if any.
func (t *Task) ClaimedBy() (int, bool) {
	s := thiefState(t.thief.Load())
	if s >= 0 {
		return int(s), true
	}
	return 0, false
}

// TryClaim attempts the thief's CAS from Spawned to "claimed by workerID".
// Called after a successful tail advance on the deque
// (internal/deque.Deque.Steal), which already gives the caller exclusive
// ownership of the slot.
func (t *Task) TryClaim(workerID int) bool {
	return t.thief.CAS(int64(Spawned), int64(claimedBy(workerID)))
}

// Complete transitions a claimed task to Completed with release ordering
// (go.uber.org/atomic's Store on an Int64 is a release store on all
// supported platforms), so the owner's subsequent acquire-load observes
// the result bytes written just before this call.
func (t *Task) Complete() { t.thief.Store(int64(Completed)) }

// ReclaimAsEmpty transitions Spawned -> Empty: the owner steals its own
// task back before any thief claimed it.
func (t *Task) ReclaimAsEmpty() bool {
	return t.thief.CAS(int64(Spawned), int64(Empty))
}

package forkjoin

import (
	"unsafe"

	"github.com/go-foundations/forkjoin/internal/frame"
	"github.com/go-foundations/forkjoin/internal/gls"
	"github.com/go-foundations/forkjoin/internal/task"
)

// CurrentWorker resolves the calling goroutine's *Worker, if it is one of
// a pool's worker goroutines. Task bodies should prefer the *Worker handle
// threaded to them as an argument; CurrentWorker exists for code with no
// such handle in scope, backed by internal/gls since Go has no public
// goroutine-id API.
func CurrentWorker() (*Worker, bool) {
	v, ok := gls.Lookup()
	if !ok {
		return nil, false
	}
	w, ok := v.(*Worker)
	return w, ok
}

// IsWorker reports whether the calling goroutine is a pool worker.
func IsWorker() bool {
	_, ok := CurrentWorker()
	return ok
}

// WorkerID returns the calling goroutine's worker id, if any.
func WorkerID() (int, bool) {
	w, ok := CurrentWorker()
	if !ok {
		return 0, false
	}
	return w.id, true
}

// WorkerPU returns the calling goroutine's pinned processing unit, if it
// is a worker with affinity placement enabled.
func WorkerPU() (pu int, hasPU bool, isWorker bool) {
	w, ok := CurrentWorker()
	if !ok {
		return 0, false, false
	}
	pu, hasPU = w.PU()
	return pu, hasPU, true
}

// Handle is the live, un-synced reference to a spawned task. A Handle
// must be sync'd or dropped in exactly the reverse order
// it was spawned in, the same LIFO discipline the original scheduler's
// macro-generated SYNC enforces implicitly by operating on the lexically
// innermost spawn; here it is enforced explicitly since Go has no
// equivalent macro hygiene.
type Handle[R any] struct {
	owner *Worker
	t     *task.Task
	idx   int32
	done  bool
}

// Spawn publishes a new task on w's deque, to be run
// either by w itself (if never stolen) or by whichever worker steals it.
// fn receives the *Worker that actually executes it, which may differ from
// w — resolved dynamically through internal/gls rather than captured from
// this call, since a thief runs fn on its own goroutine.
func Spawn[A, R any](w *Worker, fn func(*Worker, A) R, args A) *Handle[R] {
	var argsZero A
	var resultZero R
	payload := int(unsafe.Sizeof(argsZero) + unsafe.Sizeof(resultZero))

	trampoline := func(boxed any) any {
		a := boxed.(A)
		exec := w
		if cur, ok := gls.Lookup(); ok {
			if cw, ok := cur.(*Worker); ok {
				exec = cw
			}
		}
		return fn(exec, a)
	}

	t := task.NewSpawned(trampoline, args, payload)
	idx := w.dq.Head()
	if err := w.dq.Push(t); err != nil {
		panic(err)
	}
	w.pool.metrics.spawned()
	return &Handle[R]{owner: w, t: t, idx: idx}
}

// Sync blocks until h's task has produced a result and returns it,
// running the owner-reclaim/shrink/wait decision tree. Must
// be called on the most recently spawned, not-yet-synced handle on h's
// owning worker; calling it out of that order is a programmer error,
// reported as a panic carrying ErrUnmatchedSync, the same way a fatal
// task-stack overflow panics from Spawn rather than returning an error.
func (h *Handle[R]) Sync() R {
	if h.done || h.owner.dq.Head()-1 != h.idx {
		panic(ErrUnmatchedSync)
	}
	h.done = true
	result := h.owner.pool.join(h.owner, h.t, h.idx)
	r, _ := result.(R)
	return r
}

// Drop waits for h's task to finish without retrieving its result, for
// spawns whose only purpose was a side effect. It runs the identical
// join engine Sync does; the two differ only in whether the caller wants
// the boxed value back.
func (h *Handle[R]) Drop() {
	if h.done || h.owner.dq.Head()-1 != h.idx {
		panic(ErrUnmatchedSync)
	}
	h.done = true
	h.owner.pool.join(h.owner, h.t, h.idx)
}

// join implements the owner-reclaim/shrink/wait decision tree: if the task
// already completed, take its result; if it is still purely private, reclaim and
// run it inline; if it has entered the shared region but was not yet
// stolen, shrink split to pull it back and run it inline; otherwise a
// thief already owns it, so wait, helping the pool make progress via leap
// stealing (and frame participation through checkYield) in the meantime.
func (p *Pool) join(w *Worker, t *task.Task, idx int32) any {
	if t.IsCompleted() {
		w.dq.DecrementHead()
		w.dq.MarkAllStolenIfEmpty()
		return t.Result()
	}

	if w.dq.InPrivateRegion(idx) {
		w.dq.DecrementHead()
		if t.ReclaimAsEmpty() {
			t.Run()
			p.metrics.ownerReclaimed()
			return t.Result()
		}
		w.dq.IncrementHead()
	} else if w.dq.ShrinkToReclaim(idx) {
		if t.ReclaimAsEmpty() {
			w.dq.DecrementHead()
			t.Run()
			p.metrics.ownerReclaimed()
			return t.Result()
		}
	}

	attempt := 0
	for !t.IsCompleted() {
		if p.leapSteal(w) {
			attempt = 0
			continue
		}
		attempt++
		w.backoff.Backoff(attempt)
	}
	// Pop the stolen slot only now, so nothing spawned while waiting
	// lands on it. Every slot below it was stolen too, so the next Spawn
	// republishes the shared region.
	w.dq.DecrementHead()
	w.dq.MarkAllStolenIfEmpty()
	return t.Result()
}

// Run invokes fn under the pool: if the caller is already one of the
// pool's workers, fn runs immediately on the calling goroutine; otherwise
// it is hand delivered to worker 0 via the pool's injection channel and
// Run blocks until it completes.
func Run[R any](p *Pool, fn func(w *Worker) R) R {
	if w, ok := p.currentWorkerOf(); ok {
		return fn(w)
	}
	resultCh := make(chan R, 1)
	p.injectCh <- func(w *Worker) { resultCh <- fn(w) }
	return <-resultCh
}

// NewFrame posts a pool-wide cooperative frame: exactly one
// worker runs fn for real, while every other worker helps by continuing to
// steal — which, since fn typically spawns its own subtasks, serves fn's
// work without any special-cased "frame task" type. NewFrame and Together
// never run concurrently with each other or with themselves; a second,
// unrelated caller simply blocks until the first frame drains.
//
// Calling NewFrame or Together from within fn itself — i.e. nesting a
// frame switch inside the body of the frame switch currently running on
// this same worker — is not supported and panics with ErrNestedFrame
// rather than deadlocking: the one-post slot this call would need to
// wait on can only clear once fn returns, and fn is exactly what would
// be stuck waiting.
func NewFrame[R any](p *Pool, fn func(w *Worker) R) R {
	var result R
	p.runFrame(frame.NewFrame, func(workerID int) {
		result = fn(p.workers[workerID])
	})
	return result
}

// Together runs fn once on every worker, independently, with no result
// aggregation. Every worker rendezvous on the exit
// barrier before the frame is cleared, so a worker that returns from
// Together has the guarantee that every other worker's copy has also
// returned. Like NewFrame, calling NewFrame or Together from within fn on
// the same worker currently running it panics with ErrNestedFrame instead
// of deadlocking.
func Together(p *Pool, fn func(w *Worker)) {
	p.runFrame(frame.Together, func(workerID int) {
		fn(p.workers[workerID])
	})
}

// CheckYield lets a worker blocked outside the normal steal loop (for
// instance spinning in application code between spawns) still notice and
// participate in a frame switch posted by another worker — new-frame/together
// need to reach every worker promptly rather
// than only at the next natural steal-retry point.
func CheckYield(w *Worker) {
	w.pool.checkYield(w)
}

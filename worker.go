package forkjoin

import (
	"github.com/go-foundations/forkjoin/internal/backoff"
	"github.com/go-foundations/forkjoin/internal/deque"
	"github.com/go-foundations/forkjoin/internal/frame"
)

// Worker holds one pool worker's per-thread state: its deque,
// its victim-selection RNG, its affinity placement,
// and a back-reference to the pool it belongs to.
//
// There is deliberately no package-level "current worker" global: task
// bodies receive their *Worker explicitly, the same way idiomatic Go code
// threads a context.Context rather than reaching for a goroutine-local.
// CurrentWorker (api.go) covers the rarer case of code with no handle in
// scope, backed by internal/gls.
type Worker struct {
	id    int
	pu    int
	hasPU bool

	dq   *deque.Deque
	pool *Pool
	rng  lcg

	backoff backoff.Policy

	// servedFrame remembers the last frame post this worker already
	// participated in, so repeated CheckYield calls while a frame is
	// active don't re-enter its barriers.
	servedFrame *frame.Post

	// inFrame is set for the duration of this worker's own call to a
	// frame post's Body (as NewFrame's runner or as a Together
	// participant), and nil otherwise. runFrame checks it to reject a
	// nested NewFrame/Together call from within a running body instead
	// of spinning forever on a slot that only this same call could clear.
	inFrame *frame.Post
}

// ID returns the worker's id in [0, WorkerCount).
func (w *Worker) ID() int { return w.id }

// PU returns the processing unit this worker is pinned to, if affinity
// placement is enabled.
func (w *Worker) PU() (pu int, ok bool) { return w.pu, w.hasPU }

// lcg is the per-worker linear congruential generator used
// for victim selection, seeded by worker_id+1.
type lcg struct{ state uint64 }

func newLCG(seed uint64) lcg { return lcg{state: seed} }

func (l *lcg) next() uint64 {
	// Constants from Knuth's MMIX LCG; adequate for victim selection,
	// not for anything security-sensitive.
	l.state = l.state*6364136223846793005 + 1442695040888963407
	return l.state
}

// randomVictim picks uniformly among the n-1 workers other than w.id.
func (w *Worker) randomVictim(n int) int {
	if n <= 1 {
		return w.id
	}
	v := int(w.rng.next() % uint64(n-1))
	if v >= w.id {
		v++
	}
	return v
}

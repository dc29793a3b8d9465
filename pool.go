// Pool is the scheduler's root type: it owns the worker goroutines, their
// deques, and the pool-wide coordination state (frame slot, barriers,
// suspend/resume condition). See doc.go for the package overview.
package forkjoin

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-foundations/forkjoin/internal/affinity"
	"github.com/go-foundations/forkjoin/internal/backoff"
	"github.com/go-foundations/forkjoin/internal/barrier"
	"github.com/go-foundations/forkjoin/internal/deque"
	"github.com/go-foundations/forkjoin/internal/frame"
	"github.com/go-foundations/forkjoin/internal/gls"
)

// injectBuffer is the buffer size of the channel non-worker threads use to
// hand tasks to worker 0. A small buffer lets Run callers hand off their
// task without waiting for worker 0 to be mid-poll (Run still blocks until
// the result arrives); it is not on any worker's hot path.
const injectBuffer = 64

// Pool owns the fixed set of worker goroutines and the pool-wide
// coordination state (frame slot, barriers, suspend/resume condition).
type Pool struct {
	cfg     Config
	logger  *zap.Logger
	metrics *Metrics
	workers []*Worker

	frameSlot *frame.Slot
	frameExit *barrier.Barrier

	injectCh chan func(*Worker)

	mu          sync.Mutex
	cond        *sync.Cond
	suspended   bool
	parkedCount int

	stopCh  chan struct{}
	eg      *errgroup.Group
	started atomic.Bool
}

// Start spawns n_workers worker goroutines, each with a dqsize-capacity
// deque, and returns a freshly built *Pool. n_workers<=0 autodetects via
// runtime.NumCPU(); dqsize<=0 uses deque.DefaultCapacity. Each call to
// Start builds an entirely independent *Pool with its own workers and
// state — there is no shared "already started" condition to guard
// against, since nothing is shared between two Start calls. The only
// startup error this returns is an affinity pin failure.
func Start(cfg Config) (*Pool, error) {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.NumCPU()
	}
	if cfg.DQSize <= 0 {
		cfg.DQSize = deque.DefaultCapacity
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	backoffPolicy := cfg.Backoff
	if backoffPolicy == nil {
		backoffPolicy = backoff.NewFactory().Create(backoff.Exponential)
	}

	p := &Pool{
		cfg:       cfg,
		logger:    logger,
		metrics:   newMetrics(cfg.EnableMetrics),
		frameSlot: &frame.Slot{},
		frameExit: barrier.New(cfg.NumWorkers),
		injectCh:  make(chan func(*Worker), injectBuffer),
		stopCh:    make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)

	p.workers = make([]*Worker, cfg.NumWorkers)
	for i := 0; i < cfg.NumWorkers; i++ {
		w := &Worker{
			id:      i,
			dq:      deque.New(cfg.DQSize),
			pool:    p,
			rng:     newLCG(uint64(i + 1)),
			backoff: backoffPolicy,
		}
		if cfg.Affinity {
			w.pu, w.hasPU = i, true
		}
		p.workers[i] = w
	}

	var (
		startMu  sync.Mutex
		startErr error
	)
	p.eg = new(errgroup.Group)
	ready := make(chan struct{}, cfg.NumWorkers)
	for _, w := range p.workers {
		w := w
		p.eg.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			if w.hasPU {
				if err := pinWorker(w.pu); err != nil {
					wrapped := fmt.Errorf("forkjoin: worker %d affinity pin failed: %w", w.id, err)
					startMu.Lock()
					if startErr == nil {
						startErr = wrapped
					}
					startMu.Unlock()
					ready <- struct{}{}
					return wrapped
				}
			}
			ready <- struct{}{}

			gls.Bind(w)
			defer gls.Unbind()
			p.workerLoop(w)
			return nil
		})
	}
	for range p.workers {
		<-ready
	}

	startMu.Lock()
	err := startErr
	startMu.Unlock()
	if err != nil {
		close(p.stopCh)
		p.eg.Wait()
		return nil, err
	}

	p.started.Store(true)
	p.logger.Info("forkjoin pool started",
		zap.Int("workers", cfg.NumWorkers),
		zap.Int("dqsize", cfg.DQSize),
		zap.Bool("affinity", cfg.Affinity),
	)
	return p, nil
}

// Stop terminates all workers and frees their deques. Must be called from
// outside any worker. Joins the worker goroutines with
// errgroup's first-error semantics, logging (rather than returning) any
// error since a worker goroutine should not fail once started — Start
// already rejects affinity failures before a Pool is ever handed back.
func (p *Pool) Stop() {
	if !p.started.CompareAndSwap(true, false) {
		return
	}
	close(p.stopCh)
	if err := p.eg.Wait(); err != nil {
		p.logger.Warn("forkjoin worker exited with error", zap.Error(err))
	}
	p.logger.Info("forkjoin pool stopped")
}

// WorkerCount returns the pool's worker count.
func (p *Pool) WorkerCount() int { return len(p.workers) }

// Metrics returns a snapshot of the pool's event counters. Counters are
// zero-valued throughout if Config.EnableMetrics was false.
func (p *Pool) Metrics() Metrics { return p.metrics.Snapshot() }

// Suspend cooperatively parks every worker and does not return until all
// of them have parked.
func (p *Pool) Suspend() {
	p.mu.Lock()
	p.suspended = true
	for p.parkedCount < len(p.workers) {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// Resume unparks every worker parked by Suspend.
func (p *Pool) Resume() {
	p.mu.Lock()
	p.suspended = false
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *Pool) isSuspended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.suspended
}

// park blocks w until Resume is called, having first registered its
// arrival so a concurrent Suspend() call can observe that every worker has
// parked.
func (p *Pool) park(w *Worker) {
	p.mu.Lock()
	p.parkedCount++
	p.cond.Broadcast()
	for p.suspended {
		p.cond.Wait()
	}
	p.parkedCount--
	p.mu.Unlock()
}

// workerLoop is a worker's steal-until-work cycle. Unlike a hand-written
// C state machine, a worker's nested Spawn/Sync recursion is handled
// by Go's own call stack (a stolen task's trampoline runs as an ordinary,
// possibly recursive, function call) rather than by manual continuation
// bookkeeping — there is no "resume a suspended local task" branch here
// because there is nothing to resume; see DESIGN.md.
func (p *Pool) workerLoop(w *Worker) {
	attempt := 0
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		if p.isSuspended() {
			p.park(w)
			attempt = 0
			continue
		}

		if post := p.frameSlot.Current(); post != nil {
			p.participate(w, post)
			attempt = 0
			continue
		}

		if w.id == 0 {
			select {
			case fn := <-p.injectCh:
				fn(w)
				attempt = 0
				continue
			default:
			}
		}

		executed, outcome := p.trySteal(w)
		if executed {
			attempt = 0
			continue
		}
		switch outcome {
		case deque.NoWork:
			attempt++
			w.backoff.Backoff(attempt)
		case deque.Busy:
			// Immediate retry with a (likely) different victim; no
			// backoff for contention, only for genuine absence of work.
		}
	}
}

// trySteal picks a random victim other than w and attempts one claim. If
// it succeeds, the stolen task is executed inline before returning.
func (p *Pool) trySteal(w *Worker) (executed bool, outcome deque.StealOutcome) {
	n := len(p.workers)
	if n <= 1 {
		return false, deque.NoWork
	}
	victim := p.workers[w.randomVictim(n)]
	p.metrics.stealAttempted()
	idx, outcome := victim.dq.Steal()
	if outcome != deque.Stolen {
		return false, outcome
	}
	p.metrics.stealSucceeded()
	p.executeStolen(w, victim, idx)
	return true, deque.Stolen
}

// executeStolen runs the steal protocol's thief-side steps: record the
// thief's identity, invoke the trampoline, the trampoline itself writes
// the result, then transition to Completed with release ordering.
func (p *Pool) executeStolen(thief *Worker, victim *Worker, idx int32) {
	t := victim.dq.At(idx)
	t.TryClaim(thief.id)
	t.Run()
	t.Complete()
}

// leapSteal is the join engine's cooperative wait: attempt one steal from
// elsewhere while a sync is blocked on a thief's result, and poll for a
// pending frame switch at
// this re-entry point.
func (p *Pool) leapSteal(w *Worker) (executed bool) {
	executed, _ = p.trySteal(w)
	p.checkYield(w)
	return executed
}

// participate is what a worker does on an iteration where it observes a
// posted frame. Together: every worker runs its own copy of
// Body exactly once, all copies rendezvous on frameExit before the post
// is cleared. NewFrame: exactly one worker claims the runner role and
// executes Body for real; every other worker just keeps stealing, which
// naturally serves whatever the runner's Body spawns.
func (p *Pool) participate(w *Worker, post *frame.Post) {
	switch post.Mode {
	case frame.Together:
		if w.servedFrame != post {
			w.servedFrame = post
			w.inFrame = post
			post.Body(w.id)
			w.inFrame = nil
			p.frameExit.Wait()
			post.ClearOnce(func() {
				p.frameSlot.Clear()
				post.Finish()
			})
		}
	case frame.NewFrame:
		if w.servedFrame == post {
			return
		}
		if post.ClaimRunner(w.id) {
			w.servedFrame = post
			w.inFrame = post
			post.Body(w.id)
			w.inFrame = nil
			p.frameSlot.Clear()
			post.Finish()
			return
		}
		p.trySteal(w)
	}
}

// checkYield is the re-entry hook needed at every steal-retry
// point so a worker blocked in Sync/Drop still joins a frame switch posted
// by another thread instead of starving it. Called from leapSteal (the
// sync engine's cooperative wait) and safe to call outside a worker's own
// loop iteration since it only reads the shared slot.
func (p *Pool) checkYield(w *Worker) {
	if post := p.frameSlot.Current(); post != nil {
		p.participate(w, post)
	}
}

// runFrame is the shared implementation behind NewFrame and Together
// (api.go). It posts a single frame; every pool worker notices it on its
// next workerLoop iteration and calls participate on its own. If the
// caller is itself a worker, its goroutine is off workerLoop for the
// duration of this call, so it participates directly here instead of
// waiting to notice its own post. Either way runFrame blocks on the
// post's completion channel until the frame has fully drained.
//
// Nesting a NewFrame/Together call inside the Body of a frame this same
// worker is currently running is not supported: the single-post slot
// only clears once that outer Body returns, and the outer Body is what
// would be blocked retrying TryPost, so the slot could never clear.
// Rather than spin forever, runFrame checks for this and panics with
// ErrNestedFrame immediately.
func (p *Pool) runFrame(mode frame.Mode, body func(workerID int)) {
	caller, isWorker := p.currentWorkerOf()
	if isWorker && caller.inFrame != nil {
		panic(ErrNestedFrame)
	}

	post := frame.NewPost(mode, body)

	for !p.frameSlot.TryPost(post) {
		runtime.Gosched()
	}

	if isWorker {
		// The calling goroutine IS a worker's own goroutine, currently
		// off its workerLoop (e.g. a task body called NewFrame/Together
		// directly). It won't observe its own post by polling, so it
		// must participate explicitly rather than wait passively. For
		// NewFrame a single participate call may only land this worker
		// the thief role, so keep helping until the runner finishes.
		for {
			p.participate(caller, post)
			select {
			case <-post.Done():
				return
			default:
			}
			if mode == frame.Together {
				return
			}
		}
	}
	<-post.Done()
}

// currentWorkerOf resolves the calling goroutine's *Worker via
// internal/gls, used by Run and runFrame to decide whether the caller is
// itself a pool worker (and so must run fn or participate directly rather
// than wait on work only it could pick up, to avoid deadlocking a worker
// against itself).
func (p *Pool) currentWorkerOf() (*Worker, bool) {
	v, ok := gls.Lookup()
	if !ok {
		return nil, false
	}
	w, ok := v.(*Worker)
	if !ok || w.pool != p {
		return nil, false
	}
	return w, true
}

func pinWorker(pu int) error {
	return affinity.Pin(pu)
}

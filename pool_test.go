package forkjoin

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// PoolTestSuite exercises the scheduler end to end: black-box, through
// the public API only.
type PoolTestSuite struct {
	suite.Suite
}

func TestPoolTestSuite(t *testing.T) {
	suite.Run(t, new(PoolTestSuite))
}

func fibForTest(w *Worker, n int) int {
	if n < 2 {
		return n
	}
	h := Spawn(w, fibForTest, n-1)
	b := fibForTest(w, n-2)
	return h.Sync() + b
}

func (ts *PoolTestSuite) TestStartDefaultConfig() {
	p, err := Start(DefaultConfig())
	ts.Require().NoError(err)
	defer p.Stop()

	ts.Greater(p.WorkerCount(), 0)
}

func (ts *PoolTestSuite) TestStartExplicitWorkerCount() {
	cfg := DefaultConfig()
	cfg.NumWorkers = 3
	p, err := Start(cfg)
	ts.Require().NoError(err)
	defer p.Stop()

	ts.Equal(3, p.WorkerCount())
}

func (ts *PoolTestSuite) TestSpawnSyncFib() {
	cfg := DefaultConfig()
	cfg.NumWorkers = 4
	p, err := Start(cfg)
	ts.Require().NoError(err)
	defer p.Stop()

	result := Run(p, func(w *Worker) int { return fibForTest(w, 15) })
	ts.Equal(610, result)
}

func (ts *PoolTestSuite) TestRunFromOutsideAnyWorker() {
	cfg := DefaultConfig()
	cfg.NumWorkers = 2
	p, err := Start(cfg)
	ts.Require().NoError(err)
	defer p.Stop()

	ts.False(IsWorker())
	got := Run(p, func(w *Worker) string {
		ts.True(IsWorker())
		return "ok"
	})
	ts.Equal("ok", got)
}

func (ts *PoolTestSuite) TestMetricsCountSpawnsAndSteals() {
	cfg := DefaultConfig()
	cfg.NumWorkers = 4
	cfg.EnableMetrics = true
	p, err := Start(cfg)
	ts.Require().NoError(err)
	defer p.Stop()

	Run(p, func(w *Worker) int { return fibForTest(w, 18) })

	m := p.Metrics()
	ts.Greater(m.TasksSpawned.Load(), int64(0))
	ts.Greater(m.StealAttempts.Load(), int64(0))
}

func (ts *PoolTestSuite) TestMetricsDisabledByDefault() {
	p, err := Start(DefaultConfig())
	ts.Require().NoError(err)
	defer p.Stop()

	Run(p, func(w *Worker) int { return fibForTest(w, 10) })
	m := p.Metrics()
	ts.Equal(int64(0), m.TasksSpawned.Load())
}

func (ts *PoolTestSuite) TestUnmatchedSyncPanics() {
	cfg := DefaultConfig()
	cfg.NumWorkers = 2
	p, err := Start(cfg)
	ts.Require().NoError(err)
	defer p.Stop()

	Run(p, func(w *Worker) int {
		h1 := Spawn(w, func(w *Worker, x int) int { return x }, 1)
		h2 := Spawn(w, func(w *Worker, x int) int { return x }, 2)

		ts.Panics(func() { h1.Sync() })

		h2.Sync()
		return 0
	})
}

func (ts *PoolTestSuite) TestSuspendResume() {
	p, err := Start(DefaultConfig())
	ts.Require().NoError(err)
	defer p.Stop()

	done := make(chan struct{})
	go func() {
		p.Suspend()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		ts.Fail("Suspend did not return once all workers parked")
	}

	p.Resume()

	result := Run(p, func(w *Worker) int { return fibForTest(w, 10) })
	ts.Equal(55, result)
}

func (ts *PoolTestSuite) TestTogetherRunsOnEveryWorker() {
	cfg := DefaultConfig()
	cfg.NumWorkers = 4
	p, err := Start(cfg)
	ts.Require().NoError(err)
	defer p.Stop()

	var mu sync.Mutex
	seen := make(map[int]bool)
	Together(p, func(w *Worker) {
		mu.Lock()
		seen[w.ID()] = true
		mu.Unlock()
	})

	ts.Len(seen, 4)
}

func (ts *PoolTestSuite) TestNewFrameReturnsResult() {
	cfg := DefaultConfig()
	cfg.NumWorkers = 4
	p, err := Start(cfg)
	ts.Require().NoError(err)
	defer p.Stop()

	result := NewFrame(p, func(w *Worker) int { return fibForTest(w, 16) })
	ts.Equal(987, result)
}

func (ts *PoolTestSuite) TestNestedFrameCallPanics() {
	cfg := DefaultConfig()
	cfg.NumWorkers = 4
	p, err := Start(cfg)
	ts.Require().NoError(err)
	defer p.Stop()

	// The panic from the inner Together call happens on whichever
	// worker ends up running the outer NewFrame's body, so it must be
	// recovered from within that body (same shape as
	// TestUnmatchedSyncPanics) rather than by wrapping the outer
	// NewFrame call from this goroutine.
	result := NewFrame(p, func(w *Worker) int {
		ts.Panics(func() {
			Together(p, func(w *Worker) {})
		})
		return 42
	})
	ts.Equal(42, result)
}

func (ts *PoolTestSuite) TestWorkerPUWithoutAffinity() {
	p, err := Start(DefaultConfig())
	ts.Require().NoError(err)
	defer p.Stop()

	Run(p, func(w *Worker) int {
		_, hasPU := w.PU()
		ts.False(hasPU)
		return 0
	})
}

func (ts *PoolTestSuite) TestStopIsIdempotent() {
	p, err := Start(DefaultConfig())
	ts.Require().NoError(err)

	p.Stop()
	ts.NotPanics(func() { p.Stop() })
}

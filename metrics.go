package forkjoin

import "go.uber.org/atomic"

// Metrics is an optional event-counter observer: a small set of counters
// incremented on specific transitions (task spawned, steal attempted,
// steal succeeded, owner reclaimed its own task). Its presence is toggleable
// without affecting correctness — every increment method is a no-op on
// a disabled or nil *Metrics. It is a plain counters record, read via a
// snapshot method, rather than a timing-focused record, since latency
// histograms don't map cleanly onto a fork/join task tree the way they
// do to a flat job queue.
type Metrics struct {
	enabled bool

	TasksSpawned    atomic.Int64
	StealAttempts   atomic.Int64
	StealsSucceeded atomic.Int64
	OwnerReclaims   atomic.Int64
}

func newMetrics(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

func (m *Metrics) spawned() {
	if m == nil || !m.enabled {
		return
	}
	m.TasksSpawned.Inc()
}

func (m *Metrics) stealAttempted() {
	if m == nil || !m.enabled {
		return
	}
	m.StealAttempts.Inc()
}

func (m *Metrics) stealSucceeded() {
	if m == nil || !m.enabled {
		return
	}
	m.StealsSucceeded.Inc()
}

func (m *Metrics) ownerReclaimed() {
	if m == nil || !m.enabled {
		return
	}
	m.OwnerReclaims.Inc()
}

// Snapshot returns a point-in-time copy of the counters. Safe to call
// concurrently with a running pool.
func (m *Metrics) Snapshot() Metrics {
	if m == nil {
		return Metrics{}
	}
	s := Metrics{enabled: m.enabled}
	s.TasksSpawned.Store(m.TasksSpawned.Load())
	s.StealAttempts.Store(m.StealAttempts.Load())
	s.StealsSucceeded.Store(m.StealsSucceeded.Load())
	s.OwnerReclaims.Store(m.OwnerReclaims.Load())
	return s
}

package forkjoin

import (
	"go.uber.org/zap"

	"github.com/go-foundations/forkjoin/internal/backoff"
)

// Config holds configuration for the scheduler: worker count and deque
// size, plus ambient knobs for a worker pool such as metrics toggling
// and a structured logger.
type Config struct {
	// NumWorkers is the pool size. 0 means autodetect (runtime.NumCPU()).
	NumWorkers int
	// DQSize is each worker's deque capacity. 0 means a sensible default
	// (100k slots, matching the Lace benchmarks' default).
	DQSize int
	// EnableMetrics toggles the optional event-counter observer
	// without affecting correctness when left off.
	EnableMetrics bool
	// Affinity pins each worker i to PU i when true. On platforms without
	// affinity support (see internal/affinity) pinning fails with
	// affinity.ErrUnsupported and Start returns that error.
	Affinity bool
	// Backoff selects the steal loop's pacing policy between failed
	// steals. Defaults to an exponential backoff capped
	// at a couple of milliseconds.
	Backoff backoff.Policy
	// Logger receives pool lifecycle events. A nil Logger is replaced
	// with zap.NewNop() — the core never logs on the spawn/steal hot
	// path regardless.
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults, using NumWorkers/DQSize-style
// zero-value conventions resolved lazily by Start rather than eagerly here so
// runtime.NumCPU() reflects the machine Start actually runs on).
func DefaultConfig() Config {
	return Config{
		NumWorkers:    0,
		DQSize:        0,
		EnableMetrics: false,
		Affinity:      false,
		Backoff:       nil,
		Logger:        nil,
	}
}

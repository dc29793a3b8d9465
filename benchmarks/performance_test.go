// Package benchmarks is a standalone package of Benchmark functions
// exercising the scheduler end-to-end rather than unit-testing any one
// internal piece.
package benchmarks

import (
	"testing"

	"github.com/go-foundations/forkjoin"
)

func fib(w *forkjoin.Worker, n int) int {
	if n < 2 {
		return n
	}
	h := forkjoin.Spawn(w, fib, n-1)
	b := fib(w, n-2)
	return h.Sync() + b
}

func benchmarkFib(b *testing.B, n, workers int) {
	cfg := forkjoin.DefaultConfig()
	cfg.NumWorkers = workers
	p, err := forkjoin.Start(cfg)
	if err != nil {
		b.Fatalf("start: %v", err)
	}
	defer p.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		forkjoin.Run(p, func(w *forkjoin.Worker) int { return fib(w, n) })
	}
}

func BenchmarkFib25_1Worker(b *testing.B)  { benchmarkFib(b, 25, 1) }
func BenchmarkFib25_2Workers(b *testing.B) { benchmarkFib(b, 25, 2) }
func BenchmarkFib25_4Workers(b *testing.B) { benchmarkFib(b, 25, 4) }
func BenchmarkFib25_8Workers(b *testing.B) { benchmarkFib(b, 25, 8) }

func BenchmarkFib30_4Workers(b *testing.B) { benchmarkFib(b, 30, 4) }
func BenchmarkFib30_8Workers(b *testing.B) { benchmarkFib(b, 30, 8) }

func BenchmarkSpawnSyncOverhead(b *testing.B) {
	cfg := forkjoin.DefaultConfig()
	cfg.NumWorkers = 1
	p, err := forkjoin.Start(cfg)
	if err != nil {
		b.Fatalf("start: %v", err)
	}
	defer p.Stop()

	b.ResetTimer()
	forkjoin.Run(p, func(w *forkjoin.Worker) int {
		for i := 0; i < b.N; i++ {
			h := forkjoin.Spawn(w, func(w *forkjoin.Worker, x int) int { return x }, i)
			h.Sync()
		}
		return 0
	})
}

// Package forkjoin, plus the examples and benchmarks under this module,
// implement a fine-grained fork/join scheduler: a fixed pool of worker
// goroutines, each spinning a lock-free split deque, stealing work from
// each other at random when their own deque runs dry.
//
// A program using it starts a pool, then expresses its computation as
// ordinary recursive Go functions that call Spawn to fork off subtasks
// and Sync to join them:
//
//	func fib(w *forkjoin.Worker, n int) int {
//		if n < 2 {
//			return n
//		}
//		h := forkjoin.Spawn(w, fib, n-1)
//		b := fib(w, n-2)
//		return h.Sync() + b
//	}
//
//	p, _ := forkjoin.Start(forkjoin.DefaultConfig())
//	defer p.Stop()
//	result := forkjoin.Run(p, func(w *forkjoin.Worker) int { return fib(w, 30) })
//
// See DESIGN.md in this repository for the design rationale behind each
// package.
package forkjoin

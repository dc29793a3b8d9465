// Package gls provides the minimal goroutine-local lookup the scheduler
// needs to answer "is the calling goroutine a worker, and which one" from
// code that has no explicit *Worker handle in scope (external entry points
// like Run, NewFrame, Together, and the package-level current-worker
// queries). It stands in for the thread-local-storage keyed worker pointer
// a C implementation would install per OS thread.
//
// Go deliberately has no public goroutine-id API, so this extracts it from
// the runtime's own debug stack trace the same way a handful of other
// goroutine-local-storage shims do. It is only ever consulted off the
// spawn/sync hot path.
package gls

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

var (
	mu       sync.RWMutex
	registry = make(map[uint64]any)
)

// ID returns the current goroutine's id, parsed out of its stack trace
// header ("goroutine 123 [running]: ...").
func ID() uint64 {
	buf := make([]byte, 64)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, len(buf)*2)
	}

	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		buf = buf[:i]
	}
	id, err := strconv.ParseUint(string(buf), 10, 64)
	if err != nil {
		// Should not happen; the runtime's format is stable across
		// supported Go versions. Fall back to 0 rather than panic.
		return 0
	}
	return id
}

// Bind associates the calling goroutine with v. Call once, from the
// goroutine that will use the binding (a worker's run loop).
func Bind(v any) {
	mu.Lock()
	registry[ID()] = v
	mu.Unlock()
}

// Unbind removes the calling goroutine's association.
func Unbind() {
	mu.Lock()
	delete(registry, ID())
	mu.Unlock()
}

// Lookup returns the value bound to the calling goroutine, if any.
func Lookup() (any, bool) {
	mu.RLock()
	v, ok := registry[ID()]
	mu.RUnlock()
	return v, ok
}

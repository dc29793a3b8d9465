package forkjoin

import (
	"errors"

	"github.com/go-foundations/forkjoin/internal/deque"
)

// Error kinds, graded by severity.
var (
	// ErrStackOverflow is the fatal "task stack overflow" condition: a
	// spawn would push past the deque's fixed capacity.
	ErrStackOverflow = deque.ErrStackOverflow

	// ErrUnmatchedSync is the fatal condition of calling Sync/Drop on a
	// Handle that is not the innermost un-joined spawn on its worker's
	// deque.
	ErrUnmatchedSync = errors.New("forkjoin: sync/drop called out of LIFO order or with no matching spawn")

	// ErrNestedFrame is the fatal condition of calling NewFrame or
	// Together from within a worker goroutine that is itself currently
	// executing a NewFrame/Together body. The frame slot holds at most
	// one post at a time and only clears once the running body returns,
	// so a nested call from that same body can never observe the slot
	// free; this is checked explicitly rather than left to livelock.
	ErrNestedFrame = errors.New("forkjoin: NewFrame/Together called while already running inside a frame")
)

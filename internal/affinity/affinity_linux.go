//go:build linux

// On Linux, Pin is backed by golang.org/x/sys/unix's sched_setaffinity
// wrapper for low-level syscall access.
package affinity

import "golang.org/x/sys/unix"

// Pin binds the calling goroutine's underlying OS thread to pu. The
// caller must have already called runtime.LockOSThread so the binding
// sticks for the worker's lifetime.
func Pin(pu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(pu)
	return unix.SchedSetaffinity(0, &set)
}

// Available reports whether CPU pinning is supported on this platform.
func Available() bool { return true }

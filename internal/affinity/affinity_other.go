//go:build !linux

package affinity

// Pin is a no-op stub on platforms other than Linux.
func Pin(pu int) error { return ErrUnsupported }

// Available reports whether CPU pinning is supported on this platform.
func Available() bool { return false }

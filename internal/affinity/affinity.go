// Package affinity pins the calling OS thread to a single processing unit.
//
// Platform-specific implementations live in affinity_linux.go and
// affinity_other.go.
package affinity

import "errors"

// ErrUnsupported is returned by Pin on platforms without a wired affinity
// primitive.
var ErrUnsupported = errors.New("forkjoin: cpu affinity not supported on this platform")

package monitor

import "errors"

var (
	// ErrAlreadyEvicted is returned by Evict on the second and subsequent
	// call for the same handler.
	ErrAlreadyEvicted = errors.New("taskmonitor: handler already evicted")

	// ErrCapacityExceeded is returned by the default admission policy when
	// the running queue is at capacity.
	ErrCapacityExceeded = errors.New("taskmonitor: running queue at capacity")
)

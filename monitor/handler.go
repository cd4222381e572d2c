package monitor

import "context"

// TaskHandler drives the lifecycle of one unit of work against a backend
// (local process, cluster job scheduler, cloud batch service, ...). The
// monitor never inspects what a handler actually does; it only calls these
// operations in a fixed order: Submit, then repeated CheckIfRunning and
// CheckIfCompleted polls, then Task/Kill as needed.
type TaskHandler interface {
	// Submit dispatches the task to the backend. A non-nil error means the
	// task never entered the running queue.
	Submit(ctx context.Context) error

	// CheckIfRunning reports the edge-triggered transition to "running".
	// Implementations must be idempotent after they have reported true once.
	CheckIfRunning(ctx context.Context) (bool, error)

	// CheckIfCompleted reports whether the handler reached a terminal
	// state (success or failure). May consult state a BatchContext
	// populated earlier in the same poll cycle.
	CheckIfCompleted(ctx context.Context) (bool, error)

	// Kill makes a best-effort attempt to terminate the backend task.
	Kill(ctx context.Context) error

	// Task returns the back-reference shared with the Monitor.
	Task() *Task
}

// BatchAware is an optional capability: handlers that can share a single
// backend probe across their concrete type implement it. Queried with a
// type assertion rather than modeled as part of TaskHandler itself, so
// handlers that have nothing to batch stay free of the concept entirely.
type BatchAware interface {
	Batch(ctx *BatchContext)
}

// GridAware is an optional capability for handlers whose Kill calls can be
// coalesced into a single backend request during Cleanup.
type GridAware interface {
	AttachCleanup(c *BatchCleanup)
}

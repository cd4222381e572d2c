package monitor

import "context"

// Session is the upward collaborator a Monitor reports to. It is passed
// in explicitly by the component that constructs a Monitor
// rather than reached through ambient/global state, mirroring how
// coordination.LeaderElector takes its callbacks through SetCallbacks
// instead of calling back into a package-level singleton.
//
// The concrete implementation lives in package session; this interface is
// declared here so Monitor, Submitter, Poller and the cleanup path can
// depend on it without importing session (which in turn will depend on
// monitor's exported types for the handlers it wires through).
type Session interface {
	// RegisterBarrier adds self to the set of components the session
	// waits for on shutdown. ArriveAtBarrier signals that this component
	// has finished draining.
	RegisterBarrier(name string)
	ArriveAtBarrier(name string)

	// OnShutdown registers a callback invoked once, when the session
	// begins its shutdown sequence, before the barrier is awaited. The
	// context passed to the callback is independent of any run context
	// the caller captured earlier — Shutdown is commonly triggered by
	// that same run context's cancellation, so a callback that needs to
	// do its own I/O (e.g. a best-effort Kill) must not be handed a
	// context that is already done.
	OnShutdown(callback func(ctx context.Context))

	// IsTerminated reports whether the session has finished normally.
	IsTerminated() bool

	// IsAborted reports whether the session was torn down due to a fault.
	IsAborted() bool

	// Cancelled is closed once the session begins aborting. Monitor loops
	// select on this alongside their own context.
	Cancelled() <-chan struct{}

	// NotifyTaskSubmit, NotifyTaskStart and NotifyTaskComplete are fired by
	// Submitter/Poller at the corresponding lifecycle transitions so the
	// session can update its own bookkeeping (e.g. run summaries).
	NotifyTaskSubmit(h TaskHandler)
	NotifyTaskStart(h TaskHandler)
	NotifyTaskComplete(h TaskHandler)

	// Fault escalates a task-level fault to session-fatal. Implementations
	// typically cancel Cancelled() and record the fault for the final
	// report.
	Fault(f *Fault)

	// DumpNetworkStatus writes a diagnostic dump of in-flight network
	// state (e.g. outstanding backend calls) to the session's configured
	// sink. Called by the Monitor's throttled diagnostics dump, which the
	// Poller and the Submitter share.
	DumpNetworkStatus()
}

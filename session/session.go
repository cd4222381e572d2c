// Package session provides the Session collaborator that a monitor.Monitor
// reports lifecycle events to. Grounded on coordination.LeaderElector's
// ctx/cancel pair for "becomes aborted" semantics and AgentMonitor's
// background-loop shape, generalized from a single leadership role into a
// general-purpose run coordinator.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/flowlane/taskmonitor/monitor"
	"github.com/flowlane/taskmonitor/observability"
)

// Local is an in-process Session implementation: one per run, shared by
// every monitor.Monitor the process creates. It satisfies
// monitor.Session.
type Local struct {
	name string

	mu          sync.Mutex
	terminated  bool
	aborted     bool
	fault       *monitor.Fault
	shutdownFns []func(context.Context)
	barrier     sync.WaitGroup
	registered  map[string]bool

	cancelled chan struct{}
	once      sync.Once

	logger *log.Logger
}

// New creates a session identified by name, used in log lines the way
// LeaderElector's nodeID identifies a process in its own logs.
func New(name string, logger *log.Logger) *Local {
	if logger == nil {
		logger = log.Default()
	}
	observability.SessionAborted.WithLabelValues(name).Set(0)
	return &Local{
		name:       name,
		registered: make(map[string]bool),
		cancelled:  make(chan struct{}),
		logger:     logger,
	}
}

// RegisterBarrier adds a named component to the shutdown barrier. Must be
// called before the component's goroutines start, so Shutdown can never
// race past a monitor that hasn't registered yet.
func (s *Local) RegisterBarrier(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registered[name] {
		return
	}
	s.registered[name] = true
	s.barrier.Add(1)
}

// ArriveAtBarrier marks name as drained. Shutdown's wait returns once
// every registered name has arrived.
func (s *Local) ArriveAtBarrier(name string) {
	s.mu.Lock()
	if !s.registered[name] {
		s.mu.Unlock()
		return
	}
	s.registered[name] = false
	s.mu.Unlock()
	s.barrier.Done()
}

// OnShutdown registers a callback fired once, in Shutdown, before the
// barrier wait. The callback receives Shutdown's own ctx, not whatever
// context the registering component was running under — that run
// context is typically what cancelling triggered the shutdown in the
// first place, so handing it back to the callback would hand it a
// context that is already done.
func (s *Local) OnShutdown(callback func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownFns = append(s.shutdownFns, callback)
}

// Shutdown runs every registered shutdown callback with ctx, then blocks
// until all registered components have arrived at the barrier. Safe to
// call exactly once; a second call is a no-op.
func (s *Local) Shutdown(ctx context.Context) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	s.terminated = true
	fns := append([]func(context.Context){}, s.shutdownFns...)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ctx)
	}
	s.barrier.Wait()
}

// IsTerminated reports whether Shutdown has been called.
func (s *Local) IsTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// IsAborted reports whether Fault has torn the session down.
func (s *Local) IsAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// Cancelled returns the channel monitors select on alongside their own
// context, closed the moment the session aborts.
func (s *Local) Cancelled() <-chan struct{} {
	return s.cancelled
}

// Fault escalates a task-level fault to session-fatal: records it, flips
// aborted, and closes Cancelled() exactly once.
func (s *Local) Fault(f *monitor.Fault) {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	s.fault = f
	s.mu.Unlock()

	s.once.Do(func() { close(s.cancelled) })
	observability.SessionAborted.WithLabelValues(s.name).Set(1)
	s.logger.Printf("session %q aborting: %v", s.name, f)
}

// LastFault returns the fault that aborted the session, or nil.
func (s *Local) LastFault() *monitor.Fault {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

func (s *Local) NotifyTaskSubmit(h monitor.TaskHandler) {
	s.logger.Printf("session %q: task %s submitted", s.name, h.Task().ID)
}

func (s *Local) NotifyTaskStart(h monitor.TaskHandler) {
	s.logger.Printf("session %q: task %s running", s.name, h.Task().ID)
}

func (s *Local) NotifyTaskComplete(h monitor.TaskHandler) {
	s.logger.Printf("session %q: task %s complete", s.name, h.Task().ID)
}

// DumpNetworkStatus writes a diagnostic line, following the package's
// general log.Printf status-line convention.
func (s *Local) DumpNetworkStatus() {
	s.logger.Printf("session %q: network status nominal", s.name)
}

package monitor

import (
	"fmt"
	"sync"
)

// Fault is a task-level failure descriptor that a FaultPolicy has deemed
// unrecoverable. Passed to Session.Fault, which aborts the session — the
// Go analogue of resilience.ReconciliationError: a struct-based error type
// carrying enough context to explain the abort in a log line.
type Fault struct {
	TaskID string
	Reason string
	Err    error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("task %s: %s: %v", f.TaskID, f.Reason, f.Err)
	}
	return fmt.Sprintf("task %s: %s", f.TaskID, f.Reason)
}

// FaultPolicy decides, for a given task error, whether the monitor should
// treat it as recoverable (return nil) or session-fatal (return a *Fault).
type FaultPolicy interface {
	// ResumeOrDie is invoked for submission errors and status-check errors.
	ResumeOrDie(task *Task, err error) *Fault

	// FinalizeTask is invoked once a handler reaches a terminal state,
	// after eviction. A non-nil return aborts the session.
	FinalizeTask(task *Task) *Fault
}

// NoopFaultPolicy never escalates. Used as the zero value for tasks that
// don't need retry/die bookkeeping (e.g. in unit tests).
type NoopFaultPolicy struct{}

func (NoopFaultPolicy) ResumeOrDie(*Task, error) *Fault { return nil }
func (NoopFaultPolicy) FinalizeTask(*Task) *Fault       { return nil }

// RetryOrDiePolicy retries a task up to MaxAttempts times before declaring
// it fatal. Grounded on scheduler.go's per-domain failure counter
// (domainFailures[domain]++ escalating to a throttled mode past a
// threshold), adapted here to a per-task attempt counter.
type RetryOrDiePolicy struct {
	MaxAttempts int

	mu       sync.Mutex
	attempts map[string]int
}

// NewRetryOrDiePolicy returns a policy allowing maxAttempts failures before
// a task is declared fatal. maxAttempts <= 0 means "never retry".
func NewRetryOrDiePolicy(maxAttempts int) *RetryOrDiePolicy {
	return &RetryOrDiePolicy{
		MaxAttempts: maxAttempts,
		attempts:    make(map[string]int),
	}
}

func (p *RetryOrDiePolicy) ResumeOrDie(task *Task, err error) *Fault {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts[task.ID]++
	if p.attempts[task.ID] > p.MaxAttempts {
		return &Fault{TaskID: task.ID, Reason: "exceeded max attempts", Err: err}
	}
	return nil
}

func (p *RetryOrDiePolicy) FinalizeTask(task *Task) *Fault {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.attempts, task.ID)
	return nil
}

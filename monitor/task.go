package monitor

import "sync"

// Task is the back-reference every TaskHandler carries to its originating
// processor: the fault-handling policy and a completion latch that
// upstream code can wait on.
type Task struct {
	// ID identifies the task in logs and diagnostics dumps.
	ID string

	// Policy owns the resume-or-die decision for this task.
	Policy FaultPolicy

	once    sync.Once
	done    chan struct{}
	aborted bool
	mu      sync.Mutex
}

// NewTask creates a task bound to a fault policy. A nil policy is replaced
// with NoopFaultPolicy so callers never need a nil check.
func NewTask(id string, policy FaultPolicy) *Task {
	if policy == nil {
		policy = NoopFaultPolicy{}
	}
	return &Task{
		ID:     id,
		Policy: policy,
		done:   make(chan struct{}),
	}
}

// MarkDone closes the completion latch. Safe to call more than once; only
// the first call has an effect, since both the eviction and finalize paths
// may want to mark the same handler done without double-closing a channel.
func (t *Task) MarkDone() {
	t.once.Do(func() { close(t.done) })
}

// Done returns a channel closed once the task has reached a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// MarkAborted records that the task was terminated by session cleanup
// rather than completing normally.
func (t *Task) MarkAborted() {
	t.mu.Lock()
	t.aborted = true
	t.mu.Unlock()
}

// Aborted reports whether MarkAborted was called.
func (t *Task) Aborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aborted
}

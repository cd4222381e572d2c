package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession is a hand-rolled Session double recording lifecycle
// notifications in call order, so tests can assert on ordering.
type fakeSession struct {
	mu         sync.Mutex
	events     []string
	aborted    bool
	terminated bool
	cancelled  chan struct{}
	faults     []*Fault

	shutdownFns []func(context.Context)
	barrier     sync.WaitGroup
}

func newFakeSession() *fakeSession {
	return &fakeSession{cancelled: make(chan struct{})}
}

func (s *fakeSession) RegisterBarrier(name string) { s.barrier.Add(1) }
func (s *fakeSession) ArriveAtBarrier(name string) { s.barrier.Done() }
func (s *fakeSession) OnShutdown(cb func(context.Context)) {
	s.mu.Lock()
	s.shutdownFns = append(s.shutdownFns, cb)
	s.mu.Unlock()
}
func (s *fakeSession) shutdown(ctx context.Context) {
	s.mu.Lock()
	fns := append([]func(context.Context){}, s.shutdownFns...)
	s.terminated = true
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}

func (s *fakeSession) IsTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

func (s *fakeSession) IsAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

func (s *fakeSession) Cancelled() <-chan struct{} { return s.cancelled }

func (s *fakeSession) Fault(f *Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return
	}
	s.aborted = true
	s.faults = append(s.faults, f)
	close(s.cancelled)
}

func (s *fakeSession) NotifyTaskSubmit(h TaskHandler)   { s.record("submit:" + h.Task().ID) }
func (s *fakeSession) NotifyTaskStart(h TaskHandler)    { s.record("start:" + h.Task().ID) }
func (s *fakeSession) NotifyTaskComplete(h TaskHandler) { s.record("complete:" + h.Task().ID) }
func (s *fakeSession) DumpNetworkStatus()               {}

func (s *fakeSession) record(e string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *fakeSession) eventsSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

// scriptedHandler is a configurable TaskHandler fake: Submit/running/
// completed behavior is driven by test-controlled hooks and counters.
type scriptedHandler struct {
	task *Task

	mu           sync.Mutex
	submitErr    error
	runningAfter int // CheckIfRunning returns true once called >= this many times
	completeAfter int
	checkCalls    int
	killCalls     int
	killed        bool
	aborted       bool

	checkIfCompletedErr error
}

func newScriptedHandler(id string) *scriptedHandler {
	return &scriptedHandler{task: NewTask(id, nil)}
}

func (h *scriptedHandler) Task() *Task { return h.task }

func (h *scriptedHandler) Submit(ctx context.Context) error {
	return h.submitErr
}

func (h *scriptedHandler) CheckIfRunning(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkCalls++
	return h.checkCalls >= h.runningAfter, nil
}

func (h *scriptedHandler) CheckIfCompleted(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.checkIfCompletedErr != nil {
		return false, h.checkIfCompletedErr
	}
	return h.checkCalls >= h.completeAfter, nil
}

func (h *scriptedHandler) Kill(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.killCalls++
	h.killed = true
	return nil
}

func testConfig(name string, capacity Capacity, poll time.Duration) Config {
	return Config{
		Name:         name,
		Capacity:     capacity,
		PollInterval: poll,
		DumpInterval: time.Minute,
	}
}

// single task happy path.
func TestSingleTaskHappyPath(t *testing.T) {
	sess := newFakeSession()
	m := NewMonitor(testConfig("s1", 1, 50*time.Millisecond), sess, nil)

	h := newScriptedHandler("task-1")
	h.runningAfter = 1
	h.completeAfter = 2

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go m.Start(ctx)
	m.Schedule(h)

	require.Eventually(t, func() bool {
		return h.task.Aborted() == false && isDone(h.task)
	}, 200*time.Millisecond, 5*time.Millisecond)

	events := sess.eventsSnapshot()
	require.Contains(t, events, "submit:task-1")
	require.Contains(t, events, "start:task-1")
	require.Contains(t, events, "complete:task-1")

	assert.Less(t, indexOf(events, "submit:task-1"), indexOf(events, "start:task-1"))
	assert.Less(t, indexOf(events, "start:task-1"), indexOf(events, "complete:task-1"))
}

// capacity throttle.
func TestCapacityThrottle(t *testing.T) {
	sess := newFakeSession()
	m := NewMonitor(testConfig("s2", 2, 20*time.Millisecond), sess, nil)

	handlers := make([]*scriptedHandler, 5)
	for i := range handlers {
		h := newScriptedHandler(idFor(i))
		h.runningAfter = 1
		h.completeAfter = 1 << 20 // never completes
		handlers[i] = h
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	go m.Start(ctx)

	for _, h := range handlers {
		m.Schedule(h)
	}

	require.Eventually(t, func() bool {
		snap := m.Snapshot()
		return snap.RunningCount == 2 && snap.PendingCount == 3
	}, 300*time.Millisecond, 10*time.Millisecond)
}

// eviction unblocks a pending handler.
func TestEvictionUnblocksPending(t *testing.T) {
	sess := newFakeSession()
	m := NewMonitor(testConfig("s3", 2, 20*time.Millisecond), sess, nil)

	handlers := make([]*scriptedHandler, 5)
	for i := range handlers {
		h := newScriptedHandler(idFor(i))
		h.runningAfter = 1
		h.completeAfter = 1 << 20
		handlers[i] = h
	}

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()
	go m.Start(ctx)

	for _, h := range handlers {
		m.Schedule(h)
	}

	require.Eventually(t, func() bool {
		return m.Snapshot().RunningCount == 2
	}, 300*time.Millisecond, 10*time.Millisecond)

	running := m.Snapshot().Running
	require.Len(t, running, 2)
	err := m.Evict(running[0])
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap := m.Snapshot()
		return snap.PendingCount == 2 && snap.RunningCount == 2
	}, 300*time.Millisecond, 10*time.Millisecond)
}

// submission failure.
func TestSubmissionFailure(t *testing.T) {
	sess := newFakeSession()
	m := NewMonitor(testConfig("s4", 1, 20*time.Millisecond), sess, nil)

	h := newScriptedHandler("bad-submit")
	h.submitErr = errors.New("boom")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go m.Start(ctx)
	m.Schedule(h)

	require.Eventually(t, func() bool {
		events := sess.eventsSnapshot()
		return indexOf(events, "complete:bad-submit") >= 0
	}, 200*time.Millisecond, 5*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, 0, snap.PendingCount)
	assert.Equal(t, 0, snap.RunningCount)
	assert.False(t, sess.IsAborted(), "default NoopFaultPolicy never escalates a submission error")
}

// status-check failure isolated to the failing handler.
func TestStatusCheckFailureIsolated(t *testing.T) {
	sess := newFakeSession()
	m := NewMonitor(testConfig("s5", 2, 20*time.Millisecond), sess, nil)

	sick := newScriptedHandler("sick")
	sick.runningAfter = 1
	sick.checkIfCompletedErr = errors.New("backend unreachable")

	healthy := newScriptedHandler("healthy")
	healthy.runningAfter = 1
	healthy.completeAfter = 2

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	go m.Start(ctx)
	m.Schedule(sick)
	m.Schedule(healthy)

	require.Eventually(t, func() bool {
		events := sess.eventsSnapshot()
		return indexOf(events, "complete:healthy") >= 0
	}, 300*time.Millisecond, 10*time.Millisecond)

	assert.False(t, sess.IsAborted())
	snap := m.Snapshot()
	running := snap.Running
	require.Len(t, running, 1)
	assert.Equal(t, "sick", running[0].Task().ID)
}

// cleanup kills every running handler exactly once.
func TestCleanupKillsRunning(t *testing.T) {
	sess := newFakeSession()
	m := NewMonitor(testConfig("s6", 3, 20*time.Millisecond), sess, nil)

	handlers := make([]*scriptedHandler, 3)
	for i := range handlers {
		h := newScriptedHandler(idFor(i))
		h.runningAfter = 1
		h.completeAfter = 1 << 20
		handlers[i] = h
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)
	for _, h := range handlers {
		m.Schedule(h)
	}

	require.Eventually(t, func() bool {
		return m.Snapshot().RunningCount == 3
	}, 300*time.Millisecond, 10*time.Millisecond)

	m.Cleanup(context.Background())

	snap := m.Snapshot()
	assert.Equal(t, 0, snap.RunningCount)
	for _, h := range handlers {
		h.mu.Lock()
		assert.Equal(t, 1, h.killCalls)
		h.mu.Unlock()
		assert.True(t, h.task.Aborted())
	}
}

// eviction is idempotent: a second call reports ErrAlreadyEvicted.
func TestIdempotentEviction(t *testing.T) {
	sess := newFakeSession()
	m := NewMonitor(testConfig("inv6", 1, time.Second), sess, nil)
	h := newScriptedHandler("once")
	m.mu.Lock()
	m.running.push(h)
	m.mu.Unlock()

	require.NoError(t, m.Evict(h))
	assert.ErrorIs(t, m.Evict(h), ErrAlreadyEvicted)
}

func idFor(i int) string {
	return string(rune('a' + i))
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func isDone(t *Task) bool {
	select {
	case <-t.Done():
		return true
	default:
		return false
	}
}

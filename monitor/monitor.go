package monitor

import (
	"context"
	"sync"

	"github.com/flowlane/taskmonitor/diagnostics"
)

// Monitor is the bounded-concurrency scheduler at the center of this
// package: an unbounded PendingQueue feeding a capacity-bounded
// RunningQueue, drained by a Submitter and watched by a Poller. Adapted
// from Scheduler (scheduler.go), but with the admission/queue/worker
// responsibilities split back out into their own cooperating types, and
// with sync.Cond's three predicates replaced by capacity-1 signal
// channels — Go's sync.Cond has no timed wait, so a coalescing
// non-blocking send is used instead.
type Monitor struct {
	cfg     Config
	session Session

	mu      sync.Mutex
	pending *pendingQueue
	running *runningQueue

	// taskAvail, slotAvail and taskCompleted are the channel-based stand-ins
	// for three condition-variable predicates: a task became available, a
	// running-queue slot freed up, and a task completed. Each has capacity
	// 1; signal() is a non-blocking send so multiple signals between waits
	// coalesce into one wakeup of a single waiter, like a signal-one
	// condition variable (not a broadcast).
	taskAvail     chan struct{}
	slotAvail     chan struct{}
	taskCompleted chan struct{}

	admit func(m *Monitor) error

	throttle *diagnostics.Throttler
}

// NewMonitor constructs a Monitor bound to a session. admit overrides the
// default capacity check; pass nil to use the Capacity-based policy from
// cfg.
func NewMonitor(cfg Config, sess Session, admit func(m *Monitor) error) *Monitor {
	if admit == nil {
		admit = defaultAdmit
	}
	return &Monitor{
		cfg:           cfg,
		session:       sess,
		pending:       newPendingQueue(),
		running:       newRunningQueue(),
		taskAvail:     make(chan struct{}, 1),
		slotAvail:     make(chan struct{}, 1),
		taskCompleted: make(chan struct{}, 1),
		admit:         admit,
		throttle:      diagnostics.NewThrottler(cfg.dumpInterval()),
	}
}

// defaultAdmit implements the Capacity/UnboundedCapacity admission rule.
func defaultAdmit(m *Monitor) error {
	if m.cfg.Capacity == UnboundedCapacity {
		return nil
	}
	if m.running.len() >= int(m.cfg.Capacity) {
		return ErrCapacityExceeded
	}
	return nil
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Schedule enqueues h on the PendingQueue and wakes the Submitter. Safe to
// call concurrently from multiple producer goroutines.
func (m *Monitor) Schedule(h TaskHandler) {
	m.mu.Lock()
	m.pending.push(h)
	m.mu.Unlock()
	signal(m.taskAvail)
	signal(m.slotAvail)
}

// Evict removes h from the RunningQueue. Returns ErrAlreadyEvicted if h
// was not present, so a second eviction of the same handler is always
// distinguishable from the first.
func (m *Monitor) Evict(h TaskHandler) error {
	m.mu.Lock()
	ok := m.running.remove(h)
	m.mu.Unlock()
	if !ok {
		return ErrAlreadyEvicted
	}
	signal(m.slotAvail)
	signal(m.taskCompleted)
	return nil
}

// Signal wakes the Poller early, for backends that receive asynchronous
// completion notifications out of band and want to shorten its next
// sleep.
func (m *Monitor) Signal() {
	signal(m.taskCompleted)
}

// Start launches the Submitter and Poller goroutines and blocks until ctx
// is cancelled or the session aborts. Grounded on Scheduler.Start's
// go s.worker(ctx); go s.poller(ctx) shape (scheduler.go), split here into
// two cooperating types instead of two methods on one struct.
func (m *Monitor) Start(ctx context.Context) {
	sub := &Submitter{m: m}
	poll := &Poller{m: m}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sub.run(ctx)
	}()
	go func() {
		defer wg.Done()
		poll.run(ctx)
	}()
	wg.Wait()
}

// Run registers with the session's barrier before launching either thread
// (so the session can never observe an un-registered monitor and
// terminate early), wires Cleanup as the shutdown callback, then runs
// Start until ctx or the session ends, and finally arrives at the
// barrier.
//
// Cleanup is wired to the context OnShutdown hands it, not ctx itself:
// ctx's cancellation is commonly what triggers the shutdown in the first
// place, so a handler's best-effort Kill must not be handed a context
// that is already done by the time Cleanup runs.
func (m *Monitor) Run(ctx context.Context) {
	m.session.RegisterBarrier(m.cfg.Name)
	m.session.OnShutdown(func(shutdownCtx context.Context) { m.Cleanup(shutdownCtx) })
	defer m.session.ArriveAtBarrier(m.cfg.Name)

	m.Start(ctx)
}

// Snapshot is a diagnostics-friendly copy of queue state, the Go analogue
// of Scheduler.GetSnapshot. Pending/Running carry the live handlers for
// in-process callers (e.g. tests); PendingIDs/RunningIDs are the
// JSON-serializable projection the dashboard hub broadcasts.
type Snapshot struct {
	Name         string        `json:"name"`
	PendingCount int           `json:"pendingCount"`
	RunningCount int           `json:"runningCount"`
	PendingIDs   []string      `json:"pendingIds"`
	RunningIDs   []string      `json:"runningIds"`
	Pending      []TaskHandler `json:"-"`
	Running      []TaskHandler `json:"-"`
}

func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := m.pending.snapshot()
	running := m.running.snapshot()
	return Snapshot{
		Name:         m.cfg.Name,
		PendingCount: len(pending),
		RunningCount: len(running),
		PendingIDs:   handlerIDs(pending),
		RunningIDs:   handlerIDs(running),
		Pending:      pending,
		Running:      running,
	}
}

func handlerIDs(handlers []TaskHandler) []string {
	ids := make([]string, len(handlers))
	for i, h := range handlers {
		ids[i] = h.Task().ID
	}
	return ids
}

// dumpDiagnostics writes a queue dump via the injected Logger, throttled
// to cfg.DumpInterval so a stalled Submitter or Poller doesn't spam logs
// every idle iteration.
func (m *Monitor) dumpDiagnostics() {
	if !m.throttle.Allow(m.cfg.Name) {
		return
	}
	snap := m.Snapshot()
	m.cfg.logger().Printf("monitor %q: pending=%d running=%d", snap.Name, snap.PendingCount, snap.RunningCount)
	m.session.DumpNetworkStatus()
}

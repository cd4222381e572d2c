package monitor

import (
	"context"

	"github.com/flowlane/taskmonitor/observability"
)

// Cleanup drains RunningQueue on session shutdown. Grid handlers share a
// BatchCleanup so their kill calls can be coalesced into one backend
// request; it is flushed exactly once after the drain.
//
// Cleanup never holds Monitor.mu while calling a handler's Kill, since
// that call may block on network I/O — the handler is popped under the
// lock, then Kill is invoked with the lock released.
func (m *Monitor) Cleanup(ctx context.Context) {
	batch := NewBatchCleanup(m.killBatch)

	for {
		m.mu.Lock()
		if m.running.len() == 0 {
			m.mu.Unlock()
			break
		}
		h := m.running.items[0]
		m.running.remove(h)
		m.mu.Unlock()

		if ga, ok := h.(GridAware); ok {
			ga.AttachCleanup(batch)
		}

		if err := h.Kill(ctx); err != nil {
			m.cfg.logger().Printf("monitor %q: kill failed for task %q: %v", m.cfg.Name, h.Task().ID, err)
		}

		task := h.Task()
		task.MarkAborted()
		task.MarkDone()
		observability.TasksCompletedTotal.WithLabelValues(m.cfg.Name, "killed").Inc()
		m.session.NotifyTaskComplete(h)
	}

	_ = batch.Kill()
}

// killBatch is the default coalesced-kill sink for handlers that register
// through GridAware but don't supply their own backend batch-kill call.
// Concrete grid-aware handlers (e.g. a multi-job grid backend) normally
// supply their own kill func to NewBatchCleanup via their own wiring; this
// is the harmless fallback when none is wired.
func (m *Monitor) killBatch(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	m.cfg.logger().Printf("monitor %q: batch kill of %d handler(s): %v", m.cfg.Name, len(keys), keys)
	return nil
}

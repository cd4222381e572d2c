package monitor

import (
	"context"

	"github.com/flowlane/taskmonitor/observability"
)

// Submitter drains PendingQueue into RunningQueue. One Submitter runs per
// Monitor for its whole lifetime.
type Submitter struct {
	m *Monitor
}

func (s *Submitter) run(ctx context.Context) {
	m := s.m
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.session.Cancelled():
			return
		default:
		}

		submitted := s.drainOnce(ctx)

		if m.session.IsAborted() {
			return
		}

		if submitted == 0 {
			m.dumpDiagnostics()
			select {
			case <-ctx.Done():
				return
			case <-m.session.Cancelled():
				return
			case <-m.taskAvail:
			case <-m.slotAvail:
			}
		}
	}
}

// drainOnce makes one pass over PendingQueue in FIFO order, submitting
// everything the admission check allows, stopping at the first handler
// that can't be admitted yet (preserving FIFO for the handlers behind
// it).
func (s *Submitter) drainOnce(ctx context.Context) int {
	m := s.m
	submitted := 0

	for {
		m.mu.Lock()
		if m.pending.len() == 0 {
			m.mu.Unlock()
			break
		}
		if m.session.IsAborted() || m.session.IsTerminated() {
			m.mu.Unlock()
			break
		}
		h := m.pending.items[0]
		if err := m.admit(m); err != nil {
			m.mu.Unlock()
			break
		}

		// Pop before Submit so a racing drain can't double-dispatch the
		// same handler, then release Monitor.mu before calling Submit —
		// Schedule, Evict and Snapshot must never wait on a backend's
		// submission round trip.
		m.pending.removeAt(0)
		m.mu.Unlock()

		err := h.Submit(ctx)

		m.mu.Lock()
		if err != nil {
			m.mu.Unlock()
			s.handleSubmitError(h, err)
			continue
		}
		m.running.push(h)
		m.mu.Unlock()

		observability.SubmissionsTotal.WithLabelValues(m.cfg.Name, "success").Inc()
		m.session.NotifyTaskSubmit(h)
		submitted++
	}

	m.mu.Lock()
	pendingLen, runningLen := m.pending.len(), m.running.len()
	m.mu.Unlock()
	observability.PendingQueueDepth.WithLabelValues(m.cfg.Name).Set(float64(pendingLen))
	observability.RunningQueueDepth.WithLabelValues(m.cfg.Name).Set(float64(runningLen))

	return submitted
}

// handleSubmitError routes a submission error through the task's
// resume-or-die policy and reports the task complete with failure; a
// handler that fails to submit never enters RunningQueue.
func (s *Submitter) handleSubmitError(h TaskHandler, err error) {
	task := h.Task()
	observability.SubmissionsTotal.WithLabelValues(s.m.cfg.Name, "error").Inc()
	if fault := task.Policy.ResumeOrDie(task, err); fault != nil {
		observability.TaskFaultsTotal.WithLabelValues(s.m.cfg.Name, "submit").Inc()
		s.m.session.Fault(fault)
	}
	task.MarkDone()
	observability.TasksCompletedTotal.WithLabelValues(s.m.cfg.Name, "submit_error").Inc()
	s.m.session.NotifyTaskComplete(h)
}

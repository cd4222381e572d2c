package monitor

import (
	"context"
	"reflect"
	"time"

	"github.com/flowlane/taskmonitor/observability"
)

// Poller drives RunningQueue toward empty by repeated status inspection
// on a fixed interval.
type Poller struct {
	m *Monitor
}

func (p *Poller) run(ctx context.Context) {
	m := p.m
	for {
		t0 := time.Now()

		snapshot := m.Snapshot().Running
		p.attachBatches(snapshot)

		for _, h := range snapshot {
			p.probe(ctx, h)
		}
		observability.PollLoopDuration.WithLabelValues(m.cfg.Name).Observe(time.Since(t0).Seconds())

		m.mu.Lock()
		empty := m.pending.len() == 0 && m.running.len() == 0
		m.mu.Unlock()
		if (m.session.IsTerminated() && empty) || m.session.IsAborted() {
			return
		}

		remaining := m.cfg.PollInterval - time.Since(t0)
		if remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-m.session.Cancelled():
				timer.Stop()
				return
			case <-m.taskCompleted:
				timer.Stop()
			case <-timer.C:
			}
		}

		if m.session.IsAborted() {
			return
		}

		m.dumpDiagnostics()
	}
}

// attachBatches builds one BatchContext per concrete handler type among
// the batch-aware handlers currently running, so their status probes can
// be coalesced by the backend (e.g. a single MGET instead of one GET per
// handler).
func (p *Poller) attachBatches(handlers []TaskHandler) map[reflect.Type]*BatchContext {
	batches := make(map[reflect.Type]*BatchContext)
	for _, h := range handlers {
		ba, ok := h.(BatchAware)
		if !ok {
			continue
		}
		t := reflect.TypeOf(h)
		ctx, ok := batches[t]
		if !ok {
			ctx = NewBatchContext()
			batches[t] = ctx
		}
		ba.Batch(ctx)
	}
	return batches
}

// probe checks one running handler's status. Any error from
// CheckIfRunning/CheckIfCompleted is routed through the task's fault
// policy rather than propagated, so one sick task cannot stall the poll
// cycle.
func (p *Poller) probe(ctx context.Context, h TaskHandler) {
	m := p.m
	task := h.Task()

	running, err := h.CheckIfRunning(ctx)
	if err != nil {
		p.fault(task, err)
		return
	}
	if running {
		m.session.NotifyTaskStart(h)
	}

	completed, err := h.CheckIfCompleted(ctx)
	if err != nil {
		p.fault(task, err)
		return
	}
	if !completed {
		return
	}

	if err := m.Evict(h); err != nil {
		return
	}
	if fault := task.Policy.FinalizeTask(task); fault != nil {
		observability.TaskFaultsTotal.WithLabelValues(m.cfg.Name, "finalize").Inc()
		m.session.Fault(fault)
	}
	task.MarkDone()
	observability.TasksCompletedTotal.WithLabelValues(m.cfg.Name, "completed").Inc()
	m.session.NotifyTaskComplete(h)
}

func (p *Poller) fault(task *Task, err error) {
	if fault := task.Policy.ResumeOrDie(task, err); fault != nil {
		observability.TaskFaultsTotal.WithLabelValues(p.m.cfg.Name, "status_check").Inc()
		p.m.session.Fault(fault)
	}
}

// Package observability exposes the Prometheus metrics this module
// records. Grounded 1:1 on observability/metrics.go's promauto-defined
// gauge/counter/histogram variables, retargeted at monitor/poller/
// submitter concerns under a "taskmonitor_" prefix instead of "flux_".
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PendingQueueDepth tracks the number of handlers waiting in
	// PendingQueue, per monitor name.
	PendingQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taskmonitor_pending_queue_depth",
		Help: "Current number of handlers in the pending queue",
	}, []string{"monitor"})

	// RunningQueueDepth tracks the number of handlers in RunningQueue.
	RunningQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taskmonitor_running_queue_depth",
		Help: "Current number of handlers in the running queue",
	}, []string{"monitor"})

	// SubmissionsTotal counts successful and failed submission attempts.
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmonitor_submissions_total",
		Help: "Total number of submit() calls by outcome",
	}, []string{"monitor", "outcome"})

	// PollLoopDuration tracks the wall-clock duration of one Poller
	// iteration.
	PollLoopDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskmonitor_poll_loop_duration_seconds",
		Help:    "Duration of one poll cycle iteration",
		Buckets: prometheus.DefBuckets,
	}, []string{"monitor"})

	// TaskFaultsTotal counts faults escalated to the session, by source.
	TaskFaultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmonitor_task_faults_total",
		Help: "Total number of task faults escalated to the session",
	}, []string{"monitor", "source"})

	// TasksCompletedTotal counts handlers that reached a terminal state.
	TasksCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmonitor_tasks_completed_total",
		Help: "Total number of tasks that reached a terminal state",
	}, []string{"monitor", "outcome"})

	// SessionAborted reports whether a named session is currently aborted.
	SessionAborted = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taskmonitor_session_aborted",
		Help: "1 if the session has aborted, 0 otherwise",
	}, []string{"session"})
)

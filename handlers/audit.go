package handlers

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowlane/taskmonitor/monitor"
)

// AuditingHandler decorates another monitor.TaskHandler, persisting a row
// per lifecycle transition to Postgres. Grounded on store.PostgresStore's
// pgxpool.ParseConfig/NewWithConfig connection shape, adapted from a
// store implementation into a decorator around an arbitrary handler.
type AuditingHandler struct {
	monitor.TaskHandler
	pool  *pgxpool.Pool
	runID string
}

// NewAuditingHandler wraps inner, logging its lifecycle transitions under
// runID.
func NewAuditingHandler(inner monitor.TaskHandler, pool *pgxpool.Pool, runID string) *AuditingHandler {
	return &AuditingHandler{TaskHandler: inner, pool: pool, runID: runID}
}

func (h *AuditingHandler) record(ctx context.Context, event string, errText string) {
	_, err := h.pool.Exec(ctx,
		`INSERT INTO task_audit (run_id, task_id, event, err, at)
		 VALUES ($1, $2, $3, $4, $5)`,
		h.runID, h.Task().ID, event, errText, time.Now())
	if err != nil {
		// A failed audit write must never fail task progress; swallow
		// and move on.
		return
	}
}

func (h *AuditingHandler) Submit(ctx context.Context) error {
	err := h.TaskHandler.Submit(ctx)
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	h.record(ctx, "submit", errText)
	return err
}

func (h *AuditingHandler) CheckIfRunning(ctx context.Context) (bool, error) {
	running, err := h.TaskHandler.CheckIfRunning(ctx)
	if running {
		h.record(ctx, "running", "")
	}
	return running, err
}

func (h *AuditingHandler) CheckIfCompleted(ctx context.Context) (bool, error) {
	completed, err := h.TaskHandler.CheckIfCompleted(ctx)
	if completed {
		errText := ""
		if err != nil {
			errText = err.Error()
		}
		h.record(ctx, "complete", errText)
	}
	return completed, err
}

func (h *AuditingHandler) Kill(ctx context.Context) error {
	err := h.TaskHandler.Kill(ctx)
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	h.record(ctx, "kill", errText)
	return err
}

// Batch forwards to the wrapped handler's BatchAware implementation, if
// any, so decorating a batch-aware handler doesn't silently disable its
// poll coalescing. No-op when the wrapped handler isn't batch-aware.
func (h *AuditingHandler) Batch(bc *monitor.BatchContext) {
	if ba, ok := h.TaskHandler.(monitor.BatchAware); ok {
		ba.Batch(bc)
	}
}

// AttachCleanup forwards to the wrapped handler's GridAware implementation,
// if any.
func (h *AuditingHandler) AttachCleanup(c *monitor.BatchCleanup) {
	if ga, ok := h.TaskHandler.(monitor.GridAware); ok {
		ga.AttachCleanup(c)
	}
}

package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowlane/taskmonitor/monitor"
)

// RedisJobHandler dispatches a task as a Redis-backed job: a payload
// written under a job key, polled for a terminal status value. Grounded
// on store.RedisStore's client.NewClient/Ping connection idiom, adapted
// from distributed-lock operations to job dispatch.
type RedisJobHandler struct {
	task    *monitor.Task
	client  *redis.Client
	jobKey  string
	payload string

	mu          sync.Mutex
	submitted   bool
	runReported bool
	status      string // "", "running", "done", "failed"
}

const (
	statusRunning = "running"
	statusDone    = "done"
	statusFailed  = "failed"
)

// NewRedisJobHandler builds a handler dispatching payload under jobKey.
func NewRedisJobHandler(task *monitor.Task, client *redis.Client, jobKey, payload string) *RedisJobHandler {
	return &RedisJobHandler{task: task, client: client, jobKey: jobKey, payload: payload}
}

func (h *RedisJobHandler) Task() *monitor.Task { return h.task }

func (h *RedisJobHandler) statusKey() string {
	return fmt.Sprintf("taskmonitor:job:%s:status", h.jobKey)
}

// Submit writes the job payload and an initial "running" status, then
// returns immediately. The actual work is expected to be picked up and
// executed by a separate worker population consuming jobKey; this
// handler only tracks status.
func (h *RedisJobHandler) Submit(ctx context.Context) error {
	pipe := h.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf("taskmonitor:job:%s:payload", h.jobKey), h.payload, time.Hour)
	pipe.Set(ctx, h.statusKey(), statusRunning, time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	h.submitted = true
	h.mu.Unlock()
	return nil
}

// CheckIfRunning reports the submitted transition exactly once.
func (h *RedisJobHandler) CheckIfRunning(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.submitted || h.runReported {
		return false, nil
	}
	h.runReported = true
	return true, nil
}

// CheckIfCompleted resolves a status cached by Batch's MGET if there is
// one, and otherwise issues its own GET on the status key (see Batch for
// which handlers get a cached status).
func (h *RedisJobHandler) CheckIfCompleted(ctx context.Context) (bool, error) {
	h.mu.Lock()
	cached := h.status
	h.mu.Unlock()
	if cached != "" {
		return h.resolve(cached)
	}

	status, err := h.client.Get(ctx, h.statusKey()).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return h.resolve(status)
}

func (h *RedisJobHandler) resolve(status string) (bool, error) {
	switch status {
	case statusDone:
		return true, nil
	case statusFailed:
		return true, fmt.Errorf("job %s reported failed status", h.jobKey)
	default:
		return false, nil
	}
}

// Batch implements monitor.BatchAware: it registers this handler's status
// key in the shared per-cycle BatchContext. The first RedisJobHandler to
// be attached for a given BatchContext issues an MGET over the keys
// registered so far and caches each result on its handler. The Poller
// attaches handlers one at a time, so at that moment the context holds
// only the first handler's own key: the MGET refreshes that handler's
// status alone, and handlers attached after it do not issue an MGET and
// fall back to their own GET in CheckIfCompleted.
func (h *RedisJobHandler) Batch(bc *monitor.BatchContext) {
	bc.Add(h.statusKey(), h)

	if _, done := bc.Get("__mget_done"); done {
		return
	}

	keys := bc.Keys()
	bc.Add("__mget_done", true)
	ctx := context.Background()
	results, err := h.client.MGet(ctx, keys...).Result()
	if err != nil {
		return
	}
	for i, key := range keys {
		handler, ok := bc.Get(key)
		if !ok {
			continue
		}
		rjh, ok := handler.(*RedisJobHandler)
		if !ok {
			continue
		}
		if i >= len(results) || results[i] == nil {
			continue
		}
		status, ok := results[i].(string)
		if !ok {
			continue
		}
		rjh.mu.Lock()
		rjh.status = status
		rjh.mu.Unlock()
	}
}

func (h *RedisJobHandler) Kill(ctx context.Context) error {
	return h.client.Set(ctx, h.statusKey(), statusFailed, time.Hour).Err()
}

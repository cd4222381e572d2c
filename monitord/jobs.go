package main

import (
	"encoding/json"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/flowlane/taskmonitor/handlers"
	"github.com/flowlane/taskmonitor/monitor"
)

// jobServer accepts job submissions over HTTP and schedules them on a
// Monitor as RedisJobHandlers, optionally wrapped in an AuditingHandler
// when a Postgres pool is configured.
type jobServer struct {
	mon         *monitor.Monitor
	redis       *redis.Client
	auditPool   *pgxpool.Pool
	runID       string
	faultPolicy monitor.FaultPolicy
}

type submitJobRequest struct {
	JobKey  string `json:"jobKey"`
	Payload string `json:"payload"`
}

func (s *jobServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.JobKey == "" {
		http.Error(w, "jobKey is required", http.StatusBadRequest)
		return
	}

	task := monitor.NewTask(req.JobKey, s.faultPolicy)
	var h monitor.TaskHandler = handlers.NewRedisJobHandler(task, s.redis, req.JobKey, req.Payload)
	if s.auditPool != nil {
		h = handlers.NewAuditingHandler(h, s.auditPool, s.runID)
	}

	s.mon.Schedule(h)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "scheduled", "jobKey": req.JobKey})
}

// Package handlers provides concrete monitor.TaskHandler backends: local
// OS processes, Redis-dispatched jobs, and a Postgres-backed auditing
// decorator.
package handlers

import (
	"context"
	"errors"
	"os/exec"
	"sync"

	"github.com/flowlane/taskmonitor/monitor"
)

// ProcessHandler runs a single OS process as a task, built directly on
// the standard library since process execution has no third-party
// wrapper worth reaching for here.
type ProcessHandler struct {
	task *monitor.Task
	name string
	args []string

	mu          sync.Mutex
	cmd         *exec.Cmd
	started     bool
	runReported bool
	exited      bool
	exitErr     error
}

// NewProcessHandler builds a handler for running name with args. task
// must be non-nil; pass monitor.NewTask(id, policy) to build one.
func NewProcessHandler(task *monitor.Task, name string, args ...string) *ProcessHandler {
	return &ProcessHandler{task: task, name: name, args: args}
}

func (h *ProcessHandler) Task() *monitor.Task { return h.task }

// Submit starts the process without blocking on completion: exec.Cmd.Start
// returns once the process has forked, not once it has exited.
func (h *ProcessHandler) Submit(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	cmd := exec.CommandContext(ctx, h.name, h.args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	h.cmd = cmd
	h.started = true

	go func() {
		err := cmd.Wait()
		h.mu.Lock()
		h.exited = true
		h.exitErr = err
		h.mu.Unlock()
	}()

	return nil
}

// CheckIfRunning reports the started transition exactly once: subsequent
// calls return false even while the process is still running, since the
// caller only needs the edge to fire a start notification once.
func (h *ProcessHandler) CheckIfRunning(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started || h.runReported {
		return false, nil
	}
	h.runReported = true
	return true, nil
}

func (h *ProcessHandler) CheckIfCompleted(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.exited {
		return false, nil
	}
	if h.exitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(h.exitErr, &exitErr) {
			// Non-zero exit is a completed-with-failure task, not a
			// status-check error: report completed and let the caller
			// inspect ExitErr for the failure detail.
			return true, nil
		}
		return true, h.exitErr
	}
	return true, nil
}

// ExitErr returns the process's wait error, if any, once completed.
func (h *ProcessHandler) ExitErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

func (h *ProcessHandler) Kill(ctx context.Context) error {
	h.mu.Lock()
	cmd := h.cmd
	h.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

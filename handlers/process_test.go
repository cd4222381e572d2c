package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlane/taskmonitor/monitor"
)

func TestProcessHandlerSuccessfulExit(t *testing.T) {
	task := monitor.NewTask("p1", nil)
	h := NewProcessHandler(task, "sh", "-c", "exit 0")

	require.NoError(t, h.Submit(context.Background()))

	require.Eventually(t, func() bool {
		completed, err := h.CheckIfCompleted(context.Background())
		return completed && err == nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.NoError(t, h.ExitErr())
}

func TestProcessHandlerNonZeroExit(t *testing.T) {
	task := monitor.NewTask("p2", nil)
	h := NewProcessHandler(task, "sh", "-c", "exit 7")

	require.NoError(t, h.Submit(context.Background()))

	require.Eventually(t, func() bool {
		completed, err := h.CheckIfCompleted(context.Background())
		return completed && err == nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Error(t, h.ExitErr(), "a non-zero exit is reported as completed-with-failure via ExitErr, not a status-check error")
}

func TestProcessHandlerKill(t *testing.T) {
	task := monitor.NewTask("p3", nil)
	h := NewProcessHandler(task, "sh", "-c", "sleep 5")

	require.NoError(t, h.Submit(context.Background()))

	running, err := h.CheckIfRunning(context.Background())
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, h.Kill(context.Background()))

	require.Eventually(t, func() bool {
		completed, _ := h.CheckIfCompleted(context.Background())
		return completed
	}, 2*time.Second, 10*time.Millisecond)
}

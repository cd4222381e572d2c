package diagnostics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottlerAllowsOncePerInterval(t *testing.T) {
	th := NewThrottler(50 * time.Millisecond)

	assert.True(t, th.Allow("mon-1"), "first call for a fresh key must be allowed")
	assert.False(t, th.Allow("mon-1"), "second call within the interval must be throttled")

	time.Sleep(60 * time.Millisecond)
	assert.True(t, th.Allow("mon-1"), "call after the interval elapses must be allowed again")
}

func TestThrottlerKeysAreIndependent(t *testing.T) {
	th := NewThrottler(time.Minute)

	assert.True(t, th.Allow("a"))
	assert.True(t, th.Allow("b"), "a separate key must have its own bucket")
	assert.False(t, th.Allow("a"))
}

package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	now := time.Now()
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))

	// other clients have their own budget
	assert.True(t, rl.Allow("5.6.7.8"))

	// hits fall out of the window
	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestRateLimiterDropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	now := time.Now()
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))

	// a window later, another client's request sweeps the idle entry away
	now = now.Add(2 * time.Minute)
	assert.True(t, rl.Allow("5.6.7.8"))

	rl.mu.Lock()
	_, stale := rl.hits["1.2.3.4"]
	entries := len(rl.hits)
	rl.mu.Unlock()

	assert.False(t, stale)
	assert.Equal(t, 1, entries)
}

package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRateLimiterRefillsAndSweeps(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(rate.Limit(1), 1)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))

	now = now.Add(time.Second)
	assert.True(t, rl.allow("a"), "one token refills per second")

	now = now.Add(10 * time.Minute)
	rl.allow("b")
	assert.NotContains(t, rl.limiters, "a", "idle limiters are swept")
	assert.Contains(t, rl.limiters, "b")
}

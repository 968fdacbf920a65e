package warden

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	r := newRateLimiter(1, 2)
	r.now = func() time.Time { return clock }

	assert.True(t, r.Allow("a"))
	assert.True(t, r.Allow("a"))
	assert.False(t, r.Allow("a"), "burst spent")
	assert.True(t, r.Allow("b"), "users have separate buckets")

	clock = clock.Add(time.Second)
	assert.True(t, r.Allow("a"))
	assert.False(t, r.Allow("a"))
}

func TestRateLimiterPrune(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	r := newRateLimiter(1, 1)
	r.now = func() time.Time { return clock }

	r.Allow("old")
	clock = clock.Add(time.Hour)
	r.Allow("new")

	assert.Equal(t, 1, r.prune(time.Minute))
	assert.Len(t, r.users, 1)
	assert.Contains(t, r.users, "new")
}

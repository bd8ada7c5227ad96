package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterCheck(t *testing.T) {
	rl := NewRateLimiter()

	v := rl.Check("scan:u1", 3, time.Minute)
	assert.True(t, v.Allowed)
	assert.Equal(t, 2, v.Remaining)

	v = rl.Check("scan:u1", 3, time.Minute)
	assert.True(t, v.Allowed)
	assert.Equal(t, 1, v.Remaining)

	v = rl.Check("scan:u1", 3, time.Minute)
	assert.True(t, v.Allowed)
	assert.Equal(t, 0, v.Remaining)

	v = rl.Check("scan:u1", 3, time.Minute)
	assert.False(t, v.Allowed)
	assert.Equal(t, 0, v.Remaining)
	assert.False(t, v.ResetAt.IsZero())

	// Keys are independent.
	v = rl.Check("scan:u2", 3, time.Minute)
	assert.True(t, v.Allowed)
}

func TestRateLimiterWindowRollover(t *testing.T) {
	rl := NewRateLimiter()

	v := rl.Check("register:1.2.3.4", 1, 10*time.Millisecond)
	assert.True(t, v.Allowed)
	v = rl.Check("register:1.2.3.4", 1, 10*time.Millisecond)
	assert.False(t, v.Allowed)

	time.Sleep(15 * time.Millisecond)

	v = rl.Check("register:1.2.3.4", 1, 10*time.Millisecond)
	assert.True(t, v.Allowed)
}

func TestRateLimiterEvict(t *testing.T) {
	rl := NewRateLimiter()

	rl.Check("a", 5, 10*time.Millisecond)
	rl.Check("b", 5, 10*time.Millisecond)
	rl.Check("c", 5, time.Hour)
	assert.Equal(t, 3, rl.Size())

	evicted := rl.Evict(time.Now().Add(20 * time.Millisecond))
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 1, rl.Size())
}

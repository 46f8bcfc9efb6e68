package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowInitial(t *testing.T) {
	assert.True(t, NewRateLimiter(0, 0).Allow("192.168.1.1:1234"))
}

func TestRateLimiter_BlockAfterMaxFailures(t *testing.T) {
	l := NewRateLimiter(time.Minute, 3)
	for i := 0; i < 2; i++ {
		l.RecordFailure("192.168.1.1:1234")
	}
	assert.True(t, l.Allow("192.168.1.1:9999"))

	l.RecordFailure("192.168.1.1:1234")
	assert.False(t, l.Allow("192.168.1.1:9999"), "port is ignored")
	assert.True(t, l.Allow("192.168.1.2:1234"))
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(time.Minute, 1)
	l.now = func() time.Time { return now }

	l.RecordFailure("10.0.0.1")
	assert.False(t, l.Allow("10.0.0.1"))

	now = now.Add(2 * time.Minute)
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestRateLimiter_Reset(t *testing.T) {
	l := NewRateLimiter(time.Minute, 1)
	l.RecordFailure("10.0.0.1:1")
	assert.False(t, l.Allow("10.0.0.1:1"))
	l.Reset("10.0.0.1:2")
	assert.True(t, l.Allow("10.0.0.1:1"))
}

func TestRateLimiter_Sweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(time.Minute, 5)
	l.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		l.RecordFailure(fmt.Sprintf("10.0.0.%d", i))
	}
	now = now.Add(time.Hour)
	l.sweep()
	assert.Empty(t, l.failures)
}

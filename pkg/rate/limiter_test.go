package rate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestNoLimiter(t *testing.T) {
	var l NoLimiter
	for i := 0; i < 1000; i++ {
		allowed, err := l.Allow("recipient@example.com")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestLocalRateLimiter(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(3))

	for _, key := range []string{"a@example.com", "b@example.com"} {
		for i := 0; i < 3; i++ {
			allowed, err := l.Allow(key)
			assert.NoError(t, err)
			assert.True(t, allowed)
		}

		allowed, err := l.Allow(key)
		assert.NoError(t, err)
		assert.False(t, allowed)
	}
}

func TestLocalRateLimiter_FractionalLimit(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(0.5))

	allowed, _ := l.Allow("key")
	assert.True(t, allowed)

	allowed, _ = l.Allow("key")
	assert.False(t, allowed)
}

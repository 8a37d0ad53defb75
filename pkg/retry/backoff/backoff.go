// Package backoff provides delay functions used by retry strategies.
package backoff

import (
	"math"
	"time"
)

// Strategy returns how long to wait after the given attempt. Attempts are
// counted from 1.
type Strategy func(attempts uint) time.Duration

// Constant waits the same interval after every attempt.
func Constant(interval time.Duration) Strategy {
	return func(uint) time.Duration {
		return interval
	}
}

// Linear grows the delay by baseDelay per attempt: 1x, 2x, 3x, ...
func Linear(baseDelay time.Duration) Strategy {
	return func(attempts uint) time.Duration {
		return clamp(baseDelay * time.Duration(attempts))
	}
}

// Exponential multiplies the delay by base per attempt, starting from
// baseDelay on the first attempt.
func Exponential(baseDelay time.Duration, base float64) Strategy {
	return func(attempts uint) time.Duration {
		return clamp(baseDelay * time.Duration(math.Pow(base, float64(attempts-1))))
	}
}

// BinaryExponential doubles the delay after every attempt.
func BinaryExponential(baseDelay time.Duration) Strategy {
	return Exponential(baseDelay, 2)
}

// clamp guards against overflow into negative durations.
func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return math.MaxInt64
	}
	return d
}

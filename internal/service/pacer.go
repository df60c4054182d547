package service

import (
	"time"

	"golang.org/x/time/rate"
)

// NewPacer token bucket shared by every run: one remote call per interval, bursts up to burst.
// A zero interval never waits.
func NewPacer(interval time.Duration, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Every(interval), burst)
}

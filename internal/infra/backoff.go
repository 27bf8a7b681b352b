package infra

import (
	"time"
)

const (
	// Cap for any single message log retry delay
	maxRetryDelay = 2 * time.Second
)

// CalculateBackoff returns the exponential backoff duration for a given retry count.
// Logic: base * 2^retryCount, capped at maxRetryDelay.
// If retryCount is negative, it returns base.
func CalculateBackoff(base time.Duration, retryCount int) time.Duration {
	if base <= 0 {
		return 0
	}
	if retryCount < 0 {
		return base
	}

	// 2^30 of any positive base is already past the cap.
	if retryCount > 30 {
		return maxRetryDelay
	}

	backoff := base * time.Duration(1<<retryCount)

	if backoff > maxRetryDelay || backoff <= 0 {
		return maxRetryDelay
	}

	return backoff
}

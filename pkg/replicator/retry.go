package replicator

import "time"

// Retry policy. Pure functions, no shared state: the controller feeds in an
// error classification and its attempt counter and gets back eligibility and
// delay.

const (
	// maxOneShotAttempts caps transient retries for one-shot sessions
	maxOneShotAttempts = 2
	// maxRetryDelay caps the exponential backoff
	maxRetryDelay = 10 * time.Minute
	// maxBackoffExponent clamps the exponent so the shift never overflows
	maxBackoffExponent = 30
)

// isRetryable reports whether a session that stopped with an error of the
// given kind should be retried.
//
// Transient errors are always retryable under continuous mode; one-shot
// sessions retry at most maxOneShotAttempts times. Network-dependent errors
// are retryable only under continuous mode (one-shot sessions with network
// errors terminate immediately - they are not retried by timer, and no
// reachability observer is armed for them).
func isRetryable(kind ErrorKind, continuous bool, attemptCount int) bool {
	switch kind {
	case ErrorTransient:
		if continuous {
			return true
		}
		return attemptCount < maxOneShotAttempts
	case ErrorNetwork:
		return continuous
	default:
		return false
	}
}

// retryDelay computes the backoff delay before the given attempt:
// min(2^attemptCount seconds, 10 minutes).
func retryDelay(attemptCount int) time.Duration {
	if attemptCount < 0 {
		attemptCount = 0
	}
	if attemptCount > maxBackoffExponent {
		attemptCount = maxBackoffExponent
	}

	d := time.Duration(1<<uint(attemptCount)) * time.Second
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

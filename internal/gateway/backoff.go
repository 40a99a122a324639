package gateway

import "time"

// maxBackoffFactor caps the exponential reconnect delay at 30x the base,
// which with the default 1s base gives the 30s ceiling.
const maxBackoffFactor = 30

// BackoffDelay returns the reconnect delay after the given attempt:
// min(30*base, base*2^attempt). The attempt counter resets to zero only after
// a successful open.
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	ceiling := maxBackoffFactor * base
	if attempt >= 31 {
		return ceiling
	}
	delay := base << uint(attempt)
	if delay > ceiling || delay <= 0 {
		return ceiling
	}
	return delay
}

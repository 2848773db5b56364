package session

import (
	"sync"
	"time"
)

// DefaultRetryInterval is the reconnection delay used when the
// configuration does not specify one.
const DefaultRetryInterval = 1 * time.Second

// RetryPolicy produces the delay before each reconnection attempt.
// The interval is constant across retries: a peer that is down stays
// polled at a steady cadence, and a reconnect does not shrink or grow
// the delay of the next failure.
type RetryPolicy struct {
	mu sync.Mutex

	interval time.Duration
	attempts int
}

// NewRetryPolicy creates a retry policy with the given fixed interval.
// A non-positive interval selects DefaultRetryInterval.
func NewRetryPolicy(interval time.Duration) *RetryPolicy {
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	return &RetryPolicy{interval: interval}
}

// Next returns the delay before the next attempt and advances the
// attempt counter.
func (r *RetryPolicy) Next() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	return r.interval
}

// Interval returns the fixed retry interval.
func (r *RetryPolicy) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

// Attempts returns the number of attempts since the last reset.
func (r *RetryPolicy) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// Reset clears the attempt counter. Called after a successful
// handshake.
func (r *RetryPolicy) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = 0
}

package infra

import "time"

// Backoff computes exponential reconnect delays: base * 2^retry, capped.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff covers stream reconnects: 1s doubling up to 60s.
func DefaultBackoff() Backoff {
	return Backoff{Base: 1 * time.Second, Max: 60 * time.Second}
}

// Delay returns the backoff duration for the given retry count. Negative
// counts yield the base delay.
func (b Backoff) Delay(retry int) time.Duration {
	if retry < 0 {
		return b.Base
	}
	// 2^30 seconds already exceeds any sane cap.
	if retry > 30 {
		return b.Max
	}
	d := b.Base * time.Duration(1<<retry)
	if d > b.Max {
		return b.Max
	}
	return d
}

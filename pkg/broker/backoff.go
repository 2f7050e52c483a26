package broker

import "time"

// backoff produces the reconnect wait sequence: the Nth consecutive failure
// waits min(initial * 2^(N-1), max); a successful connection resets it.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) backoff {
	return backoff{initial: initial, max: max, current: initial}
}

// Next returns the wait for this failure and advances the sequence.
func (b *backoff) Next() time.Duration {
	d := b.current
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Reset restores the initial delay after a successful connection.
func (b *backoff) Reset() {
	b.current = b.initial
}

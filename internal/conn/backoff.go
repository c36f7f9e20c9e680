package conn

import "time"

const (
	initialReconnectDelay = 5 * time.Second
	reconnectMultiplier   = 1.5
	maxReconnectDelay     = 2400 * time.Second
)

// Backoff tracks the current reconnect delay: starts at 5s, multiplies by
// 1.5 on every failure, capped at 2400s, and resets to 5s after a
// successful Active transition.
type Backoff struct {
	current time.Duration
}

// NewBackoff returns a Backoff at its initial delay.
func NewBackoff() *Backoff {
	return &Backoff{current: initialReconnectDelay}
}

// Next returns the delay to wait before the next reconnect attempt and
// advances the internal state for the attempt after that.
func (b *Backoff) Next() time.Duration {
	d := b.current
	next := time.Duration(float64(b.current) * reconnectMultiplier)
	if next > maxReconnectDelay {
		next = maxReconnectDelay
	}
	b.current = next
	return d
}

// Reset returns the delay to its initial value.
func (b *Backoff) Reset() {
	b.current = initialReconnectDelay
}

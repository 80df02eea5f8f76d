package fetch

import (
	"errors"
	"sync"
	"time"
)

// ErrUpstreamDown is returned while the breaker refuses calls to a
// failing remote service.
var ErrUpstreamDown = errors.New("fetch: upstream unavailable")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// Breaker guards a remote service. After tripThreshold consecutive
// failures it rejects calls for cooldown, then lets a single probe
// through; a successful probe closes it again.
type Breaker struct {
	tripThreshold int
	cooldown      time.Duration

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a breaker. Zero values get sane defaults.
func NewBreaker(tripThreshold int, cooldown time.Duration) *Breaker {
	if tripThreshold <= 0 {
		tripThreshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{tripThreshold: tripThreshold, cooldown: cooldown}
}

// Do runs fn unless the breaker is open.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, ErrUpstreamDown
	}
	result, err := fn()
	b.record(err == nil)
	return result, err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return true
	case stateOpen:
		if time.Since(b.openedAt) >= b.cooldown {
			b.state = stateHalfOpen
			b.probing = true
			return true
		}
		return false
	case stateHalfOpen:
		// One probe at a time.
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.probing = false
		if success {
			b.state = stateClosed
			b.failures = 0
		} else {
			b.state = stateOpen
			b.openedAt = time.Now()
		}
		return
	}

	if success {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.tripThreshold {
		b.state = stateOpen
		b.openedAt = time.Now()
	}
}

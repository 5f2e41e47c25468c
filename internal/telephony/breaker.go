package telephony

import (
	"errors"
	"sync"
	"time"
)

// ErrAPIUnavailable is returned without issuing a request while the breaker
// is open after repeated Twilio API failures.
var ErrAPIUnavailable = errors.New("telephony: api unavailable, retry later")

const (
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 30 * time.Second
)

// breaker trips after consecutive transport or server failures and rejects
// requests until the cooldown elapses. One probe request is then allowed
// through; its outcome decides whether the breaker closes or re-opens.
// Rejected requests and 4xx responses do not count as failures since the
// service answered.
type breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probing  bool
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	if threshold <= 0 {
		threshold = defaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	return &breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// allow reports whether a request may be issued now.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return nil
	}
	if b.now().Sub(b.openedAt) < b.cooldown {
		return ErrAPIUnavailable
	}
	if b.probing {
		return ErrAPIUnavailable
	}
	b.probing = true
	return nil
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.openedAt = b.now()
		b.probing = false
	}
}

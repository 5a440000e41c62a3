package orchestrator

import (
	"math"
	"math/rand"
	"time"

	"github.com/sagarpkr/multipost/internal/publisher"
)

// RetryPolicy decides whether a failed attempt is worth repeating and how
// long to back off first. The zero value gets the stock defaults.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64 // 0.2 = ±20%
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 2 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 60 * time.Second
	}
	if p.Jitter <= 0 {
		p.Jitter = 0.2
	}
	return p
}

// Decide reports whether to retry after `attempts` completed attempts ended
// in an error of the given kind, and the delay before the next one.
// Permanent errors stop immediately regardless of the attempt count.
func (p RetryPolicy) Decide(kind publisher.ErrorKind, attempts int) (time.Duration, bool) {
	p = p.withDefaults()

	if kind == publisher.KindPermanent {
		return 0, false
	}
	if attempts >= p.MaxAttempts {
		return 0, false
	}

	delay := time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attempts)))
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	// Spread retries out so simultaneous failures don't reconverge.
	factor := 1 + p.Jitter*(2*rand.Float64()-1)
	return time.Duration(float64(delay) * factor), true
}

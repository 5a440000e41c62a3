package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarpkr/multipost/internal/publisher"
)

func TestRetryPermanentNeverRetries(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second}

	for attempts := 0; attempts < 5; attempts++ {
		_, retry := p.Decide(publisher.KindPermanent, attempts)
		assert.False(t, retry, "attempts=%d", attempts)
	}
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}

	_, retry := p.Decide(publisher.KindTransient, 2)
	assert.True(t, retry)

	_, retry = p.Decide(publisher.KindTransient, 3)
	assert.False(t, retry)

	_, retry = p.Decide(publisher.KindTransient, 10)
	assert.False(t, retry)
}

func TestRetryBackoffDoublesWithinJitterBounds(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: time.Hour, Jitter: 0.2}

	for attempts := 1; attempts <= 4; attempts++ {
		expected := time.Duration(float64(time.Second) * float64(int(1)<<attempts))
		delay, retry := p.Decide(publisher.KindTransient, attempts)
		require.True(t, retry)
		assert.GreaterOrEqual(t, delay, time.Duration(float64(expected)*0.8), "attempts=%d", attempts)
		assert.LessOrEqual(t, delay, time.Duration(float64(expected)*1.2), "attempts=%d", attempts)
	}
}

func TestRetryDelayCapped(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 20, BaseDelay: time.Second, MaxDelay: 5 * time.Second, Jitter: 0.2}

	delay, retry := p.Decide(publisher.KindTransient, 10)
	require.True(t, retry)
	assert.LessOrEqual(t, delay, time.Duration(float64(5*time.Second)*1.2))
}

func TestRetryZeroValueDefaults(t *testing.T) {
	p := RetryPolicy{}.withDefaults()

	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 2*time.Second, p.BaseDelay)
	assert.Equal(t, 60*time.Second, p.MaxDelay)
	assert.Equal(t, 0.2, p.Jitter)
}

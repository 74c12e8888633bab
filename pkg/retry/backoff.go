package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// exponential builds the backoff schedule for p. A zero MaxElapsedTime
// leaves the schedule bounded by MaxAttempts only.
func (p Policy) exponential() *backoff.ExponentialBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.Multiplier = p.Multiplier
	exp.MaxElapsedTime = p.MaxElapsedTime
	exp.Reset()
	return exp
}

// delay is the nominal wait before retry number attempt, without jitter.
// Only used for logging.
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxInterval) {
		return p.MaxInterval
	}
	return time.Duration(d)
}

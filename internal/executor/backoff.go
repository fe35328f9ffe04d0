package executor

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes the delay before retry attempts: base doubled per
// attempt, capped, with optional jitter. Jitter defaults to zero so retry
// timing is reproducible unless explicitly enabled.
type Backoff struct {
	Base   time.Duration
	Cap    time.Duration
	Jitter float64 // 0-1 fraction of the delay
}

// Delay returns the wait before the given attempt number (1-based), i.e.
// base × 2^(attempt−1) capped at Cap.
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 || attempt <= 0 {
		return 0
	}

	d := float64(b.Base) * math.Pow(2, float64(attempt-1))
	if b.Cap > 0 && d > float64(b.Cap) {
		d = float64(b.Cap)
	}

	if b.Jitter > 0 {
		span := d * b.Jitter
		d += (rand.Float64()*2 - 1) * span
		if d < 0 {
			d = float64(b.Base)
		}
	}

	return time.Duration(d)
}

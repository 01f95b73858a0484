package interfaces

import (
	"context"
	"time"
)

// RateLimiter defines the interface for platform API call budgeting.
// Implementations share usage across workers, so after Acquire returns
// the caller is guaranteed not to push the platform past its window.
type RateLimiter interface {
	// Acquire blocks until weight call slots are available for the
	// platform, serving concurrent waiters in FIFO order by wait start.
	// It returns how long the caller was delayed.
	// Returns models.ErrRateExceededDaily when the platform's daily cap
	// is exhausted; the sync must stop until the day rolls over.
	Acquire(ctx context.Context, platformCode string, weight int) (time.Duration, error)
}

// Package retry holds the backoff policy for transient API failures. It is a
// pure function of the attempt count and the failure kind, independent of
// any transport.
package retry

import (
	"context"
	"time"

	"evsched/internal/apierr"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

func Default() Policy {
	return Policy{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultBaseDelay}
}

// Next decides whether the request that just failed with kind should be
// replayed, given how many retries were already made. The delay doubles per
// retry starting at BaseDelay.
func (p Policy) Next(retries int, kind apierr.Kind) (time.Duration, bool) {
	if !kind.Retryable() || retries < 0 || retries >= p.MaxRetries {
		return 0, false
	}
	return p.BaseDelay << uint(retries), true
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

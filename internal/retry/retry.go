// Package retry wraps transient-failure recovery for calls into the
// scanner backend, adapting the shape of the teacher's
// connectivity/retry.go (a hand-rolled doubling backoff loop) onto
// github.com/cenkalti/backoff/v4, which the rest of the retrieved pack
// already depends on.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures WithBackoff.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultPolicy starts retrying after 100ms, backs off to at most 2s
// between attempts, and gives up after 10s in total. That budget is not
// tied to the poll interval: a persistently failing backend call can hold
// the Result Poller's pass for up to 10s.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsedTime:  10 * time.Second,
	}
}

// WithBackoff runs op, retrying on any returned error per p until op
// succeeds, ctx is canceled, or the elapsed-time budget is exhausted.
func WithBackoff(ctx context.Context, p Policy, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.MaxElapsedTime
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

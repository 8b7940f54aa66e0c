package backend

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ingestlab/ingest-harness/internal/schema"
)

// sendWithRetry implements the retry policy: on RateLimited, sleep
// retry_after+Extra then retry up to policy.MaxAttempts total attempts;
// every other error is wrapped in backoff.Permanent and fails fast.
func sendWithRetry(ctx context.Context, policy RetryPolicy, do func(context.Context) (schema.Message, error)) (schema.Message, error) {
	var result schema.Message
	attempt := 0
	bo := &rateLimitBackOff{extra: policy.Extra}

	op := func() error {
		attempt++
		msg, err := do(ctx)
		if err == nil {
			result = msg
			return nil
		}
		be, ok := err.(*Error)
		if !ok || be.Code != RateLimited {
			return backoff.Permanent(err)
		}
		if attempt >= policy.MaxAttempts {
			return backoff.Permanent(err)
		}
		bo.next = be.RetryAfter + policy.Extra
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(bo, ctx))
	return result, err
}

// rateLimitBackOff derives its next interval from the most recent
// RateLimited error's own RetryAfter rather than an exponential curve: the
// wait is whatever the client put in RetryAfter.
type rateLimitBackOff struct {
	extra time.Duration
	next  time.Duration
}

func (b *rateLimitBackOff) NextBackOff() time.Duration {
	if b.next > 0 {
		return b.next
	}
	return b.extra
}

func (b *rateLimitBackOff) Reset() {}

package backend

import (
	"context"
	"time"

	"github.com/ingestlab/ingest-harness/internal/schema"
)

// SendRequest is the polymorphic payload a caller hands to Send. Exactly one
// of the kind-specific fields is meaningful, matching Kind.
type SendRequest struct {
	ChannelID string
	Kind      schema.MessageKind

	Text string

	// Caption applies to every media kind.
	Caption string

	// FileID references a file handle already known to the backend
	// (reference-send). Mutually exclusive with LocalPath.
	FileID string

	// LocalPath uploads a local binary asset (upload-send). Mutually
	// exclusive with FileID.
	LocalPath string
	FileName  string
}

// Client is the capability set the Fixture Populator and Integration Runner
// drive the external messaging backend through: send-text,
// send-referenced-media, upload-local-media, delete-message.
type Client interface {
	// Send dispatches req and returns the backend-assigned message id plus
	// the echoed message document, suitable for writing straight into a
	// Fixture.
	Send(ctx context.Context, req SendRequest) (schema.Message, error)

	// DeleteMessage removes a previously sent message, used by the
	// Populator's force-mode teardown sweep.
	DeleteMessage(ctx context.Context, channelID string, messageID int64) error

	// PollNotifications returns every message received on channelID since
	// the last poll (or since afterMessageID if non-zero), used by the
	// Integration Runner to watch the test notification channel.
	PollNotifications(ctx context.Context, channelID string, afterMessageID int64) ([]schema.Message, error)
}

// RetryPolicy governs the Send retry loop: on RateLimited, sleep
// retryAfter+Extra then retry, up to MaxAttempts total attempts. Any other
// error fails fast (no retry).
type RetryPolicy struct {
	MaxAttempts int
	Extra       time.Duration
}

// DefaultRetryPolicy sleeps retry_after + 1s between attempts, up to three
// total attempts.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Extra: time.Second}

// PacerInterval is the fixed minimum inter-message gap the client enforces
// on every send to preempt rate limiting during bulk populate.
const PacerInterval = 2 * time.Second

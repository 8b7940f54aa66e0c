// Package backend implements the Messaging Backend Client: a thin,
// retry-aware wrapper over the Telegram Bot API used to populate fixtures
// and to forward them into the test input channel.
package backend

import (
	"fmt"
	"time"
)

// ErrorCode closes the set of error kinds the backend client surfaces.
type ErrorCode string

const (
	RateLimited     ErrorCode = "RateLimited"
	PayloadRejected ErrorCode = "PayloadRejected"
	NetworkError    ErrorCode = "NetworkError"
	Unauthorized    ErrorCode = "Unauthorized"
	NotFound        ErrorCode = "NotFound"
)

// Error is the typed error every Client operation returns on failure.
type Error struct {
	Code       ErrorCode
	Message    string
	RetryAfter time.Duration // only meaningful when Code == RateLimited
}

func (e *Error) Error() string {
	if e.Code == RateLimited {
		return fmt.Sprintf("%s: %s (retry after %s)", e.Code, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is a *Error of the given code.
func IsCode(err error, code ErrorCode) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}

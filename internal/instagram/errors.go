package instagram

import (
	"errors"
	"fmt"
)

// Error codes for the publishing protocol. The set is closed; transport
// status mapping happens at the HTTP boundary, retry classification in the
// worker.
const (
	CodeNotConnected        = "not_connected"
	CodeTokenExpired        = "token_expired"
	CodeInvalidCarouselSize = "invalid_carousel_size"
	CodeContainerFailed     = "container_failed"
	CodeMediaTimeout        = "media_processing_timeout"
	CodeRateLimited         = "rate_limited"
	CodePlatformError       = "platform_error"
)

// Error is a typed publishing failure. Transient errors are eligible for
// the job retry path; the rest fail immediately without consuming a retry.
type Error struct {
	Code      string
	Message   string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Errf(code string, transient bool, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Transient: transient}
}

// ErrorCode extracts the protocol error code, or "" for foreign errors.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsTransient reports whether the error is a retryable protocol failure.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Transient
}

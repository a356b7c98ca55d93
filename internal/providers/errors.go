package providers

import "fmt"

// Error codes form a closed set; the boundary layers map them to HTTP
// statuses, the worker maps them to retry decisions.
const (
	CodeTokenExpired    = "token_expired"
	CodeRateLimited     = "rate_limited"
	CodeProviderTimeout = "provider_timeout"
	CodeProviderFailure = "provider_failure"
	CodeContentRejected = "content_rejected"
)

// Error is a typed provider failure with a stable code. IsTransient
// decides whether the job retry path applies.
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

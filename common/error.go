package common

import "fmt"

type APIError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"error"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func (e APIError) Error() string {
	return e.Message
}

func Errf(status int, format string, args ...any) APIError {
	return APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// NewAPIError creates an APIError with status, message, and optional fields
func NewAPIError(status int, message string, fields map[string]any) APIError {
	return APIError{
		Status:  status,
		Message: message,
		Fields:  fields,
	}
}

// CodedErrf creates an APIError carrying a stable machine-readable code
// alongside the human message.
func CodedErrf(status int, code string, format string, args ...any) APIError {
	return APIError{Status: status, Code: code, Message: fmt.Sprintf(format, args...)}
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the bridge failure taxonomy. MALFORMED_PAYLOAD
// and FORMATTING_REJECTED are permanent per message; TRANSIENT is the
// only class the retry loop is allowed to re-attempt.
var (
	ErrMalformedPayload   = NewError("MALFORMED_PAYLOAD", "payload does not parse as a known message variant", http.StatusBadRequest)
	ErrFormattingRejected = NewError("FORMATTING_REJECTED", "remote API rejected formatted markup", http.StatusBadRequest)
	ErrTransient          = NewError("TRANSIENT", "transient network failure", http.StatusServiceUnavailable)
	ErrInternal           = NewError("INTERNAL_ERROR", "internal error", http.StatusInternalServerError)
	ErrNotFound           = NewError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrTimeout            = NewError("TIMEOUT", "operation timed out", http.StatusRequestTimeout)
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code      string
	Message   string
	Status    int
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var coded *Error
	if errors.As(target, &coded) {
		return e.Code == coded.Code
	}
	return false
}

func (e *Error) clone() *Error {
	details := make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		details[k] = v
	}
	clone := *e
	clone.Details = details
	return &clone
}

func (e *Error) WithCause(cause error) *Error {
	c := e.clone()
	c.Cause = cause
	return c
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	c := e.clone()
	c.Details[key] = value
	return c
}

func (e *Error) AsRetryable() *Error {
	c := e.clone()
	retryable := true
	c.retryable = &retryable
	return c
}

func (e *Error) AsFatal() *Error {
	c := e.clone()
	retryable := false
	c.retryable = &retryable
	return c
}

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	// 5xx and timeout-ish statuses default to retryable.
	return e.Status >= http.StatusInternalServerError ||
		e.Status == http.StatusRequestTimeout ||
		e.Status == http.StatusTooManyRequests
}

func (e *Error) IsFatal() bool {
	if e.retryable != nil {
		return !*e.retryable
	}
	return false
}

// IsFormattingRejection reports whether err is the class of 4xx the
// remote API returns for unparsable markup, which must trigger the
// plain-text fallback retry rather than a backoff retry.
func IsFormattingRejection(err error) bool {
	return errors.Is(err, ErrFormattingRejected)
}

// IsTransient reports whether err may succeed on a later attempt.
func IsTransient(err error) bool {
	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// Package errors defines the application-wide error type used by every
// handler and usecase. It mirrors the constructor-per-kind shape common
// in the rest of the stack: callers build an AppError with a kind-specific
// constructor and handlers unwrap it with errors.As.
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies the kind of failure independent of HTTP status.
type ErrorCode string

const (
	ErrorCode_OK                  ErrorCode = "OK"
	ErrorCode_INVALID_INPUT       ErrorCode = "INVALID_INPUT"
	ErrorCode_INSUFFICIENT_SPEECH ErrorCode = "INSUFFICIENT_SPEECH"
	ErrorCode_NOT_FOUND           ErrorCode = "NOT_FOUND"
	ErrorCode_BUSY                ErrorCode = "BUSY"
	ErrorCode_PROVIDER_ERROR      ErrorCode = "PROVIDER_ERROR"
	ErrorCode_PROVIDER_TIMEOUT    ErrorCode = "PROVIDER_TIMEOUT"
	ErrorCode_INTERNAL            ErrorCode = "INTERNAL"
)

func (c ErrorCode) String() string { return string(c) }

// AppError is the HTTP-facing error type. Raw carries the underlying cause
// for logging; it is never serialized directly to the client.
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithDetail attaches a key/value detail, returning a copy.
func (e AppError) WithDetail(key, value string) AppError {
	d := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		d[k] = v
	}
	d[key] = value
	e.Details = d
	return e
}

func newErr(code ErrorCode, status int, message string, raw error) AppError {
	return AppError{
		Raw:       raw,
		HTTPCode:  status,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewInvalidInput covers bad audio, missing fields, and malformed identifiers.
func NewInvalidInput(message string) AppError {
	return newErr(ErrorCode_INVALID_INPUT, http.StatusBadRequest, message, nil)
}

// NewInsufficientSpeech is returned when a VAD or speech-quality gate rejects audio.
func NewInsufficientSpeech(message string) AppError {
	return newErr(ErrorCode_INSUFFICIENT_SPEECH, http.StatusBadRequest, message, nil)
}

// NewNotFound covers unknown names, meetings, or speaker labels.
func NewNotFound(resource string) AppError {
	return newErr(ErrorCode_NOT_FOUND, http.StatusNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewBusy is returned when a device already has an identification job in flight.
func NewBusy(deviceID string) AppError {
	return newErr(ErrorCode_BUSY, http.StatusConflict, "an identification job is already running for this device", nil).
		WithDetail("device_id", deviceID)
}

// NewProviderError wraps a downstream provider failure with a sanitized message.
func NewProviderError(provider string, err error) AppError {
	return newErr(ErrorCode_PROVIDER_ERROR, http.StatusBadGateway, fmt.Sprintf("%s request failed", provider), err)
}

// NewProviderTimeout wraps a downstream provider timeout.
func NewProviderTimeout(provider string, err error) AppError {
	return newErr(ErrorCode_PROVIDER_TIMEOUT, http.StatusBadGateway, fmt.Sprintf("%s timed out", provider), err)
}

// NewInternal wraps an unexpected failure. The raw cause is logged but never
// sent to the client.
func NewInternal(err error) AppError {
	return newErr(ErrorCode_INTERNAL, http.StatusInternalServerError, "internal server error", err)
}

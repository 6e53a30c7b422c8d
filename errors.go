package llmcomplete

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrNoAPIKey          = fmt.Errorf("%w: api key not set", ErrConfiguration)
	ErrNoSelection       = fmt.Errorf("%w: no text selected", ErrConfiguration)
	ErrOffline           = errors.New("no network connection")
	ErrInvalidProvider   = errors.New("invalid provider")
	ErrStreamUnavailable = errors.New("response has no readable stream")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrRateLimited       = errors.New("rate limited")
	ErrProviderError     = errors.New("provider error")
	ErrCircuitOpen       = errors.New("circuit breaker is open")
)

// HTTPError is returned when a provider answers with a non-success status
type HTTPError struct {
	Provider   Provider
	StatusCode int
	Message    string
	Err        error
}

// NewHTTPError builds an HTTPError and classifies it by status code
func NewHTTPError(provider Provider, statusCode int, message string) *HTTPError {
	e := &HTTPError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Err:        ErrProviderError,
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Err = ErrAuthFailed
	case http.StatusTooManyRequests:
		e.Err = ErrRateLimited
	case http.StatusBadRequest:
		e.Err = ErrInvalidRequest
	}

	return e
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s: http status %d", e.Provider, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, if any
func StatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}

// IsRateLimited returns true if the error indicates rate limiting
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	code, ok := StatusCode(err)
	return ok && code == http.StatusTooManyRequests
}

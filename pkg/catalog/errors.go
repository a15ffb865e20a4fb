package catalog

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRateLimited is returned when the rate limit gate blocks a request.
	ErrRateLimited = errors.New("request blocked: rate limit critical")

	// ErrMalformedBody is wrapped by decode errors.
	ErrMalformedBody = errors.New("malformed response body")
)

// ErrorClass represents a classification of catalog errors.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport errors (unreachable host, timeout, reset).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a response body that could not be decoded.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and requests blocked locally.
	ErrorClassRateLimit ErrorClass = "rate_limit"
)

// CatalogError represents a failed catalog request with additional context.
type CatalogError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("catalog %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Class returns the ErrorClass of err, or "" if err is not a *CatalogError.
func Class(err error) ErrorClass {
	var ce *CatalogError
	if errors.As(err, &ce) {
		return ce.ErrorClass
	}
	return ""
}

// IsTransport reports whether err is a transport-level failure: the request
// never produced a usable response (network errors, HTTP error statuses,
// rate limit blocks).
func IsTransport(err error) bool {
	switch Class(err) {
	case ErrorClassNetwork, ErrorClassClient, ErrorClassServer, ErrorClassRateLimit:
		return true
	default:
		return false
	}
}

// IsDecode reports whether err is a decode failure.
func IsDecode(err error) bool {
	return Class(err) == ErrorClassDecode
}

// classifyStatus maps an HTTP error status onto an ErrorClass.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == 429:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

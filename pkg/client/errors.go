package client

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrMissingUserAgent is returned by New when no User-Agent is configured.
	// Scryfall rejects requests that do not identify the calling application.
	ErrMissingUserAgent = errors.New("user-agent is required")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a failed Scryfall request. For HTTP failures it carries the
// decoded Scryfall error object when the body contained one.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Method     string
	Endpoint   string

	// Code and Details come from the Scryfall error object, e.g. "not_found".
	Code     string
	Details  string
	Warnings []string

	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "scryfall %s error", e.ErrorClass)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Method != "" || e.Endpoint != "" {
		fmt.Fprintf(&b, " %s %s", e.Method, e.Endpoint)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, ": %s", e.Code)
	}
	if e.Details != "" {
		fmt.Fprintf(&b, ": %s", e.Details)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// errorObject is the body Scryfall returns with non-2xx responses.
type errorObject struct {
	Object   string   `json:"object"`
	Status   int      `json:"status"`
	Code     string   `json:"code"`
	Type     string   `json:"type"`
	Details  string   `json:"details"`
	Warnings []string `json:"warnings"`
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx errors will fail the same way again
		return false
	}
}

// classOf extracts the ErrorClass of err, or "" if it is not an APIError.
func classOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ""
}

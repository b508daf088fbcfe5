package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrThrottled is returned when the shared throttle gate rejects a request.
	ErrThrottled = errors.New("request blocked: api throttled")
)

// ErrorClass represents a classification of API errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx errors and request-level API error codes.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx errors and internal API errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and the maxlag/ratelimited codes.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport failures and per-call timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a failed MediaWiki API call: either a non-2xx HTTP status or
// the JSON error envelope returned with HTTP 200.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Code       string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("mediawiki %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, msg, e.Err)
	}
	return fmt.Sprintf("mediawiki %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, msg)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// envelope is the error part of an Action API response.
type envelope struct {
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// decodeEnvelope returns an *APIError if body carries an error envelope.
// Bodies that are not JSON objects are left to the caller's decoder.
func decodeEnvelope(statusCode int, body []byte) *APIError {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return nil
	}
	return &APIError{
		StatusCode: statusCode,
		ErrorClass: classifyCode(env.Error.Code),
		Code:       env.Error.Code,
		Message:    env.Error.Info,
	}
}

// classifyCode maps an API error code to an ErrorClass.
func classifyCode(code string) ErrorClass {
	switch {
	case code == "maxlag", code == "ratelimited":
		return ErrorClassRateLimit
	case code == "readonly", strings.HasPrefix(code, "internal_api_error"):
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// classifyStatus maps an HTTP status code to an ErrorClass.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// Client errors repeat identically; unclassified errors (cancellation,
		// throttle rejection) must surface at once.
		return false
	}
}

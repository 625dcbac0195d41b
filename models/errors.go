package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInvalidURL        = "INVALID_URL"
	ErrCodeNoStrategies      = "NO_STRATEGIES"
	ErrCodeUnknownStrategy   = "UNKNOWN_STRATEGY"
	ErrCodeDuplicateStrategy = "DUPLICATE_STRATEGY"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInternal          = "INTERNAL_ERROR"

	// Strategy-level codes. These end up in Outcome.ErrorMessage rather than
	// in API error responses.
	ErrCodeFetch        = "FETCH_FAILED"
	ErrCodeTimeout      = "SCRAPE_TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeExtraction   = "CONTENT_EXTRACTION_FAILED"

	ErrCodeLLMFailure     = "LLM_FAILURE"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
	ErrCodeLLMRateLimited = "LLM_RATE_LIMITED"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DuelError is the internal error type carrying an error code.
type DuelError struct {
	Code    string
	Message string
	Err     error
}

func (e *DuelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DuelError) Unwrap() error {
	return e.Err
}

// NewDuelError creates a new DuelError.
func NewDuelError(code, message string, err error) *DuelError {
	return &DuelError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *DuelError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf returns the code of the first DuelError in err's chain, or
// ErrCodeInternal.
func CodeOf(err error) string {
	var de *DuelError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}

package client

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kjstillabower/weather-desk/internal/validation"
)

// ErrorCategory labels weatherApiErrorsTotal.
type ErrorCategory string

const (
	ErrorCategoryTimeout          ErrorCategory = "timeout"
	ErrorCategoryNetwork          ErrorCategory = "network"
	ErrorCategoryInvalidAPIKey    ErrorCategory = "invalid_api_key"
	ErrorCategoryLocationNotFound ErrorCategory = "location_not_found"
	ErrorCategoryRateLimited      ErrorCategory = "rate_limited"
	ErrorCategoryUpstream5xx      ErrorCategory = "upstream_5xx"
	ErrorCategoryCircuitOpen      ErrorCategory = "circuit_open"
	ErrorCategoryDecode           ErrorCategory = "decode"
	ErrorCategoryValidation       ErrorCategory = "validation"
	ErrorCategoryUnknown          ErrorCategory = "unknown"
)

// kindCategories is checked in order; the first matching sentinel wins.
var kindCategories = []struct {
	kind     error
	category ErrorCategory
}{
	{ErrTimeout, ErrorCategoryTimeout},
	{context.DeadlineExceeded, ErrorCategoryTimeout},
	{context.Canceled, ErrorCategoryTimeout},
	{ErrConnection, ErrorCategoryNetwork},
	{ErrInvalidAPIKey, ErrorCategoryInvalidAPIKey},
	{ErrLocationNotFound, ErrorCategoryLocationNotFound},
	{ErrRateLimited, ErrorCategoryRateLimited},
	{ErrUpstreamFailure, ErrorCategoryUpstream5xx},
	{ErrCircuitOpen, ErrorCategoryCircuitOpen},
}

// CategorizeError maps err to a bounded metric label. Malformed upstream payloads
// are reported as decode; city validation failures as validation.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	for _, kc := range kindCategories {
		if errors.Is(err, kc.kind) {
			return kc.category
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return ErrorCategoryDecode
	}
	if isValidationError(err) {
		return ErrorCategoryValidation
	}
	return ErrorCategoryUnknown
}

func isValidationError(err error) bool {
	return errors.Is(err, validation.ErrCityEmpty) ||
		errors.Is(err, validation.ErrCityTooShort) ||
		errors.Is(err, validation.ErrCityTooLong) ||
		errors.Is(err, validation.ErrCityInvalidChars)
}

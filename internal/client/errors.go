package client

import (
	"errors"
	"fmt"

	"github.com/kjstillabower/weather-desk/internal/validation"
)

// Sentinel kinds carried by WeatherError. Match with errors.Is.
var (
	ErrCityEmpty        = validation.ErrCityEmpty
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrTimeout          = errors.New("request timed out")
	ErrConnection       = errors.New("connection failed")
	ErrUnexpected       = errors.New("unexpected error")
	ErrCircuitOpen      = errors.New("circuit open")
)

// WeatherError is returned for every failed weather lookup. Message is safe to show to end users.
type WeatherError struct {
	Kind    error // one of the Err* sentinels above
	Message string
	Status  int   // upstream HTTP status, 0 when no response was received
	Err     error // underlying cause, may be nil
}

func (e *WeatherError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the cause so errors.Is matches either.
func (e *WeatherError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message returns the user-facing text for err. Errors that are not WeatherErrors
// are reported the same way as unexpected client failures.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var we *WeatherError
	if errors.As(err, &we) {
		return we.Message
	}
	return fmt.Sprintf("An unexpected error occurred: %v", err)
}

func cityEmptyError() *WeatherError {
	return &WeatherError{Kind: ErrCityEmpty, Message: ErrCityEmpty.Error()}
}

// statusError maps a non-200 upstream status to a WeatherError.
func statusError(status int, city string) *WeatherError {
	switch {
	case status == 404:
		return &WeatherError{Kind: ErrLocationNotFound, Status: status,
			Message: fmt.Sprintf("City '%s' not found. Please check the spelling.", city)}
	case status == 401:
		return &WeatherError{Kind: ErrInvalidAPIKey, Status: status,
			Message: "Invalid API key. Please check your configuration."}
	case status == 429:
		return &WeatherError{Kind: ErrRateLimited, Status: status,
			Message: fmt.Sprintf("Error fetching data: %d", status)}
	case status >= 500:
		return &WeatherError{Kind: ErrUpstreamFailure, Status: status,
			Message: fmt.Sprintf("Error fetching data: %d", status)}
	default:
		// Other 4xx answers are final; retrying or tripping the breaker cannot help.
		return &WeatherError{Kind: ErrUnexpected, Status: status,
			Message: fmt.Sprintf("Error fetching data: %d", status)}
	}
}

// NewTimeoutError reports cause as a timeout with the standard user-facing message.
func NewTimeoutError(cause error) *WeatherError {
	return timeoutError(cause)
}

func timeoutError(cause error) *WeatherError {
	return &WeatherError{Kind: ErrTimeout, Err: cause,
		Message: "Request timed out. Check your internet connection."}
}

func connectionError(cause error) *WeatherError {
	return &WeatherError{Kind: ErrConnection, Err: cause,
		Message: "Could not connect to the weather service API."}
}

func unexpectedError(cause error) *WeatherError {
	return &WeatherError{Kind: ErrUnexpected, Err: cause,
		Message: fmt.Sprintf("An unexpected error occurred: %v", cause)}
}

func circuitOpenError(cause error) *WeatherError {
	return &WeatherError{Kind: ErrCircuitOpen, Err: cause,
		Message: "Weather service temporarily unavailable. Try again shortly."}
}

// IsUpstreamFailure reports whether err says the weather API itself is unhealthy.
// Not-found and bad-key responses mean the API answered, so they do not count.
func IsUpstreamFailure(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUpstreamFailure) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnection)
}

package tts

import "errors"

// Common voice-layer errors.
var (
	// ErrNoProvider is returned by the Manager when no backend is active.
	ErrNoProvider = errors.New("no voice provider available")

	// ErrProviderUnavailable is returned when speaking through a provider
	// whose detection reported unusable.
	ErrProviderUnavailable = errors.New("voice provider unavailable")

	// ErrEmptyText is returned when the text is empty after sanitization.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrUnknownProvider is returned when switching to a provider name
	// that was never constructed.
	ErrUnknownProvider = errors.New("unknown voice provider")

	// ErrNoPlayer is returned by the cloud provider when no local audio
	// player binary can be found for playback.
	ErrNoPlayer = errors.New("no audio player found")
)

// SpeechError provides detailed error information from voice backends.
type SpeechError struct {
	// Provider is the backend that produced the error.
	Provider string

	// Code is the backend-specific error code (exit code, HTTP status).
	Code string

	// Message is the human-readable error message, built from backend
	// diagnostics (stderr, response body) where available.
	Message string

	// Cause is the underlying error (if any).
	Cause error

	// Retryable indicates whether the error is transient.
	Retryable bool
}

// Error implements the error interface.
func (e *SpeechError) Error() string {
	if e.Cause != nil {
		return e.Provider + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Provider + ": " + e.Message
}

// Unwrap returns the underlying error.
func (e *SpeechError) Unwrap() error {
	return e.Cause
}

// NewSpeechError creates a new SpeechError.
func NewSpeechError(provider, code, message string, cause error, retryable bool) *SpeechError {
	return &SpeechError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: retryable,
	}
}

package domain

import "errors"

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
var (
	// ID validation errors
	ErrEmptyID   = errors.New("ID cannot be empty")
	ErrInvalidID = errors.New("invalid ID format")

	// Resource errors
	ErrNotFound = errors.New("resource not found")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
	ErrTextTooLarge = errors.New("text exceeds size limit")

	// Operational errors
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrUnavailable = errors.New("service temporarily unavailable")

	// Model provider errors
	ErrEmbeddingFailed       = errors.New("embedding generation failed")
	ErrGenerationFailed      = errors.New("text generation failed")
	ErrCredentialUnavailable = errors.New("service account credentials unavailable")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
	ErrConfigInvalid  = errors.New("configuration value malformed")

	// Startup errors
	ErrPortUnavailable = errors.New("listen port unavailable")
)

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrRateLimited)
}

// clientErrors enumerates all domain errors that represent client-side issues.
var clientErrors = []error{
	ErrInvalidInput,
	ErrTextTooLarge,
	ErrNotFound,
	ErrEmptyID,
	ErrInvalidID,
}

// IsClientError returns true if the error represents a client-side issue
// that will not succeed on retry without client-side changes.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsFatalStartup returns true if the error must abort service startup.
// Bind and configuration failures are never retried in-process: the
// supervisor owns restart policy.
func IsFatalStartup(err error) bool {
	return errors.Is(err, ErrConfigRequired) ||
		errors.Is(err, ErrConfigInvalid) ||
		errors.Is(err, ErrPortUnavailable)
}

// IsNotFound returns true if the error represents a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

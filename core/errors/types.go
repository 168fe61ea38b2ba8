// Package errors implements the failure taxonomy used by dataset generation:
// tiered errors with retry behavior for provider calls, and generation errors
// that are contained to a single question, record or fragment.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorTier represents the classification tier for errors.
// Each tier has defined behavior for retry policy.
type ErrorTier int

const (
	// TierTransient indicates temporary errors that should be silently retried.
	TierTransient ErrorTier = iota

	// TierPermanent indicates errors that will not resolve with retry.
	TierPermanent

	// TierUserFixable indicates errors that require a configuration change.
	TierUserFixable

	// TierExternalRateLimit indicates rate limiting from the model provider.
	TierExternalRateLimit

	// TierExternalDegrading indicates provider degradation (5xx, timeouts).
	TierExternalDegrading
)

var tierNames = map[ErrorTier]string{
	TierTransient:         "transient",
	TierPermanent:         "permanent",
	TierUserFixable:       "user_fixable",
	TierExternalRateLimit: "external_rate_limit",
	TierExternalDegrading: "external_degrading",
}

func (t ErrorTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// TieredError wraps an error with tier classification.
type TieredError struct {
	Tier       ErrorTier
	Message    string
	Underlying error
	StatusCode int
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *TieredError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Tier, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s] %s", e.Tier, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TieredError) Unwrap() error {
	return e.Underlying
}

// Is checks if the target error matches this TieredError's tier.
func (e *TieredError) Is(target error) bool {
	var te *TieredError
	if errors.As(target, &te) {
		return e.Tier == te.Tier
	}
	return false
}

// NewTieredError creates a new TieredError with the given tier and message.
func NewTieredError(tier ErrorTier, message string, underlying error) *TieredError {
	return &TieredError{
		Tier:       tier,
		Message:    message,
		Underlying: underlying,
	}
}

// WithStatusCode adds an HTTP status code to the error.
func (e *TieredError) WithStatusCode(code int) *TieredError {
	e.StatusCode = code
	return e
}

// WithRetryAfter adds a retry-after duration to the error.
func (e *TieredError) WithRetryAfter(d time.Duration) *TieredError {
	e.RetryAfter = d
	return e
}

// GetTier extracts the ErrorTier from an error, defaulting to Permanent.
func GetTier(err error) ErrorTier {
	var te *TieredError
	if errors.As(err, &te) {
		return te.Tier
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind.Tier()
	}
	return TierPermanent
}

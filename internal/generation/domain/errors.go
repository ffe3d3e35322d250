package domain

import (
	"errors"
	"fmt"
)

// Error codes surfaced in HTTP failure envelopes.
const (
	CodeRateLimit        = "RATE_LIMIT"
	CodeInvalidAPIKey    = "INVALID_API_KEY"
	CodeEmptyResponse    = "EMPTY_RESPONSE"
	CodeInvalidFormat    = "INVALID_FORMAT"
	CodeGenerationFailed = "GENERATION_FAILED"
)

var (
	ErrNotFound      = errors.New("generation not found")
	ErrInvalidFormat = errors.New("upstream reply did not match any accepted format")
	ErrEmptyReply    = errors.New("upstream returned an empty reply")
)

// AdmissionDeniedError is a normal, retryable pipeline outcome, not an
// upstream failure. WaitSeconds is zero when no wait can be computed (the
// daily window resets at midnight).
type AdmissionDeniedError struct {
	Reason      string
	WaitSeconds int
}

func (e *AdmissionDeniedError) Error() string {
	if e.WaitSeconds > 0 {
		return fmt.Sprintf("%s (retry in %ds)", e.Reason, e.WaitSeconds)
	}
	return e.Reason
}

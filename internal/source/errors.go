package source

import (
	"context"
	"errors"
	"fmt"
)

// Adapter errors. Adapters wrap these so callers can classify failures with errors.Is.
var (
	// ErrSourceUnavailable is a transient network or provider failure.
	// The scan treats it as zero results from that source this round.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRateLimited means the provider quota was hit. The adapter backs off before its next call.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidData is a malformed or unexpected payload. The affected attributes stay absent.
	ErrInvalidData = errors.New("invalid data")

	// ErrQuotaExhausted means the adapter's own request budget cannot serve the call before the
	// caller's deadline. It wraps ErrRateLimited but the provider was never contacted.
	ErrQuotaExhausted = fmt.Errorf("local quota exhausted: %w", ErrRateLimited)

	// ErrNotFound means the provider has no record for the token.
	// Adapters translate it into absent attributes; it is not a failure.
	ErrNotFound = errors.New("not found")
)

// Outcome classifies the result of one adapter call.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeThrottled   Outcome = "throttled"
	OutcomeInvalidData Outcome = "invalid_data"
	OutcomeCancelled   Outcome = "cancelled"
)

// Failed reports whether the outcome counts as a source failure. Throttled calls never reached
// the provider and do not count.
func (o Outcome) Failed() bool {
	return o == OutcomeUnavailable || o == OutcomeRateLimited
}

// Classify maps an adapter error to an Outcome. Unrecognized errors are unavailable.
func Classify(err error) Outcome {
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
		return OutcomeOK
	case errors.Is(err, ErrQuotaExhausted):
		return OutcomeThrottled
	case errors.Is(err, ErrRateLimited):
		return OutcomeRateLimited
	case errors.Is(err, ErrInvalidData):
		return OutcomeInvalidData
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeUnavailable
	}
}

package domain

import "errors"

// Failure taxonomy surfaced to the orchestrator. Every stage error that is
// not plain infrastructure trouble wraps exactly one of these sentinels, so
// callers classify with errors.Is instead of string matching.
var (
	// ErrFetch tags upstream source failures: unreachable API or a response
	// that is not the expected JSON collection. Never retried by the core.
	ErrFetch = errors.New("source fetch failed")

	// ErrValidation tags a silver transform that produced zero usable rows.
	// Fatal for the run; gold must not load from a silver layer that was
	// never populated.
	ErrValidation = errors.New("silver validation failed")

	// ErrQuality tags a data quality gate assertion that matched rows.
	ErrQuality = errors.New("data quality violation")

	// ErrIntegrity tags a fact row whose user or product cannot be resolved
	// to a current dimension surrogate key.
	ErrIntegrity = errors.New("dimension integrity fault")
)

package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrDerivation        = errors.New("derivation error")
	ErrStorage           = errors.New("storage error")
	ErrSubmission        = errors.New("submission error")
	ErrTransactionFailed = errors.New("transaction failure")
	ErrConfiguration     = errors.New("configuration error")
	ErrStepInFlight      = errors.New("step already in flight")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAbandoned         = errors.New("workflow abandoned")
	ErrNotFound          = errors.New("not found")
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrSubmission
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the step that produced err may be retried in place.
// Storage, submission and on-chain failures leave the workflow at a retry point;
// validation and derivation failures require a restart from the first step.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrStorage), errors.Is(err, ErrSubmission), errors.Is(err, ErrTransactionFailed):
		return true
	default:
		return false
	}
}

// Kind returns a short classification label for err, used in API payloads and
// journal rows.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDerivation):
		return "derivation"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrSubmission):
		return "submission"
	case errors.Is(err, ErrTransactionFailed):
		return "transaction_failure"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrStepInFlight):
		return "in_flight"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrAbandoned):
		return "abandoned"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "unknown"
	}
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

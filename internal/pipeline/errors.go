package pipeline

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes validation errors.
type ErrorCode string

const (
	// ErrCodeSchemaViolation indicates records failed schema validation.
	ErrCodeSchemaViolation ErrorCode = "SCHEMA_VIOLATION"

	// ErrCodeDuplicateIdentity indicates two records share an identity value.
	ErrCodeDuplicateIdentity ErrorCode = "DUPLICATE_IDENTITY"

	// ErrCodeChecksumFailure indicates a digest or statistics computation
	// failed for a reason other than duplicate identities, such as a value
	// with no canonical encoding.
	ErrCodeChecksumFailure ErrorCode = "CHECKSUM_FAILURE"

	// ErrCodeCompleteness indicates a required field is missing or null.
	ErrCodeCompleteness ErrorCode = "COMPLETENESS_VIOLATION"

	// ErrCodeScopeViolation indicates data outside the declared scope changed.
	ErrCodeScopeViolation ErrorCode = "CHECKSUM_SCOPE_VIOLATION"

	// ErrCodeAnomalyCritical indicates a statistic drifted past a critical threshold.
	ErrCodeAnomalyCritical ErrorCode = "ANOMALY_CRITICAL"

	// ErrCodeAuditTamper indicates the audit chain failed verification.
	ErrCodeAuditTamper ErrorCode = "AUDIT_TAMPER_DETECTED"

	// ErrCodeTestFailure indicates a required harness check failed.
	ErrCodeTestFailure ErrorCode = "TEST_FAILURE"

	// ErrCodePhaseTimeout indicates the phase deadline expired mid-run.
	ErrCodePhaseTimeout ErrorCode = "PHASE_TIMEOUT"

	// ErrCodeStorageFailure indicates the persistence layer failed.
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"

	// ErrCodeInvalidState indicates a phase was invoked out of order.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrCodeInvalidConfig indicates the pipeline configuration is malformed.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Error is a categorized validation failure with structured diagnostics.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Phase names the phase the error occurred in, when applicable.
	Phase string `json:"phase,omitempty"`

	// Details contains additional context.
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s: %s (phase=%s)", e.Code, e.Message, e.Phase)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is (or wraps) a pipeline Error with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

func newError(code ErrorCode, phase string, format string, args ...any) *Error {
	return &Error{Code: code, Phase: phase, Message: fmt.Sprintf(format, args...)}
}

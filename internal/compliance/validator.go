package compliance

import (
	"time"

	"github.com/google/uuid"
)

// ErrorCode identifies a single unmet legal precondition.
type ErrorCode string

const (
	ErrConsentMissing         ErrorCode = "CONSENT_MISSING"
	ErrAuthenticationRequired ErrorCode = "AUTHENTICATION_REQUIRED"
	ErrIPAddressMissing       ErrorCode = "IP_ADDRESS_MISSING"
	ErrUserAgentMissing       ErrorCode = "USER_AGENT_MISSING"
)

// Level summarizes a validation outcome.
type Level string

const (
	LevelFullyCompliant Level = "fully_compliant"
	LevelNonCompliant   Level = "non_compliant"
)

// SignerRecord is the captured signer metadata the gate inspects.
type SignerRecord struct {
	SignerID               uuid.UUID
	ConsentGiven           bool
	ConsentTimestamp       *time.Time
	AuthenticationVerified bool
	IPAddress              string
	UserAgent              string
}

// Result is the structured outcome of a compliance validation. Validation
// never fails with an error; an empty Errors slice means the signer may sign.
type Result struct {
	Valid  bool        `json:"valid"`
	Errors []ErrorCode `json:"errors"`
	Level  Level       `json:"compliance_level"`
}

// Validate checks every precondition independently and reports all
// violations together. Callers use it as a hard gate: a signature from a
// non-compliant signer must not be persisted.
func Validate(record SignerRecord) Result {
	var errs []ErrorCode

	if !record.ConsentGiven || record.ConsentTimestamp == nil {
		errs = append(errs, ErrConsentMissing)
	}
	if !record.AuthenticationVerified {
		errs = append(errs, ErrAuthenticationRequired)
	}
	if record.IPAddress == "" {
		errs = append(errs, ErrIPAddressMissing)
	}
	if record.UserAgent == "" {
		errs = append(errs, ErrUserAgentMissing)
	}

	level := LevelFullyCompliant
	if len(errs) > 0 {
		level = LevelNonCompliant
	}

	return Result{
		Valid:  len(errs) == 0,
		Errors: errs,
		Level:  level,
	}
}

package verification

import (
	"time"

	"github.com/google/uuid"
)

type CheckType string

const (
	CheckDocumentIntegrity  CheckType = "document_integrity"
	CheckSignatureIntegrity CheckType = "signature_integrity"
	CheckSigningOrder       CheckType = "signing_order"
	CheckAllSignersComplete CheckType = "all_signers_completed"
)

type OverallStatus string

const (
	StatusValid   OverallStatus = "valid"
	StatusInvalid OverallStatus = "invalid"
)

// ErrorKind distinguishes why a check failed. A mismatch is an expected,
// reportable outcome; source_unavailable is an infrastructure fault scoped
// to that one check.
type ErrorKind string

const (
	ErrorNone              ErrorKind = ""
	ErrorIntegrityMismatch ErrorKind = "integrity_mismatch"
	ErrorSourceUnavailable ErrorKind = "source_unavailable"
)

// CheckResult carries enough structured detail for a human audit review:
// which check, which signer, expected vs. actual hash.
type CheckResult struct {
	CheckType    CheckType  `json:"check_type"`
	Passed       bool       `json:"passed"`
	SignerID     *uuid.UUID `json:"signer_id,omitempty"`
	ExpectedHash string     `json:"expected_hash,omitempty"`
	ActualHash   string     `json:"actual_hash,omitempty"`
	ErrorKind    ErrorKind  `json:"error_kind,omitempty"`
	Detail       string     `json:"detail"`
}

type Summary struct {
	TotalChecks int `json:"total_checks"`
	Passed      int `json:"passed"`
	Failed      int `json:"failed"`
}

// Report is created fresh on every verification request and is always
// re-derivable from persisted hashes and records; it is never persisted as
// authoritative.
type Report struct {
	ContractNumber string        `json:"contract_number"`
	VerifiedAt     time.Time     `json:"verified_at"`
	OverallStatus  OverallStatus `json:"overall_status"`
	Checks         []CheckResult `json:"checks"`
	Summary        Summary       `json:"summary"`
}

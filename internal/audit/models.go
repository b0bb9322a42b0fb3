package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Event types appended by the portal services.
const (
	EventContractCreated   = "contract.created"
	EventContractSent      = "contract.sent"
	EventConsentRecorded   = "consent.recorded"
	EventSignatureCaptured = "signature.captured"
	EventContractCompleted = "contract.completed"
	EventVerificationRun   = "verification.run"
)

// Event is an append-only audit trail row. Rows are never updated or
// deleted.
type Event struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ContractID uuid.UUID      `gorm:"type:uuid;index" json:"contract_id"`
	SignerID   *uuid.UUID     `gorm:"type:uuid" json:"signer_id,omitempty"`
	EventType  string         `gorm:"size:64;index" json:"event_type"`
	Payload    datatypes.JSON `json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
}

// VerificationRun records that a verification report was produced and what
// it concluded. The report JSON is a convenience snapshot; the report stays
// re-derivable from the contract's persisted hashes.
type VerificationRun struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ContractID     uuid.UUID      `gorm:"type:uuid;index" json:"contract_id"`
	ContractNumber string         `gorm:"size:64" json:"contract_number"`
	OverallStatus  string         `gorm:"size:16" json:"overall_status"`
	FailedChecks   int            `json:"failed_checks"`
	Report         datatypes.JSON `json:"report"`
	VerifiedAt     time.Time      `json:"verified_at"`
}

// ComplianceSnapshot stores a generated compliance record for retention.
// The generator remains the source of truth; snapshots exist so auditors
// can be handed evidence exactly as produced at signing time.
type ComplianceSnapshot struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ContractID  uuid.UUID      `gorm:"type:uuid;index" json:"contract_id"`
	SignerID    uuid.UUID      `gorm:"type:uuid;index" json:"signer_id"`
	Record      datatypes.JSON `json:"record"`
	GeneratedAt time.Time      `json:"generated_at"`
}

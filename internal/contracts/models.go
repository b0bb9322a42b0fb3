package contracts

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	StatusDraft           ContractStatus = "draft"
	StatusSent            ContractStatus = "sent"
	StatusPartiallySigned ContractStatus = "partially_signed"
	StatusCompleted       ContractStatus = "completed"
	StatusDeclined        ContractStatus = "declined"
	StatusExpired         ContractStatus = "expired"
)

type SignerStatus string

const (
	SignerPending  SignerStatus = "pending"
	SignerViewed   SignerStatus = "viewed"
	SignerSigned   SignerStatus = "signed"
	SignerDeclined SignerStatus = "declined"
)

type SignatureMethod string

const (
	MethodDraw   SignatureMethod = "draw"
	MethodType   SignatureMethod = "type"
	MethodUpload SignatureMethod = "upload"
	MethodClick  SignatureMethod = "click"
)

func (m SignatureMethod) Valid() bool {
	switch m {
	case MethodDraw, MethodType, MethodUpload, MethodClick:
		return true
	}
	return false
}

// Contract owns its document digest and the set of signature records. The
// hash, seal and signed-at fields are written once and never mutated; only
// Status transitions after creation.
type Contract struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	ContractNumber     string          `json:"contract_number" db:"contract_number"`
	Title              string          `json:"title" db:"title"`
	Status             ContractStatus  `json:"status" db:"status"`
	SequentialSigning  bool            `json:"sequential_signing" db:"sequential_signing"`
	S3Bucket           string          `json:"s3_bucket" db:"s3_bucket"`
	DocumentKey        string          `json:"document_key" db:"document_key"`
	DocumentHash       *string         `json:"document_hash,omitempty" db:"document_hash"`
	SignedDocumentKey  *string         `json:"signed_document_key,omitempty" db:"signed_document_key"`
	SignedDocumentHash *string         `json:"signed_document_hash,omitempty" db:"signed_document_hash"`
	SealHash           *string         `json:"seal_hash,omitempty" db:"seal_hash"`
	SignedAt           *time.Time      `json:"signed_at,omitempty" db:"signed_at"`
	SentAt             *time.Time      `json:"sent_at,omitempty" db:"sent_at"`
	CreatedBy          uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	Metadata           json.RawMessage `json:"metadata" db:"metadata"`
}

// Signer is one party on a contract. Signature fields are append-only:
// once SignedAt is set the row is never rewritten.
type Signer struct {
	ID                     uuid.UUID        `json:"id" db:"id"`
	ContractID             uuid.UUID        `json:"contract_id" db:"contract_id"`
	Name                   string           `json:"name" db:"name"`
	Email                  string           `json:"email" db:"email"`
	Role                   string           `json:"role" db:"role"`
	SignerOrder            int              `json:"signer_order" db:"signer_order"`
	Status                 SignerStatus     `json:"status" db:"status"`
	SignatureMethod        *SignatureMethod `json:"signature_method,omitempty" db:"signature_method"`
	SignatureKey           *string          `json:"signature_key,omitempty" db:"signature_key"`
	SignatureHash          *string          `json:"signature_hash,omitempty" db:"signature_hash"`
	SignedAt               *time.Time       `json:"signed_at,omitempty" db:"signed_at"`
	ViewedAt               *time.Time       `json:"viewed_at,omitempty" db:"viewed_at"`
	ConsentGiven           bool             `json:"consent_given" db:"consent_given"`
	ConsentTimestamp       *time.Time       `json:"consent_timestamp,omitempty" db:"consent_timestamp"`
	ConsentMethod          string           `json:"consent_method" db:"consent_method"`
	AuthenticationVerified bool             `json:"authentication_verified" db:"authentication_verified"`
	AuthenticationMethod   string           `json:"authentication_method" db:"authentication_method"`
	IPAddress              string           `json:"ip_address" db:"ip_address"`
	UserAgent              string           `json:"user_agent" db:"user_agent"`
}

// ConsentRecord captures the signer's agreement to do business
// electronically. Distinct from intent: consent is permission to use
// e-signatures, intent is the act of signing this document.
type ConsentRecord struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	SignerID    uuid.UUID       `json:"signer_id" db:"signer_id"`
	ContractID  uuid.UUID       `json:"contract_id" db:"contract_id"`
	Given       bool            `json:"given" db:"given"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
	ConsentText string          `json:"consent_text" db:"consent_text"`
	Method      string          `json:"method" db:"method"`
	IPAddress   string          `json:"ip_address" db:"ip_address"`
	UserAgent   string          `json:"user_agent" db:"user_agent"`
	Geolocation json.RawMessage `json:"geolocation" db:"geolocation"`
}

// IntentRecord captures the specific signing action.
type IntentRecord struct {
	ID         uuid.UUID `json:"id" db:"id"`
	SignerID   uuid.UUID `json:"signer_id" db:"signer_id"`
	ContractID uuid.UUID `json:"contract_id" db:"contract_id"`
	Action     string    `json:"action" db:"action"`
	Explicit   bool      `json:"explicit" db:"explicit"`
	Witnessed  bool      `json:"witnessed" db:"witnessed"`
	IPAddress  string    `json:"ip_address" db:"ip_address"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
}

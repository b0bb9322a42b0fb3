package compliance

import (
	"time"

	"github.com/google/uuid"

	"sealpoint/esign-portal/esign-portal-backend/pkg/geo"
)

// ConsentText is the fixed legal statement every signer agrees to before
// signing electronically. Changing it requires bumping ConsentTextVersion.
const ConsentText = "By checking this box, I agree to conduct business electronically and consent to the use of electronic signatures and records for this contract, as provided by the ESIGN Act, UETA, and eIDAS."

// ConsentTextVersion tags which revision of ConsentText a record captured.
const ConsentTextVersion = "2024-01"

// Standards lists the frameworks a compliance record is built against.
var Standards = []string{"ESIGN", "UETA", "eIDAS"}

// ComplianceRecord is the full legal audit record for one signature event.
// It is a projection: regenerated on demand from persisted signer, contract
// and signature data, never itself the source of truth.
type ComplianceRecord struct {
	RecordID    uuid.UUID `json:"record_id"`
	ContractID  uuid.UUID `json:"contract_id"`
	SignerID    uuid.UUID `json:"signer_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Standards   []string  `json:"standards"`

	Intent         IntentSection         `json:"intent"`
	Consent        ConsentSection        `json:"consent"`
	Association    AssociationSection    `json:"association"`
	Attribution    AttributionSection    `json:"attribution"`
	Retention      RetentionSection      `json:"retention"`
	Audit          AuditSection          `json:"audit"`
	TamperEvidence TamperEvidenceSection `json:"tamper_evidence"`
}

// IntentSection proves the signer performed a deliberate signing action.
// ExplicitAction is true by construction: a captured signature implies one.
type IntentSection struct {
	SigningMethod  string    `json:"signing_method"` // draw, type, upload, click
	ExplicitAction bool      `json:"explicit_action"`
	Timestamp      time.Time `json:"timestamp"`
}

// ConsentSection proves the signer agreed to do business electronically.
type ConsentSection struct {
	ConsentText string    `json:"consent_text"`
	TextVersion string    `json:"text_version"`
	Timestamp   time.Time `json:"timestamp"`
	Method      string    `json:"method"`
	IPAddress   string    `json:"ip_address"`
}

// AssociationSection cryptographically binds the signature to the document.
type AssociationSection struct {
	DocumentHash  string    `json:"document_hash"`
	SignatureHash string    `json:"signature_hash"`
	Linkage       string    `json:"linkage"` // always "cryptographic"
	Timestamp     time.Time `json:"timestamp"`
}

// AttributionSection ties the signature to a named, authenticated person.
type AttributionSection struct {
	SignerName           string `json:"signer_name"`
	SignerEmail          string `json:"signer_email"`
	SignerRole           string `json:"signer_role"`
	AuthenticationMethod string `json:"authentication_method"`
}

// RetentionSection records where and for how long the evidence is kept.
type RetentionSection struct {
	StorageLocation string `json:"storage_location"`
	RetentionYears  int    `json:"retention_years"`
	ArchivePolicy   string `json:"archive_policy"`
	Retrievable     bool   `json:"retrievable"`
}

// AuditSection is the event timeline plus network/device provenance.
type AuditSection struct {
	CreatedAt         *time.Time        `json:"created_at,omitempty"`
	SentAt            *time.Time        `json:"sent_at,omitempty"`
	ViewedAt          *time.Time        `json:"viewed_at,omitempty"`
	SignedAt          *time.Time        `json:"signed_at,omitempty"`
	IPAddress         string            `json:"ip_address"`
	Geolocation       geo.Location      `json:"geolocation"`
	DeviceFingerprint DeviceFingerprint `json:"device_fingerprint"`
}

// TamperEvidenceSection compares original and final document hashes.
type TamperEvidenceSection struct {
	OriginalDocumentHash string `json:"original_document_hash"`
	FinalDocumentHash    string `json:"final_document_hash"`
	Algorithm            string `json:"algorithm"`
	TamperProof          bool   `json:"tamper_proof"`
}

package compliance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sealpoint/esign-portal/esign-portal-backend/internal/integrity"
	"sealpoint/esign-portal/esign-portal-backend/pkg/clock"
	"sealpoint/esign-portal/esign-portal-backend/pkg/geo"
)

// RetentionPolicy configures the retention section of generated records.
type RetentionPolicy struct {
	StorageLocation string
	Years           int
	ArchivePolicy   string
}

// DefaultRetentionPolicy keeps evidence for seven years under a
// write-once archive tag.
func DefaultRetentionPolicy(bucket string) RetentionPolicy {
	return RetentionPolicy{
		StorageLocation: "s3://" + bucket,
		Years:           7,
		ArchivePolicy:   "WORM",
	}
}

// Builder assembles compliance records from signer, contract and signature
// inputs. Geolocation is the only external call it makes.
type Builder struct {
	resolver  geo.Resolver
	clock     clock.Clock
	retention RetentionPolicy
	logger    *zap.Logger
}

func NewBuilder(resolver geo.Resolver, clk clock.Clock, retention RetentionPolicy, logger *zap.Logger) *Builder {
	return &Builder{
		resolver:  resolver,
		clock:     clk,
		retention: retention,
		logger:    logger,
	}
}

// SignerInput identifies and attributes the signer.
type SignerInput struct {
	SignerID             uuid.UUID
	Name                 string
	Email                string
	Role                 string
	AuthenticationMethod string
	ConsentTimestamp     time.Time
	ConsentMethod        string
}

// ContractInput carries the contract identity and both document hashes.
type ContractInput struct {
	ContractID           uuid.UUID
	ContractNumber       string
	OriginalDocumentHash string
	FinalDocumentHash    string
}

// SignatureInput carries the captured signature event.
type SignatureInput struct {
	Method        string
	SignatureHash string
	Timestamp     time.Time
}

// RequestInput carries the network and device provenance captured with the
// signing request.
type RequestInput struct {
	IPAddress      string
	UserAgent      string
	AcceptLanguage string
	AcceptEncoding string
}

// TimelineInput is the contract event timeline for the audit section.
type TimelineInput struct {
	CreatedAt *time.Time
	SentAt    *time.Time
	ViewedAt  *time.Time
	SignedAt  *time.Time
}

// Build assembles the seven-section legal record for one signature event.
func (b *Builder) Build(ctx context.Context, signer SignerInput, contract ContractInput, signature SignatureInput, request RequestInput, timeline TimelineInput) (*ComplianceRecord, error) {
	location := b.resolveLocation(ctx, request.IPAddress)

	finalHash := contract.FinalDocumentHash
	if finalHash == "" {
		finalHash = contract.OriginalDocumentHash
	}

	record := &ComplianceRecord{
		RecordID:    uuid.New(),
		ContractID:  contract.ContractID,
		SignerID:    signer.SignerID,
		GeneratedAt: b.clock.Now(),
		Standards:   Standards,
		Intent: IntentSection{
			SigningMethod:  signature.Method,
			ExplicitAction: true,
			Timestamp:      signature.Timestamp,
		},
		Consent: ConsentSection{
			ConsentText: ConsentText,
			TextVersion: ConsentTextVersion,
			Timestamp:   signer.ConsentTimestamp,
			Method:      signer.ConsentMethod,
			IPAddress:   request.IPAddress,
		},
		Association: AssociationSection{
			DocumentHash:  contract.OriginalDocumentHash,
			SignatureHash: signature.SignatureHash,
			Linkage:       "cryptographic",
			Timestamp:     signature.Timestamp,
		},
		Attribution: AttributionSection{
			SignerName:           signer.Name,
			SignerEmail:          signer.Email,
			SignerRole:           signer.Role,
			AuthenticationMethod: signer.AuthenticationMethod,
		},
		Retention: RetentionSection{
			StorageLocation: b.retention.StorageLocation,
			RetentionYears:  b.retention.Years,
			ArchivePolicy:   b.retention.ArchivePolicy,
			Retrievable:     true,
		},
		Audit: AuditSection{
			CreatedAt:         timeline.CreatedAt,
			SentAt:            timeline.SentAt,
			ViewedAt:          timeline.ViewedAt,
			SignedAt:          timeline.SignedAt,
			IPAddress:         request.IPAddress,
			Geolocation:       location,
			DeviceFingerprint: Fingerprint(request.UserAgent, request.AcceptLanguage, request.AcceptEncoding),
		},
		TamperEvidence: TamperEvidenceSection{
			OriginalDocumentHash: contract.OriginalDocumentHash,
			FinalDocumentHash:    finalHash,
			Algorithm:            integrity.HashAlgorithm,
			TamperProof:          finalHash != "",
		},
	}

	return record, nil
}

// resolveLocation short-circuits loopback and private addresses so local
// traffic never triggers a lookup.
func (b *Builder) resolveLocation(ctx context.Context, ipAddress string) geo.Location {
	if geo.IsLocalAddress(ipAddress) {
		return geo.Location{
			City:    "Local Development",
			Region:  "Local Development",
			Country: "Local Development",
		}
	}

	location, err := b.resolver.Lookup(ctx, ipAddress)
	if err != nil {
		b.logger.Warn("geolocation lookup failed",
			zap.String("ip_address", ipAddress),
			zap.Error(err))
		return geo.Unknown
	}
	return *location
}

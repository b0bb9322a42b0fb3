package audit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sealpoint/esign-portal/esign-portal-backend/internal/contracts"
)

// ContractRecorder implements contracts.Recorder on top of the audit event
// store. Appends are best effort: a failed write is logged, never surfaced
// to the signing path.
type ContractRecorder struct {
	repo   *Repository
	logger *zap.Logger
}

func NewContractRecorder(repo *Repository, logger *zap.Logger) *ContractRecorder {
	return &ContractRecorder{
		repo:   repo,
		logger: logger.With(zap.String("service", "audit")),
	}
}

func (r *ContractRecorder) ContractCreated(ctx context.Context, contract *contracts.Contract) {
	r.append(ctx, EventContractCreated, contract.ID, nil, map[string]any{
		"contract_number": contract.ContractNumber,
		"document_hash":   contract.DocumentHash,
	})
}

func (r *ContractRecorder) ContractSent(ctx context.Context, contract *contracts.Contract) {
	r.append(ctx, EventContractSent, contract.ID, nil, map[string]any{
		"contract_number": contract.ContractNumber,
		"sent_at":         contract.SentAt,
	})
}

func (r *ContractRecorder) ConsentRecorded(ctx context.Context, consent *contracts.ConsentRecord) {
	r.append(ctx, EventConsentRecorded, consent.ContractID, &consent.SignerID, map[string]any{
		"given":      consent.Given,
		"method":     consent.Method,
		"ip_address": consent.IPAddress,
	})
}

func (r *ContractRecorder) SignatureCaptured(ctx context.Context, signer *contracts.Signer) {
	r.append(ctx, EventSignatureCaptured, signer.ContractID, &signer.ID, map[string]any{
		"signature_hash": signer.SignatureHash,
		"method":         signer.SignatureMethod,
		"signed_at":      signer.SignedAt,
	})
}

func (r *ContractRecorder) ContractCompleted(ctx context.Context, contract *contracts.Contract) {
	r.append(ctx, EventContractCompleted, contract.ID, nil, map[string]any{
		"contract_number": contract.ContractNumber,
		"seal_hash":       contract.SealHash,
		"signed_at":       contract.SignedAt,
	})
}

func (r *ContractRecorder) append(ctx context.Context, eventType string, contractID uuid.UUID, signerID *uuid.UUID, payload map[string]any) {
	if err := r.repo.Append(ctx, contractID, signerID, eventType, payload); err != nil {
		r.logger.Warn("failed to append audit event",
			zap.String("event_type", eventType),
			zap.String("contract_id", contractID.String()),
			zap.Error(err))
	}
}

package verification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sealpoint/esign-portal/esign-portal-backend/internal/contracts"
	"sealpoint/esign-portal/esign-portal-backend/internal/integrity"
)

// AuditRecorder appends verification outcomes to the audit trail. The
// report itself stays re-derivable; the audit row only proves a run
// happened and what it concluded.
type AuditRecorder interface {
	RecordVerification(ctx context.Context, contractID uuid.UUID, report *Report) error
}

type Service struct {
	repo   contracts.Repository
	engine *Engine
	audit  AuditRecorder
	logger *zap.Logger
}

func NewService(repo contracts.Repository, engine *Engine, audit AuditRecorder, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		engine: engine,
		audit:  audit,
		logger: logger,
	}
}

// RunReport verifies one contract. Reports are never read back from
// storage; every call recomputes from persisted hashes and records.
func (s *Service) RunReport(ctx context.Context, contractID uuid.UUID) (*Report, error) {
	contract, err := s.repo.GetContractByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, fmt.Errorf("contract %s not found", contractID)
	}

	signers, err := s.repo.ListSigners(ctx, contractID)
	if err != nil {
		return nil, err
	}

	report := s.engine.Verify(ctx, contract, signers)

	if s.audit != nil {
		if err := s.audit.RecordVerification(ctx, contractID, report); err != nil {
			// The report is still valid; the audit append is best effort.
			s.logger.Warn("failed to record verification audit event",
				zap.String("contract_id", contractID.String()),
				zap.Error(err))
		}
	}
	return report, nil
}

// VerifyCode checks a shared verification code against a contract. The code
// is recomputed from the contract's persisted identity; nothing is looked
// up by code.
func (s *Service) VerifyCode(ctx context.Context, contractNumber, code string) (bool, error) {
	contract, err := s.repo.GetContractByNumber(ctx, contractNumber)
	if err != nil {
		return false, err
	}
	if contract == nil {
		return false, fmt.Errorf("contract %s not found", contractNumber)
	}
	if contract.Status != contracts.StatusCompleted || contract.SignedAt == nil || contract.DocumentHash == nil {
		return false, fmt.Errorf("contract %s is not completed", contractNumber)
	}

	return integrity.VerifyWithCode(code, integrity.CodeInput{
		ContractNumber: contract.ContractNumber,
		DocumentHash:   *contract.DocumentHash,
		SignedAt:       *contract.SignedAt,
	})
}

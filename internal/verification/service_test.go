package verification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"sealpoint/esign-portal/esign-portal-backend/internal/contracts"
	"sealpoint/esign-portal/esign-portal-backend/internal/integrity"
	"sealpoint/esign-portal/esign-portal-backend/pkg/clock"
	"sealpoint/esign-portal/esign-portal-backend/pkg/storage"
)

// stubRepo serves a single contract and its signers.
type stubRepo struct {
	contracts.Repository
	contract *contracts.Contract
	signers  []contracts.Signer
}

func (r *stubRepo) GetContractByID(ctx context.Context, id uuid.UUID) (*contracts.Contract, error) {
	if r.contract != nil && r.contract.ID == id {
		return r.contract, nil
	}
	return nil, nil
}

func (r *stubRepo) GetContractByNumber(ctx context.Context, number string) (*contracts.Contract, error) {
	if r.contract != nil && r.contract.ContractNumber == number {
		return r.contract, nil
	}
	return nil, nil
}

func (r *stubRepo) ListSigners(ctx context.Context, contractID uuid.UUID) ([]contracts.Signer, error) {
	return r.signers, nil
}

type recordingAudit struct {
	contractIDs []uuid.UUID
	reports     []*Report
}

func (a *recordingAudit) RecordVerification(ctx context.Context, contractID uuid.UUID, report *Report) error {
	a.contractIDs = append(a.contractIDs, contractID)
	a.reports = append(a.reports, report)
	return nil
}

func completedContract() *contracts.Contract {
	hash := integrity.ComputeHash([]byte("CONTRACT_V1")).Hex
	signedAt := time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC)
	return &contracts.Contract{
		ID:             uuid.New(),
		ContractNumber: "C-100",
		Status:         contracts.StatusCompleted,
		S3Bucket:       "sealpoint-docs",
		DocumentHash:   &hash,
		SignedAt:       &signedAt,
	}
}

func TestRunReportRecordsAuditEvent(t *testing.T) {
	contract := completedContract()
	repo := &stubRepo{contract: contract}
	audit := &recordingAudit{}
	engine := NewEngine(storage.NewMemoryClient(), clock.Fixed{T: verifyNow}, zap.NewNop())
	service := NewService(repo, engine, audit, zap.NewNop())

	report, err := service.RunReport(context.Background(), contract.ID)

	assert.NoError(t, err)
	assert.Equal(t, "C-100", report.ContractNumber)
	assert.Len(t, audit.reports, 1)
	assert.Equal(t, contract.ID, audit.contractIDs[0])
}

func TestRunReportUnknownContract(t *testing.T) {
	repo := &stubRepo{}
	engine := NewEngine(storage.NewMemoryClient(), clock.Fixed{T: verifyNow}, zap.NewNop())
	service := NewService(repo, engine, nil, zap.NewNop())

	_, err := service.RunReport(context.Background(), uuid.New())

	assert.Error(t, err)
}

func TestVerifyCodeRoundTrip(t *testing.T) {
	contract := completedContract()
	repo := &stubRepo{contract: contract}
	engine := NewEngine(storage.NewMemoryClient(), clock.Fixed{T: verifyNow}, zap.NewNop())
	service := NewService(repo, engine, nil, zap.NewNop())

	code := integrity.GenerateVerificationCode(integrity.CodeInput{
		ContractNumber: contract.ContractNumber,
		DocumentHash:   *contract.DocumentHash,
		SignedAt:       *contract.SignedAt,
	})

	ok, err := service.VerifyCode(context.Background(), "C-100", code)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.VerifyCode(context.Background(), "C-100", "0000-0000-0000-0000")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyCodeRequiresCompletedContract(t *testing.T) {
	contract := completedContract()
	contract.Status = contracts.StatusSent
	repo := &stubRepo{contract: contract}
	engine := NewEngine(storage.NewMemoryClient(), clock.Fixed{T: verifyNow}, zap.NewNop())
	service := NewService(repo, engine, nil, zap.NewNop())

	_, err := service.VerifyCode(context.Background(), "C-100", "AAAA-BBBB-CCCC-DDDD")

	assert.Error(t, err)
}

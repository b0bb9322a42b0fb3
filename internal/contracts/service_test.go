package contracts

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"sealpoint/esign-portal/esign-portal-backend/internal/compliance"
	"sealpoint/esign-portal/esign-portal-backend/internal/integrity"
	"sealpoint/esign-portal/esign-portal-backend/pkg/clock"
	"sealpoint/esign-portal/esign-portal-backend/pkg/geo"
	"sealpoint/esign-portal/esign-portal-backend/pkg/storage"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateContract(ctx context.Context, contract *Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockRepository) GetContractByID(ctx context.Context, id uuid.UUID) (*Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Contract), args.Error(1)
}

func (m *MockRepository) GetContractByNumber(ctx context.Context, number string) (*Contract, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Contract), args.Error(1)
}

func (m *MockRepository) ListContracts(ctx context.Context, status *ContractStatus) ([]Contract, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]Contract), args.Error(1)
}

func (m *MockRepository) UpdateContract(ctx context.Context, contract *Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockRepository) CreateSigner(ctx context.Context, signer *Signer) error {
	args := m.Called(ctx, signer)
	return args.Error(0)
}

func (m *MockRepository) GetSignerByID(ctx context.Context, id uuid.UUID) (*Signer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Signer), args.Error(1)
}

func (m *MockRepository) ListSigners(ctx context.Context, contractID uuid.UUID) ([]Signer, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).([]Signer), args.Error(1)
}

func (m *MockRepository) UpdateSigner(ctx context.Context, signer *Signer) error {
	args := m.Called(ctx, signer)
	return args.Error(0)
}

func (m *MockRepository) CreateConsent(ctx context.Context, consent *ConsentRecord) error {
	args := m.Called(ctx, consent)
	return args.Error(0)
}

func (m *MockRepository) GetConsentBySigner(ctx context.Context, signerID uuid.UUID) (*ConsentRecord, error) {
	args := m.Called(ctx, signerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ConsentRecord), args.Error(1)
}

func (m *MockRepository) CreateIntent(ctx context.Context, intent *IntentRecord) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

var serviceNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository) Service {
	resolver := geo.NewStaticResolver(nil)
	builder := compliance.NewBuilder(resolver, clock.Fixed{T: serviceNow}, compliance.DefaultRetentionPolicy("sealpoint-docs"), zap.NewNop())
	return NewService(repo, storage.NewMemoryClient(), "sealpoint-docs", builder, nil, clock.Fixed{T: serviceNow}, zap.NewNop())
}

func compliantTestSigner(contractID uuid.UUID, order int) *Signer {
	consentAt := serviceNow.Add(-time.Hour)
	return &Signer{
		ID:                     uuid.New(),
		ContractID:             contractID,
		Name:                   "Ana Duarte",
		Email:                  "ana@example.com",
		SignerOrder:            order,
		Status:                 SignerViewed,
		ConsentGiven:           true,
		ConsentTimestamp:       &consentAt,
		ConsentMethod:          "checkbox",
		AuthenticationVerified: true,
		AuthenticationMethod:   "email_otp",
		IPAddress:              "203.0.113.10",
		UserAgent:              "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0",
	}
}

func sentContract() *Contract {
	hash := integrity.ComputeHash([]byte("CONTRACT_V1")).Hex
	sentAt := serviceNow.Add(-2 * time.Hour)
	return &Contract{
		ID:             uuid.New(),
		ContractNumber: "C-100",
		Title:          "Employment Agreement",
		Status:         StatusSent,
		S3Bucket:       "sealpoint-docs",
		DocumentKey:    "contracts/x/documents/original",
		DocumentHash:   &hash,
		SentAt:         &sentAt,
		CreatedAt:      serviceNow.Add(-3 * time.Hour),
		Metadata:       []byte("{}"),
	}
}

func TestCreateContract(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	mockRepo.On("CreateContract", ctx, mock.AnythingOfType("*contracts.Contract")).Return(nil)

	contract, err := service.CreateContract(ctx, CreateContractRequest{
		ContractNumber:    "C-100",
		Title:             "Employment Agreement",
		SequentialSigning: true,
		FileContent:       strings.NewReader("CONTRACT_V1"),
		CreatedBy:         uuid.New(),
	})

	assert.NoError(t, err)
	assert.Equal(t, StatusDraft, contract.Status)
	assert.NotNil(t, contract.DocumentHash)
	assert.Equal(t, integrity.ComputeHash([]byte("CONTRACT_V1")).Hex, *contract.DocumentHash)
	mockRepo.AssertExpectations(t)
}

func TestCaptureSignatureRejectedByGate(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	contract := sentContract()
	signer := compliantTestSigner(contract.ID, 1)
	signer.ConsentGiven = false
	signer.AuthenticationVerified = false

	mockRepo.On("GetSignerByID", ctx, signer.ID).Return(signer, nil)
	mockRepo.On("GetContractByID", ctx, contract.ID).Return(contract, nil)

	_, err := service.CaptureSignature(ctx, signer.ID, SignatureRequest{
		Method: MethodDraw,
		Data:   []byte("SIG_A"),
		Request: RequestContext{
			IPAddress: signer.IPAddress,
			UserAgent: signer.UserAgent,
		},
	})

	var complianceErr *ComplianceError
	assert.ErrorAs(t, err, &complianceErr)
	assert.Equal(t, compliance.LevelNonCompliant, complianceErr.Result.Level)
	assert.Equal(t,
		[]compliance.ErrorCode{compliance.ErrConsentMissing, compliance.ErrAuthenticationRequired},
		complianceErr.Result.Errors)

	// the gate must stop any persistence of a signature
	mockRepo.AssertNotCalled(t, "UpdateSigner", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
}

func TestCaptureSignatureCompletesContract(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	contract := sentContract()
	signer := compliantTestSigner(contract.ID, 1)

	signedHash := integrity.ComputeHash([]byte("SIG_A")).Hex
	signedCopy := *signer
	signedCopy.Status = SignerSigned
	signedCopy.SignatureHash = &signedHash

	mockRepo.On("GetSignerByID", ctx, signer.ID).Return(signer, nil)
	mockRepo.On("GetContractByID", ctx, contract.ID).Return(contract, nil)
	mockRepo.On("CreateIntent", ctx, mock.AnythingOfType("*contracts.IntentRecord")).Return(nil)
	mockRepo.On("UpdateSigner", ctx, mock.AnythingOfType("*contracts.Signer")).Return(nil)
	mockRepo.On("ListSigners", ctx, contract.ID).Return([]Signer{signedCopy}, nil)
	mockRepo.On("UpdateContract", ctx, mock.AnythingOfType("*contracts.Contract")).Return(nil)

	result, err := service.CaptureSignature(ctx, signer.ID, SignatureRequest{
		Method: MethodDraw,
		Data:   []byte("SIG_A"),
		Request: RequestContext{
			IPAddress: signer.IPAddress,
			UserAgent: signer.UserAgent,
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, SignerSigned, result.Status)
	assert.Equal(t, signedHash, *result.SignatureHash)
	assert.Equal(t, serviceNow, *result.SignedAt)

	assert.Equal(t, StatusCompleted, contract.Status)
	expectedSeal := integrity.CreateSeal(integrity.SealInput{
		DocumentHash:    *contract.DocumentHash,
		SignatureHashes: []string{signedHash},
		Timestamp:       serviceNow,
		ContractNumber:  "C-100",
	})
	assert.Equal(t, expectedSeal, *contract.SealHash)
	mockRepo.AssertExpectations(t)
}

func TestCaptureSignatureEnforcesSequentialOrder(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	contract := sentContract()
	contract.SequentialSigning = true
	first := compliantTestSigner(contract.ID, 1)
	second := compliantTestSigner(contract.ID, 2)

	mockRepo.On("GetSignerByID", ctx, second.ID).Return(second, nil)
	mockRepo.On("GetContractByID", ctx, contract.ID).Return(contract, nil)
	mockRepo.On("ListSigners", ctx, contract.ID).Return([]Signer{*first, *second}, nil)

	_, err := service.CaptureSignature(ctx, second.ID, SignatureRequest{
		Method: MethodClick,
		Data:   []byte("SIG_B"),
		Request: RequestContext{
			IPAddress: second.IPAddress,
			UserAgent: second.UserAgent,
		},
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot sign before")
	mockRepo.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
}

func TestCaptureSignatureRejectsDoubleSigning(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	contract := sentContract()
	signer := compliantTestSigner(contract.ID, 1)
	signer.Status = SignerSigned

	mockRepo.On("GetSignerByID", ctx, signer.ID).Return(signer, nil)

	_, err := service.CaptureSignature(ctx, signer.ID, SignatureRequest{
		Method: MethodDraw,
		Data:   []byte("SIG_A"),
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already signed")
}

type fakeRecorder struct {
	created    int
	sent       int
	consents   int
	signatures int
	completed  int
}

func (r *fakeRecorder) ContractCreated(ctx context.Context, contract *Contract)    { r.created++ }
func (r *fakeRecorder) ContractSent(ctx context.Context, contract *Contract)      { r.sent++ }
func (r *fakeRecorder) ConsentRecorded(ctx context.Context, c *ConsentRecord)     { r.consents++ }
func (r *fakeRecorder) SignatureCaptured(ctx context.Context, signer *Signer)     { r.signatures++ }
func (r *fakeRecorder) ContractCompleted(ctx context.Context, contract *Contract) { r.completed++ }

func TestCaptureSignatureNotifiesRecorder(t *testing.T) {
	mockRepo := new(MockRepository)
	recorder := &fakeRecorder{}
	resolver := geo.NewStaticResolver(nil)
	builder := compliance.NewBuilder(resolver, clock.Fixed{T: serviceNow}, compliance.DefaultRetentionPolicy("sealpoint-docs"), zap.NewNop())
	service := NewService(mockRepo, storage.NewMemoryClient(), "sealpoint-docs", builder, recorder, clock.Fixed{T: serviceNow}, zap.NewNop())
	ctx := context.Background()

	contract := sentContract()
	signer := compliantTestSigner(contract.ID, 1)

	signedHash := integrity.ComputeHash([]byte("SIG_A")).Hex
	signedCopy := *signer
	signedCopy.Status = SignerSigned
	signedCopy.SignatureHash = &signedHash

	mockRepo.On("GetSignerByID", ctx, signer.ID).Return(signer, nil)
	mockRepo.On("GetContractByID", ctx, contract.ID).Return(contract, nil)
	mockRepo.On("CreateIntent", ctx, mock.AnythingOfType("*contracts.IntentRecord")).Return(nil)
	mockRepo.On("UpdateSigner", ctx, mock.AnythingOfType("*contracts.Signer")).Return(nil)
	mockRepo.On("ListSigners", ctx, contract.ID).Return([]Signer{signedCopy}, nil)
	mockRepo.On("UpdateContract", ctx, mock.AnythingOfType("*contracts.Contract")).Return(nil)

	_, err := service.CaptureSignature(ctx, signer.ID, SignatureRequest{
		Method: MethodDraw,
		Data:   []byte("SIG_A"),
		Request: RequestContext{
			IPAddress: signer.IPAddress,
			UserAgent: signer.UserAgent,
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, recorder.signatures)
	assert.Equal(t, 1, recorder.completed)
}

func TestVerificationCodeRecomputed(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	contract := sentContract()
	contract.Status = StatusCompleted
	signedAt := serviceNow.Add(-time.Hour)
	contract.SignedAt = &signedAt

	mockRepo.On("GetContractByID", ctx, contract.ID).Return(contract, nil)

	code, err := service.VerificationCode(ctx, contract.ID)

	assert.NoError(t, err)
	expected := integrity.GenerateVerificationCode(integrity.CodeInput{
		ContractNumber: contract.ContractNumber,
		DocumentHash:   *contract.DocumentHash,
		SignedAt:       signedAt,
	})
	assert.Equal(t, expected, code)

	// the code is derived, never persisted; asking twice recomputes it
	again, err := service.VerificationCode(ctx, contract.ID)
	assert.NoError(t, err)
	assert.Equal(t, code, again)
}

func TestVerificationCodeRequiresCompletion(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	contract := sentContract()
	mockRepo.On("GetContractByID", ctx, contract.ID).Return(contract, nil)

	_, err := service.VerificationCode(ctx, contract.ID)
	assert.Error(t, err)
}

func TestBuildComplianceRecord(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	contract := sentContract()
	signer := compliantTestSigner(contract.ID, 1)
	signer.Status = SignerSigned
	method := MethodDraw
	hash := integrity.ComputeHash([]byte("SIG_A")).Hex
	signedAt := serviceNow.Add(-time.Hour)
	signer.SignatureMethod = &method
	signer.SignatureHash = &hash
	signer.SignedAt = &signedAt

	mockRepo.On("GetSignerByID", ctx, signer.ID).Return(signer, nil)
	mockRepo.On("GetContractByID", ctx, contract.ID).Return(contract, nil)

	record, err := service.BuildComplianceRecord(ctx, signer.ID)

	assert.NoError(t, err)
	assert.Equal(t, signer.ID, record.SignerID)
	assert.Equal(t, contract.ID, record.ContractID)
	assert.Equal(t, "draw", record.Intent.SigningMethod)
	assert.Equal(t, hash, record.Association.SignatureHash)
	assert.Equal(t, *contract.DocumentHash, record.Association.DocumentHash)
}

package contracts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sealpoint/esign-portal/esign-portal-backend/internal/compliance"
	"sealpoint/esign-portal/esign-portal-backend/internal/integrity"
	"sealpoint/esign-portal/esign-portal-backend/pkg/clock"
	"sealpoint/esign-portal/esign-portal-backend/pkg/storage"
	"sealpoint/esign-portal/esign-portal-backend/pkg/workflows"
)

// ComplianceError is returned when the compliance gate rejects a signature
// attempt. It carries the full validation result so callers can report
// every violation, not just the first.
type ComplianceError struct {
	Result compliance.Result
}

func (e *ComplianceError) Error() string {
	return fmt.Sprintf("signer is non-compliant: %d violation(s)", len(e.Result.Errors))
}

// Recorder receives contract lifecycle events for the audit trail. All
// methods are best effort: recording must never fail a signing operation.
type Recorder interface {
	ContractCreated(ctx context.Context, contract *Contract)
	ContractSent(ctx context.Context, contract *Contract)
	ConsentRecorded(ctx context.Context, consent *ConsentRecord)
	SignatureCaptured(ctx context.Context, signer *Signer)
	ContractCompleted(ctx context.Context, contract *Contract)
}

type Service interface {
	CreateContract(ctx context.Context, req CreateContractRequest) (*Contract, error)
	GetContract(ctx context.Context, id uuid.UUID) (*Contract, error)
	GetContractByNumber(ctx context.Context, number string) (*Contract, error)
	ListContracts(ctx context.Context, status *ContractStatus) ([]Contract, error)
	SendContract(ctx context.Context, id uuid.UUID) (*Contract, error)
	DownloadDocument(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)

	AddSigner(ctx context.Context, contractID uuid.UUID, req AddSignerRequest) (*Signer, error)
	ListSigners(ctx context.Context, contractID uuid.UUID) ([]Signer, error)
	MarkViewed(ctx context.Context, signerID uuid.UUID) error
	RecordConsent(ctx context.Context, signerID uuid.UUID, req ConsentRequest) (*ConsentRecord, error)
	CaptureSignature(ctx context.Context, signerID uuid.UUID, req SignatureRequest) (*Signer, error)

	VerificationCode(ctx context.Context, contractID uuid.UUID) (string, error)
	BuildComplianceRecord(ctx context.Context, signerID uuid.UUID) (*compliance.ComplianceRecord, error)
}

type CreateContractRequest struct {
	ContractNumber    string
	Title             string
	SequentialSigning bool
	FileContent       io.Reader
	CreatedBy         uuid.UUID
}

type AddSignerRequest struct {
	Name        string
	Email       string
	Role        string
	SignerOrder int
}

// RequestContext is the network/device provenance captured with an inbound
// signer action.
type RequestContext struct {
	IPAddress      string
	UserAgent      string
	AcceptLanguage string
	AcceptEncoding string
}

type ConsentRequest struct {
	Given       bool
	Method      string
	AuthMethod  string
	Request     RequestContext
	Geolocation []byte
}

type SignatureRequest struct {
	Method  SignatureMethod
	Data    []byte
	Request RequestContext
}

type contractService struct {
	repo     Repository
	storage  storage.S3Client
	bucket   string
	builder  *compliance.Builder
	states   *workflows.StateMachine
	clock    clock.Clock
	logger   *zap.Logger
	recorder Recorder
}

func NewService(repo Repository, s3 storage.S3Client, bucket string, builder *compliance.Builder, recorder Recorder, clk clock.Clock, logger *zap.Logger) Service {
	return &contractService{
		repo:     repo,
		storage:  s3,
		bucket:   bucket,
		builder:  builder,
		states:   workflows.NewStateMachine(),
		clock:    clk,
		logger:   logger.With(zap.String("service", "contracts")),
		recorder: recorder,
	}
}

func (s *contractService) CreateContract(ctx context.Context, req CreateContractRequest) (*Contract, error) {
	content, err := io.ReadAll(req.FileContent)
	if err != nil {
		return nil, fmt.Errorf("%w: reading contract document: %v", integrity.ErrSourceUnavailable, err)
	}

	contractID := uuid.New()
	digest := integrity.ComputeHash(content)
	key := documentKey(contractID, "original")

	if err := s.storage.Upload(ctx, s.bucket, key, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("uploading contract document: %w", err)
	}

	hash := digest.Hex
	contract := &Contract{
		ID:                contractID,
		ContractNumber:    req.ContractNumber,
		Title:             req.Title,
		Status:            StatusDraft,
		SequentialSigning: req.SequentialSigning,
		S3Bucket:          s.bucket,
		DocumentKey:       key,
		DocumentHash:      &hash,
		CreatedBy:         req.CreatedBy,
		CreatedAt:         s.clock.Now(),
		Metadata:          []byte("{}"),
	}

	if err := s.repo.CreateContract(ctx, contract); err != nil {
		return nil, err
	}

	s.logger.Info("contract created",
		zap.String("contract_id", contractID.String()),
		zap.String("contract_number", req.ContractNumber),
		zap.String("document_hash", hash))

	if s.recorder != nil {
		s.recorder.ContractCreated(ctx, contract)
	}
	return contract, nil
}

func (s *contractService) GetContract(ctx context.Context, id uuid.UUID) (*Contract, error) {
	return s.repo.GetContractByID(ctx, id)
}

func (s *contractService) GetContractByNumber(ctx context.Context, number string) (*Contract, error) {
	return s.repo.GetContractByNumber(ctx, number)
}

func (s *contractService) ListContracts(ctx context.Context, status *ContractStatus) ([]Contract, error) {
	return s.repo.ListContracts(ctx, status)
}

func (s *contractService) SendContract(ctx context.Context, id uuid.UUID) (*Contract, error) {
	contract, err := s.requireContract(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(contract, StatusSent); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	contract.SentAt = &now

	if err := s.repo.UpdateContract(ctx, contract); err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.ContractSent(ctx, contract)
	}
	return contract, nil
}

func (s *contractService) DownloadDocument(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	contract, err := s.requireContract(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.storage.Download(ctx, contract.S3Bucket, contract.DocumentKey)
}

func (s *contractService) AddSigner(ctx context.Context, contractID uuid.UUID, req AddSignerRequest) (*Signer, error) {
	if _, err := s.requireContract(ctx, contractID); err != nil {
		return nil, err
	}

	signer := &Signer{
		ID:          uuid.New(),
		ContractID:  contractID,
		Name:        req.Name,
		Email:       req.Email,
		Role:        req.Role,
		SignerOrder: req.SignerOrder,
		Status:      SignerPending,
	}

	if err := s.repo.CreateSigner(ctx, signer); err != nil {
		return nil, err
	}
	return signer, nil
}

func (s *contractService) ListSigners(ctx context.Context, contractID uuid.UUID) ([]Signer, error) {
	return s.repo.ListSigners(ctx, contractID)
}

func (s *contractService) MarkViewed(ctx context.Context, signerID uuid.UUID) error {
	signer, err := s.requireSigner(ctx, signerID)
	if err != nil {
		return err
	}
	if signer.ViewedAt != nil {
		return nil
	}
	now := s.clock.Now()
	signer.ViewedAt = &now
	if signer.Status == SignerPending {
		signer.Status = SignerViewed
	}
	return s.repo.UpdateSigner(ctx, signer)
}

func (s *contractService) RecordConsent(ctx context.Context, signerID uuid.UUID, req ConsentRequest) (*ConsentRecord, error) {
	signer, err := s.requireSigner(ctx, signerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	geolocation := req.Geolocation
	if len(geolocation) == 0 {
		geolocation = []byte("{}")
	}

	consent := &ConsentRecord{
		ID:          uuid.New(),
		SignerID:    signer.ID,
		ContractID:  signer.ContractID,
		Given:       req.Given,
		Timestamp:   now,
		ConsentText: compliance.ConsentText,
		Method:      req.Method,
		IPAddress:   req.Request.IPAddress,
		UserAgent:   req.Request.UserAgent,
		Geolocation: geolocation,
	}

	if err := s.repo.CreateConsent(ctx, consent); err != nil {
		return nil, err
	}

	signer.ConsentGiven = req.Given
	signer.ConsentTimestamp = &now
	signer.ConsentMethod = req.Method
	signer.AuthenticationVerified = true
	signer.AuthenticationMethod = req.AuthMethod
	signer.IPAddress = req.Request.IPAddress
	signer.UserAgent = req.Request.UserAgent

	if err := s.repo.UpdateSigner(ctx, signer); err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.ConsentRecorded(ctx, consent)
	}
	return consent, nil
}

// CaptureSignature runs the compliance gate, hashes and stores the raw
// signature payload, records intent, and finalizes the contract when the
// last signer completes. Signature rows are append-only: signing twice is
// an error.
func (s *contractService) CaptureSignature(ctx context.Context, signerID uuid.UUID, req SignatureRequest) (*Signer, error) {
	signer, err := s.requireSigner(ctx, signerID)
	if err != nil {
		return nil, err
	}
	if signer.Status == SignerSigned {
		return nil, fmt.Errorf("signer %s has already signed", signerID)
	}
	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: unknown signature method %q", integrity.ErrMalformedInput, req.Method)
	}

	contract, err := s.requireContract(ctx, signer.ContractID)
	if err != nil {
		return nil, err
	}

	if contract.SequentialSigning {
		if err := s.checkTurn(ctx, contract, signer); err != nil {
			return nil, err
		}
	}

	// The gate. Validation reports all violations together; a non-compliant
	// attempt must not produce a signature row.
	result := compliance.Validate(compliance.SignerRecord{
		SignerID:               signer.ID,
		ConsentGiven:           signer.ConsentGiven,
		ConsentTimestamp:       signer.ConsentTimestamp,
		AuthenticationVerified: signer.AuthenticationVerified,
		IPAddress:              firstNonEmpty(req.Request.IPAddress, signer.IPAddress),
		UserAgent:              firstNonEmpty(req.Request.UserAgent, signer.UserAgent),
	})
	if !result.Valid {
		s.logger.Warn("signature rejected by compliance gate",
			zap.String("signer_id", signerID.String()),
			zap.Any("violations", result.Errors))
		return nil, &ComplianceError{Result: result}
	}

	digest := integrity.ComputeHash(req.Data)
	key := signatureKey(contract.ID, signer.ID)
	if err := s.storage.Upload(ctx, contract.S3Bucket, key, bytes.NewReader(req.Data)); err != nil {
		return nil, fmt.Errorf("uploading signature payload: %w", err)
	}

	now := s.clock.Now()
	intent := &IntentRecord{
		ID:         uuid.New(),
		SignerID:   signer.ID,
		ContractID: contract.ID,
		Action:     "sign_document",
		Explicit:   true,
		Witnessed:  true,
		IPAddress:  req.Request.IPAddress,
		Timestamp:  now,
	}
	if err := s.repo.CreateIntent(ctx, intent); err != nil {
		return nil, err
	}

	method := req.Method
	hash := digest.Hex
	signer.Status = SignerSigned
	signer.SignatureMethod = &method
	signer.SignatureKey = &key
	signer.SignatureHash = &hash
	signer.SignedAt = &now
	signer.IPAddress = firstNonEmpty(req.Request.IPAddress, signer.IPAddress)
	signer.UserAgent = firstNonEmpty(req.Request.UserAgent, signer.UserAgent)

	if err := s.repo.UpdateSigner(ctx, signer); err != nil {
		return nil, err
	}

	s.logger.Info("signature captured",
		zap.String("signer_id", signer.ID.String()),
		zap.String("contract_id", contract.ID.String()),
		zap.String("signature_hash", hash))

	if s.recorder != nil {
		s.recorder.SignatureCaptured(ctx, signer)
	}

	if err := s.advanceContract(ctx, contract); err != nil {
		return nil, err
	}
	return signer, nil
}

// advanceContract moves the contract to partially_signed or completed based
// on signer state. Completion computes the tamper-evident seal over the
// document hash and every signature hash.
func (s *contractService) advanceContract(ctx context.Context, contract *Contract) error {
	signers, err := s.repo.ListSigners(ctx, contract.ID)
	if err != nil {
		return err
	}

	signed := 0
	var signatureHashes []string
	for _, signer := range signers {
		if signer.Status == SignerSigned && signer.SignatureHash != nil {
			signed++
			signatureHashes = append(signatureHashes, *signer.SignatureHash)
		}
	}

	if signed < len(signers) {
		if contract.Status == StatusSent && signed > 0 {
			if err := s.transition(contract, StatusPartiallySigned); err != nil {
				return err
			}
			return s.repo.UpdateContract(ctx, contract)
		}
		return nil
	}

	now := s.clock.Now()
	seal := integrity.CreateSeal(integrity.SealInput{
		DocumentHash:    derefOr(contract.DocumentHash, ""),
		SignatureHashes: signatureHashes,
		Timestamp:       now,
		ContractNumber:  contract.ContractNumber,
	})

	if err := s.transition(contract, StatusCompleted); err != nil {
		return err
	}
	contract.SealHash = &seal
	contract.SignedAt = &now

	if err := s.repo.UpdateContract(ctx, contract); err != nil {
		return err
	}

	s.logger.Info("contract completed",
		zap.String("contract_id", contract.ID.String()),
		zap.String("seal_hash", seal))

	if s.recorder != nil {
		s.recorder.ContractCompleted(ctx, contract)
	}
	return nil
}

// checkTurn enforces sequential signing: every signer with a lower order
// must have signed already.
func (s *contractService) checkTurn(ctx context.Context, contract *Contract, signer *Signer) error {
	signers, err := s.repo.ListSigners(ctx, contract.ID)
	if err != nil {
		return err
	}
	for _, other := range signers {
		if other.SignerOrder < signer.SignerOrder && other.Status != SignerSigned {
			return fmt.Errorf("signer %s cannot sign before signer %s (order %d)", signer.ID, other.ID, other.SignerOrder)
		}
	}
	return nil
}

// VerificationCode recomputes the shareable code for a completed contract.
// Codes are never stored; they are derived from the persisted hash and
// completion timestamp on every request.
func (s *contractService) VerificationCode(ctx context.Context, contractID uuid.UUID) (string, error) {
	contract, err := s.requireContract(ctx, contractID)
	if err != nil {
		return "", err
	}
	if contract.Status != StatusCompleted || contract.SignedAt == nil || contract.DocumentHash == nil {
		return "", fmt.Errorf("contract %s is not completed", contractID)
	}

	return integrity.GenerateVerificationCode(integrity.CodeInput{
		ContractNumber: contract.ContractNumber,
		DocumentHash:   *contract.DocumentHash,
		SignedAt:       *contract.SignedAt,
	}), nil
}

// BuildComplianceRecord regenerates the legal audit record for one signer.
// The record is a projection over persisted rows, never stored state.
func (s *contractService) BuildComplianceRecord(ctx context.Context, signerID uuid.UUID) (*compliance.ComplianceRecord, error) {
	signer, err := s.requireSigner(ctx, signerID)
	if err != nil {
		return nil, err
	}
	contract, err := s.requireContract(ctx, signer.ContractID)
	if err != nil {
		return nil, err
	}
	if signer.Status != SignerSigned || signer.SignatureHash == nil || signer.SignedAt == nil {
		return nil, fmt.Errorf("signer %s has not signed", signerID)
	}

	return s.builder.Build(ctx,
		compliance.SignerInput{
			SignerID:             signer.ID,
			Name:                 signer.Name,
			Email:                signer.Email,
			Role:                 signer.Role,
			AuthenticationMethod: signer.AuthenticationMethod,
			ConsentTimestamp:     derefTime(signer.ConsentTimestamp),
			ConsentMethod:        signer.ConsentMethod,
		},
		compliance.ContractInput{
			ContractID:           contract.ID,
			ContractNumber:       contract.ContractNumber,
			OriginalDocumentHash: derefOr(contract.DocumentHash, ""),
			FinalDocumentHash:    derefOr(contract.SignedDocumentHash, ""),
		},
		compliance.SignatureInput{
			Method:        string(derefMethod(signer.SignatureMethod)),
			SignatureHash: *signer.SignatureHash,
			Timestamp:     *signer.SignedAt,
		},
		compliance.RequestInput{
			IPAddress: signer.IPAddress,
			UserAgent: signer.UserAgent,
		},
		compliance.TimelineInput{
			CreatedAt: &contract.CreatedAt,
			SentAt:    contract.SentAt,
			ViewedAt:  signer.ViewedAt,
			SignedAt:  signer.SignedAt,
		},
	)
}

func (s *contractService) requireContract(ctx context.Context, id uuid.UUID) (*Contract, error) {
	contract, err := s.repo.GetContractByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, fmt.Errorf("contract %s not found", id)
	}
	return contract, nil
}

func (s *contractService) requireSigner(ctx context.Context, id uuid.UUID) (*Signer, error) {
	signer, err := s.repo.GetSignerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if signer == nil {
		return nil, fmt.Errorf("signer %s not found", id)
	}
	return signer, nil
}

func (s *contractService) transition(contract *Contract, to ContractStatus) error {
	if !s.states.CanTransition(string(contract.Status), string(to)) {
		return fmt.Errorf("cannot transition contract %s from %s to %s", contract.ID, contract.Status, to)
	}
	contract.Status = to
	return nil
}

func documentKey(contractID uuid.UUID, label string) string {
	return fmt.Sprintf("contracts/%s/documents/%s", contractID, label)
}

func signatureKey(contractID, signerID uuid.UUID) string {
	return fmt.Sprintf("contracts/%s/signatures/%s", contractID, signerID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func derefMethod(m *SignatureMethod) SignatureMethod {
	if m == nil {
		return ""
	}
	return *m
}

package verification

import (
	"bytes"
	"context"
	"fmt"
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

var verifyNow = time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)

type fixture struct {
	store    *storage.MemoryClient
	engine   *Engine
	contract *contracts.Contract
	signers  []contracts.Signer
}

// newFixture builds a completed three-signer contract whose document and
// signature payloads live in the in-memory store with matching hashes.
func newFixture(t *testing.T, sequential bool) *fixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryClient()

	docBytes := []byte("CONTRACT_V1")
	docHash := integrity.ComputeHash(docBytes).Hex
	signedKey := "contracts/c-100/documents/signed"
	assert.NoError(t, store.Upload(ctx, "sealpoint-docs", signedKey, bytes.NewReader(docBytes)))

	contract := &contracts.Contract{
		ID:                 uuid.New(),
		ContractNumber:     "C-100",
		Status:             contracts.StatusCompleted,
		SequentialSigning:  sequential,
		S3Bucket:           "sealpoint-docs",
		DocumentKey:        "contracts/c-100/documents/original",
		DocumentHash:       &docHash,
		SignedDocumentKey:  &signedKey,
		SignedDocumentHash: &docHash,
	}

	var signers []contracts.Signer
	for i, payload := range []string{"SIG_A", "SIG_B", "SIG_C"} {
		key := fmt.Sprintf("contracts/c-100/signatures/%d", i+1)
		assert.NoError(t, store.Upload(ctx, "sealpoint-docs", key, bytes.NewReader([]byte(payload))))
		hash := integrity.ComputeHash([]byte(payload)).Hex
		signedAt := verifyNow.Add(time.Duration(i) * time.Minute)
		keyCopy := key
		signers = append(signers, contracts.Signer{
			ID:            uuid.New(),
			ContractID:    contract.ID,
			Email:         fmt.Sprintf("signer%d@example.com", i+1),
			SignerOrder:   i + 1,
			Status:        contracts.SignerSigned,
			SignatureKey:  &keyCopy,
			SignatureHash: &hash,
			SignedAt:      &signedAt,
		})
	}

	return &fixture{
		store:    store,
		engine:   NewEngine(store, clock.Fixed{T: verifyNow}, zap.NewNop()),
		contract: contract,
		signers:  signers,
	}
}

func checksByType(report *Report, checkType CheckType) []CheckResult {
	var out []CheckResult
	for _, check := range report.Checks {
		if check.CheckType == checkType {
			out = append(out, check)
		}
	}
	return out
}

func TestVerifyIntactContract(t *testing.T) {
	f := newFixture(t, true)

	report := f.engine.Verify(context.Background(), f.contract, f.signers)

	assert.Equal(t, StatusValid, report.OverallStatus)
	assert.Equal(t, verifyNow, report.VerifiedAt)
	// 1 document + 3 signatures + order + completion
	assert.Equal(t, 6, report.Summary.TotalChecks)
	assert.Equal(t, 6, report.Summary.Passed)
	assert.Equal(t, 0, report.Summary.Failed)
	for _, check := range report.Checks {
		assert.True(t, check.Passed, string(check.CheckType))
	}
}

func TestVerifyDetectsDocumentTampering(t *testing.T) {
	f := newFixture(t, false)

	// mutate a single byte of the stored signed document
	tampered := []byte("CONTRACT_V2")
	assert.NoError(t, f.store.Upload(context.Background(), "sealpoint-docs", *f.contract.SignedDocumentKey, bytes.NewReader(tampered)))

	report := f.engine.Verify(context.Background(), f.contract, f.signers)

	assert.Equal(t, StatusInvalid, report.OverallStatus)
	docChecks := checksByType(report, CheckDocumentIntegrity)
	assert.Len(t, docChecks, 1)
	assert.False(t, docChecks[0].Passed)
	assert.Equal(t, ErrorIntegrityMismatch, docChecks[0].ErrorKind)
	assert.Equal(t, *f.contract.SignedDocumentHash, docChecks[0].ExpectedHash)
	assert.Equal(t, integrity.ComputeHash(tampered).Hex, docChecks[0].ActualHash)
}

func TestVerifySkipsDocumentCheckWithoutRecordedHash(t *testing.T) {
	f := newFixture(t, false)
	f.contract.SignedDocumentHash = nil
	f.contract.SignedDocumentKey = nil

	report := f.engine.Verify(context.Background(), f.contract, f.signers)

	assert.Empty(t, checksByType(report, CheckDocumentIntegrity))
	assert.Equal(t, StatusValid, report.OverallStatus)
}

func TestVerifyDetectsSignatureTampering(t *testing.T) {
	f := newFixture(t, false)

	// replace the second signer's stored payload
	assert.NoError(t, f.store.Upload(context.Background(), "sealpoint-docs", *f.signers[1].SignatureKey, bytes.NewReader([]byte("SIG_FORGED"))))

	report := f.engine.Verify(context.Background(), f.contract, f.signers)

	assert.Equal(t, StatusInvalid, report.OverallStatus)
	sigChecks := checksByType(report, CheckSignatureIntegrity)
	assert.Len(t, sigChecks, 3)
	assert.True(t, sigChecks[0].Passed)
	assert.False(t, sigChecks[1].Passed)
	assert.True(t, sigChecks[2].Passed)
	assert.Equal(t, ErrorIntegrityMismatch, sigChecks[1].ErrorKind)
	assert.Equal(t, f.signers[1].ID, *sigChecks[1].SignerID)
}

func TestVerifyDetectsSigningOrderViolation(t *testing.T) {
	f := newFixture(t, true)

	// signerOrder [1,2,3] with signedAt [T, T-1, T+1]: signer 2 signed first
	early := verifyNow.Add(-time.Minute)
	late := verifyNow.Add(time.Minute)
	f.signers[0].SignedAt = &verifyNow
	f.signers[1].SignedAt = &early
	f.signers[2].SignedAt = &late

	report := f.engine.Verify(context.Background(), f.contract, f.signers)

	assert.Equal(t, StatusInvalid, report.OverallStatus)
	orderChecks := checksByType(report, CheckSigningOrder)
	assert.Len(t, orderChecks, 1)
	assert.False(t, orderChecks[0].Passed)
	assert.Contains(t, orderChecks[0].Detail, "signing order violated")
}

func TestVerifySkipsOrderCheckForParallelContracts(t *testing.T) {
	f := newFixture(t, false)

	report := f.engine.Verify(context.Background(), f.contract, f.signers)

	assert.Empty(t, checksByType(report, CheckSigningOrder))
}

func TestVerifyDistinguishesIncompletenessFromTampering(t *testing.T) {
	f := newFixture(t, true)

	// third signer has not signed: hashes intact, no ordering violation
	f.signers[2].Status = contracts.SignerPending
	f.signers[2].SignatureKey = nil
	f.signers[2].SignatureHash = nil
	f.signers[2].SignedAt = nil

	report := f.engine.Verify(context.Background(), f.contract, f.signers)

	assert.Equal(t, StatusValid, report.OverallStatus)
	completion := checksByType(report, CheckAllSignersComplete)
	assert.Len(t, completion, 1)
	assert.False(t, completion[0].Passed)
	assert.Equal(t, "2 of 3 signers have signed", completion[0].Detail)
	assert.Equal(t, 1, report.Summary.Failed)
}

func TestVerifyIsolatesStorageFailureToOneCheck(t *testing.T) {
	f := newFixture(t, true)
	f.store.FailKeys[*f.signers[0].SignatureKey] = true

	report := f.engine.Verify(context.Background(), f.contract, f.signers)

	sigChecks := checksByType(report, CheckSignatureIntegrity)
	assert.Len(t, sigChecks, 3)
	assert.False(t, sigChecks[0].Passed)
	assert.Equal(t, ErrorSourceUnavailable, sigChecks[0].ErrorKind)
	assert.True(t, sigChecks[1].Passed)
	assert.True(t, sigChecks[2].Passed)

	// the other checks still ran and passed
	assert.True(t, checksByType(report, CheckDocumentIntegrity)[0].Passed)
	assert.True(t, checksByType(report, CheckSigningOrder)[0].Passed)
}

func TestVerifyDeterministicAcrossInputOrder(t *testing.T) {
	f := newFixture(t, true)

	forward := f.engine.Verify(context.Background(), f.contract, f.signers)

	reversed := make([]contracts.Signer, len(f.signers))
	for i, signer := range f.signers {
		reversed[len(f.signers)-1-i] = signer
	}
	backward := f.engine.Verify(context.Background(), f.contract, reversed)

	assert.Equal(t, forward.Checks, backward.Checks)
	assert.Equal(t, forward.Summary, backward.Summary)
	assert.Equal(t, forward.OverallStatus, backward.OverallStatus)
}

func TestVerifyRepeatedRunsYieldIdenticalChecks(t *testing.T) {
	f := newFixture(t, true)

	first := f.engine.Verify(context.Background(), f.contract, f.signers)
	second := f.engine.Verify(context.Background(), f.contract, f.signers)

	assert.Equal(t, first.Checks, second.Checks)
	assert.Equal(t, first.OverallStatus, second.OverallStatus)
}

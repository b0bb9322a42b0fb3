package verification

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"sealpoint/esign-portal/esign-portal-backend/internal/contracts"
	"sealpoint/esign-portal/esign-portal-backend/internal/integrity"
	"sealpoint/esign-portal/esign-portal-backend/pkg/clock"
	"sealpoint/esign-portal/esign-portal-backend/pkg/storage"
)

const defaultMaxWorkers = 5

// Engine re-verifies a contract from its persisted hashes and records. It
// holds no per-contract state: verifications of different contracts are
// fully independent.
type Engine struct {
	storage    storage.S3Client
	clock      clock.Clock
	logger     *zap.Logger
	maxWorkers int
}

func NewEngine(s3 storage.S3Client, clk clock.Clock, logger *zap.Logger) *Engine {
	return &Engine{
		storage:    s3,
		clock:      clk,
		logger:     logger.With(zap.String("service", "verification")),
		maxWorkers: defaultMaxWorkers,
	}
}

// Verify runs every applicable check and aggregates them into a report.
// Signature-integrity checks fan out over a bounded worker pool; results
// are slotted by signer index so completion order never changes the output.
// Incompleteness is reported but never flips the overall status; only
// integrity and ordering failures do.
func (e *Engine) Verify(ctx context.Context, contract *contracts.Contract, signers []contracts.Signer) *Report {
	// Stable signer order regardless of how the caller fetched them.
	ordered := make([]contracts.Signer, len(signers))
	copy(ordered, signers)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SignerOrder != ordered[j].SignerOrder {
			return ordered[i].SignerOrder < ordered[j].SignerOrder
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	var checks []CheckResult

	if doc := e.checkDocumentIntegrity(ctx, contract); doc != nil {
		checks = append(checks, *doc)
	}
	checks = append(checks, e.checkSignatureIntegrity(ctx, contract, ordered)...)
	if order := e.checkSigningOrder(contract, ordered); order != nil {
		checks = append(checks, *order)
	}
	checks = append(checks, e.checkCompletion(ordered))

	overall := StatusValid
	summary := Summary{TotalChecks: len(checks)}
	for _, check := range checks {
		if check.Passed {
			summary.Passed++
			continue
		}
		summary.Failed++
		if check.CheckType != CheckAllSignersComplete {
			overall = StatusInvalid
		}
	}

	report := &Report{
		ContractNumber: contract.ContractNumber,
		VerifiedAt:     e.clock.Now(),
		OverallStatus:  overall,
		Checks:         checks,
		Summary:        summary,
	}

	e.logger.Info("verification report produced",
		zap.String("contract_number", contract.ContractNumber),
		zap.String("overall_status", string(overall)),
		zap.Int("failed_checks", summary.Failed))

	return report
}

// checkDocumentIntegrity only runs when a signed-document hash was
// recorded; otherwise there is nothing to compare against.
func (e *Engine) checkDocumentIntegrity(ctx context.Context, contract *contracts.Contract) *CheckResult {
	if contract.SignedDocumentHash == nil || contract.SignedDocumentKey == nil {
		return nil
	}
	expected := *contract.SignedDocumentHash

	reader, err := e.storage.Download(ctx, contract.S3Bucket, *contract.SignedDocumentKey)
	if err != nil {
		return &CheckResult{
			CheckType: CheckDocumentIntegrity,
			Passed:    false,
			ErrorKind: ErrorSourceUnavailable,
			Detail:    fmt.Sprintf("signed document could not be retrieved: %v", err),
		}
	}
	defer reader.Close()

	digest, err := integrity.HashReader(reader)
	if err != nil {
		return &CheckResult{
			CheckType: CheckDocumentIntegrity,
			Passed:    false,
			ErrorKind: ErrorSourceUnavailable,
			Detail:    fmt.Sprintf("signed document could not be read: %v", err),
		}
	}

	if digest.Hex != expected {
		return &CheckResult{
			CheckType:    CheckDocumentIntegrity,
			Passed:       false,
			ExpectedHash: expected,
			ActualHash:   digest.Hex,
			ErrorKind:    ErrorIntegrityMismatch,
			Detail:       "signed document hash does not match the recorded hash; document has been altered",
		}
	}
	return &CheckResult{
		CheckType:    CheckDocumentIntegrity,
		Passed:       true,
		ExpectedHash: expected,
		ActualHash:   digest.Hex,
		Detail:       "signed document hash matches the recorded hash",
	}
}

// checkSignatureIntegrity recomputes every captured signature hash
// concurrently. Each signer's check is independent: a storage fault for one
// signer fails that check only.
func (e *Engine) checkSignatureIntegrity(ctx context.Context, contract *contracts.Contract, signers []contracts.Signer) []CheckResult {
	type slot struct {
		index  int
		signer contracts.Signer
	}

	var slots []slot
	for _, signer := range signers {
		if signer.SignatureKey != nil && signer.SignatureHash != nil {
			slots = append(slots, slot{index: len(slots), signer: signer})
		}
	}
	if len(slots) == 0 {
		return nil
	}

	results := make([]CheckResult, len(slots))
	sem := make(chan struct{}, e.maxWorkers)
	done := make(chan int, len(slots))

	for _, sl := range slots {
		sem <- struct{}{}
		go func(sl slot) {
			defer func() { <-sem }()
			results[sl.index] = e.verifySignerSignature(ctx, contract, sl.signer)
			done <- sl.index
		}(sl)
	}
	for range slots {
		<-done
	}

	return results
}

func (e *Engine) verifySignerSignature(ctx context.Context, contract *contracts.Contract, signer contracts.Signer) CheckResult {
	signerID := signer.ID
	expected := *signer.SignatureHash

	reader, err := e.storage.Download(ctx, contract.S3Bucket, *signer.SignatureKey)
	if err != nil {
		return CheckResult{
			CheckType: CheckSignatureIntegrity,
			Passed:    false,
			SignerID:  &signerID,
			ErrorKind: ErrorSourceUnavailable,
			Detail:    fmt.Sprintf("signature payload for %s could not be retrieved: %v", signer.Email, err),
		}
	}
	defer reader.Close()

	digest, err := integrity.HashReader(reader)
	if err != nil {
		return CheckResult{
			CheckType: CheckSignatureIntegrity,
			Passed:    false,
			SignerID:  &signerID,
			ErrorKind: ErrorSourceUnavailable,
			Detail:    fmt.Sprintf("signature payload for %s could not be read: %v", signer.Email, err),
		}
	}

	if digest.Hex != expected {
		return CheckResult{
			CheckType:    CheckSignatureIntegrity,
			Passed:       false,
			SignerID:     &signerID,
			ExpectedHash: expected,
			ActualHash:   digest.Hex,
			ErrorKind:    ErrorIntegrityMismatch,
			Detail:       fmt.Sprintf("signature hash for %s does not match the recorded hash", signer.Email),
		}
	}
	return CheckResult{
		CheckType:    CheckSignatureIntegrity,
		Passed:       true,
		SignerID:     &signerID,
		ExpectedHash: expected,
		ActualHash:   digest.Hex,
		Detail:       fmt.Sprintf("signature hash for %s matches the recorded hash", signer.Email),
	}
}

// checkSigningOrder asserts that, for sequential contracts, adjacent signers
// by assigned order signed in non-decreasing timestamp order. Signers who
// have not signed yet are skipped; a single out-of-order pair fails the
// check.
func (e *Engine) checkSigningOrder(contract *contracts.Contract, ordered []contracts.Signer) *CheckResult {
	if !contract.SequentialSigning {
		return nil
	}

	var violations []string
	var prev *contracts.Signer
	for i := range ordered {
		signer := &ordered[i]
		if signer.SignedAt == nil {
			continue
		}
		if prev != nil && signer.SignedAt.Before(*prev.SignedAt) {
			violations = append(violations, fmt.Sprintf(
				"signer %s (order %d) signed at %s, before signer %s (order %d) at %s",
				signer.Email, signer.SignerOrder, signer.SignedAt.Format("2006-01-02T15:04:05Z07:00"),
				prev.Email, prev.SignerOrder, prev.SignedAt.Format("2006-01-02T15:04:05Z07:00")))
		}
		prev = signer
	}

	if len(violations) > 0 {
		return &CheckResult{
			CheckType: CheckSigningOrder,
			Passed:    false,
			Detail:    fmt.Sprintf("signing order violated: %s", violations[0]),
		}
	}
	return &CheckResult{
		CheckType: CheckSigningOrder,
		Passed:    true,
		Detail:    "all signers signed in their assigned order",
	}
}

// checkCompletion reports progress with counts. Incompleteness is a distinct
// condition from tampering and never makes the report invalid by itself.
func (e *Engine) checkCompletion(signers []contracts.Signer) CheckResult {
	signed := 0
	for _, signer := range signers {
		if signer.Status == contracts.SignerSigned {
			signed++
		}
	}

	return CheckResult{
		CheckType: CheckAllSignersComplete,
		Passed:    signed == len(signers),
		Detail:    fmt.Sprintf("%d of %d signers have signed", signed, len(signers)),
	}
}

package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"

	"sealpoint/esign-portal/esign-portal-backend/internal/verification"
)

func TestExportVerificationReport(t *testing.T) {
	signerID := uuid.New()
	report := &verification.Report{
		ContractNumber: "C-100",
		VerifiedAt:     time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC),
		OverallStatus:  verification.StatusInvalid,
		Checks: []verification.CheckResult{
			{
				CheckType:    verification.CheckSignatureIntegrity,
				Passed:       false,
				SignerID:     &signerID,
				ExpectedHash: "aaaa",
				ActualHash:   "bbbb",
				ErrorKind:    verification.ErrorIntegrityMismatch,
				Detail:       "signature hash does not match",
			},
			{
				CheckType: verification.CheckAllSignersComplete,
				Passed:    true,
				Detail:    "1 of 1 signers have signed",
			},
		},
		Summary: verification.Summary{TotalChecks: 2, Passed: 1, Failed: 1},
	}

	exporter := NewExcelExporter()
	assert.NoError(t, exporter.WriteReport(report))

	var buf bytes.Buffer
	assert.NoError(t, exporter.WriteTo(&buf))

	workbook, err := excelize.OpenReader(&buf)
	assert.NoError(t, err)
	defer workbook.Close()

	check, err := workbook.GetCellValue("Verification", "A2")
	assert.NoError(t, err)
	assert.Equal(t, "signature_integrity", check)

	expected, err := workbook.GetCellValue("Verification", "D2")
	assert.NoError(t, err)
	assert.Equal(t, "aaaa", expected)
}

package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sealpoint/esign-portal/esign-portal-backend/internal/compliance"
	"sealpoint/esign-portal/esign-portal-backend/internal/verification"
)

const timestampFormat = "2006-01-02 15:04:05"

// ExcelExporter writes verification evidence to an Excel workbook so it can
// be handed to auditors as a single file.
type ExcelExporter struct {
	file *excelize.File
}

func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{file: excelize.NewFile()}
}

// WriteReport adds a "Verification" sheet with one row per check.
func (e *ExcelExporter) WriteReport(report *verification.Report) error {
	const sheet = "Verification"
	index, err := e.file.NewSheet(sheet)
	if err != nil {
		return err
	}
	e.file.SetActiveSheet(index)

	header := []interface{}{"Check", "Passed", "Signer", "Expected Hash", "Actual Hash", "Error Kind", "Detail"}
	if err := e.file.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	meta := []interface{}{
		fmt.Sprintf("Contract %s", report.ContractNumber),
		fmt.Sprintf("Status: %s", report.OverallStatus),
		fmt.Sprintf("Verified at %s", report.VerifiedAt.Format(timestampFormat)),
		fmt.Sprintf("%d/%d checks passed", report.Summary.Passed, report.Summary.TotalChecks),
	}
	if err := e.file.SetSheetRow(sheet, "I1", &meta); err != nil {
		return err
	}

	for i, check := range report.Checks {
		signer := ""
		if check.SignerID != nil {
			signer = check.SignerID.String()
		}
		row := []interface{}{
			string(check.CheckType),
			check.Passed,
			signer,
			check.ExpectedHash,
			check.ActualHash,
			string(check.ErrorKind),
			check.Detail,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := e.file.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// WriteComplianceRecords adds a "Compliance" sheet with one row per signer.
func (e *ExcelExporter) WriteComplianceRecords(records []compliance.ComplianceRecord) error {
	const sheet = "Compliance"
	if _, err := e.file.NewSheet(sheet); err != nil {
		return err
	}

	header := []interface{}{
		"Signer", "Email", "Signing Method", "Consent At", "Signature Hash",
		"Document Hash", "Auth Method", "IP Address", "Platform", "Browser", "Standards",
	}
	if err := e.file.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, record := range records {
		row := []interface{}{
			record.Attribution.SignerName,
			record.Attribution.SignerEmail,
			record.Intent.SigningMethod,
			record.Consent.Timestamp.Format(timestampFormat),
			record.Association.SignatureHash,
			record.Association.DocumentHash,
			record.Attribution.AuthenticationMethod,
			record.Audit.IPAddress,
			record.Audit.DeviceFingerprint.Platform,
			record.Audit.DeviceFingerprint.Browser,
			fmt.Sprintf("%v", record.Standards),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := e.file.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// WriteTo finishes the workbook and writes it out.
func (e *ExcelExporter) WriteTo(w io.Writer) error {
	// drop the default sheet excelize creates
	_ = e.file.DeleteSheet("Sheet1")
	return e.file.Write(w)
}

package export

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sealpoint/esign-portal/esign-portal-backend/internal/audit"
	"sealpoint/esign-portal/esign-portal-backend/internal/compliance"
	"sealpoint/esign-portal/esign-portal-backend/internal/contracts"
	"sealpoint/esign-portal/esign-portal-backend/internal/verification"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the evidence workbook: the verification report plus one
// compliance record per signed signer, in a single download.
type Handler struct {
	contracts     contracts.Service
	verifications *verification.Service
	audit         *audit.Repository
}

func NewHandler(contractsService contracts.Service, verifications *verification.Service, auditRepo *audit.Repository) *Handler {
	return &Handler{contracts: contractsService, verifications: verifications, audit: auditRepo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/contracts/:id/evidence", h.DownloadEvidence)
}

func (h *Handler) DownloadEvidence(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	ctx := c.Request.Context()

	report, err := h.verifications.RunReport(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	signers, err := h.contracts.ListSigners(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var records []compliance.ComplianceRecord
	for _, signer := range signers {
		if signer.Status != contracts.SignerSigned {
			continue
		}
		record, err := h.contracts.BuildComplianceRecord(ctx, signer.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		records = append(records, *record)

		// snapshot is best effort; the workbook is the deliverable
		if h.audit != nil {
			_ = h.audit.SaveComplianceSnapshot(ctx, record)
		}
	}

	exporter := NewExcelExporter()
	if err := exporter.WriteReport(report); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := exporter.WriteComplianceRecords(records); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := exporter.WriteTo(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="evidence-`+report.ContractNumber+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

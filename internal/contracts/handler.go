package contracts

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	contracts := rg.Group("/contracts")
	{
		contracts.POST("", h.Create)
		contracts.GET("", h.List)
		contracts.GET("/:id", h.Get)
		contracts.GET("/:id/document", h.DownloadDocument)
		contracts.POST("/:id/send", h.Send)
		contracts.POST("/:id/signers", h.AddSigner)
		contracts.GET("/:id/signers", h.ListSigners)
		contracts.GET("/:id/verification-code", h.VerificationCode)
	}
	signers := rg.Group("/signers")
	{
		signers.POST("/:id/viewed", h.MarkViewed)
		signers.POST("/:id/consent", h.RecordConsent)
		signers.POST("/:id/signature", h.CaptureSignature)
		signers.GET("/:id/compliance-record", h.ComplianceRecord)
	}
}

func (h *Handler) Create(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	createdBy, _ := uuid.Parse(c.GetString("user_id"))

	contract, err := h.service.CreateContract(c.Request.Context(), CreateContractRequest{
		ContractNumber:    c.PostForm("contract_number"),
		Title:             c.PostForm("title"),
		SequentialSigning: c.PostForm("sequential_signing") == "true",
		FileContent:       f,
		CreatedBy:         createdBy,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, contract)
}

func (h *Handler) List(c *gin.Context) {
	var status *ContractStatus
	if raw := c.Query("status"); raw != "" {
		s := ContractStatus(raw)
		status = &s
	}

	contracts, err := h.service.ListContracts(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, contracts)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	contract, err := h.service.GetContract(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if contract == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "contract not found"})
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) DownloadDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	reader, err := h.service.DownloadDocument(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer reader.Close()

	c.Header("Content-Type", "application/octet-stream")
	_, _ = io.Copy(c.Writer, reader)
}

func (h *Handler) Send(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	contract, err := h.service.SendContract(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, contract)
}

type addSignerBody struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Role        string `json:"role"`
	SignerOrder int    `json:"signer_order"`
}

func (h *Handler) AddSigner(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	var body addSignerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	signer, err := h.service.AddSigner(c.Request.Context(), id, AddSignerRequest{
		Name:        body.Name,
		Email:       body.Email,
		Role:        body.Role,
		SignerOrder: body.SignerOrder,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, signer)
}

func (h *Handler) ListSigners(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	signers, err := h.service.ListSigners(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, signers)
}

func (h *Handler) MarkViewed(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signer id"})
		return
	}

	if err := h.service.MarkViewed(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "viewed"})
}

type consentBody struct {
	Given      bool   `json:"given"`
	Method     string `json:"method"`
	AuthMethod string `json:"auth_method"`
}

func (h *Handler) RecordConsent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signer id"})
		return
	}

	var body consentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	consent, err := h.service.RecordConsent(c.Request.Context(), id, ConsentRequest{
		Given:      body.Given,
		Method:     body.Method,
		AuthMethod: body.AuthMethod,
		Request:    requestContext(c),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, consent)
}

type signatureBody struct {
	Method string `json:"method" binding:"required"`
	Data   string `json:"data" binding:"required"` // base64
}

func (h *Handler) CaptureSignature(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signer id"})
		return
	}

	var body signatureBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := base64.StdEncoding.DecodeString(body.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature data must be base64"})
		return
	}

	signer, err := h.service.CaptureSignature(c.Request.Context(), id, SignatureRequest{
		Method:  SignatureMethod(body.Method),
		Data:    data,
		Request: requestContext(c),
	})
	if err != nil {
		var complianceErr *ComplianceError
		if errors.As(err, &complianceErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":            "compliance requirements not met",
				"compliance_level": complianceErr.Result.Level,
				"violations":       complianceErr.Result.Errors,
			})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, signer)
}

func (h *Handler) VerificationCode(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	code, err := h.service.VerificationCode(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verification_code": code})
}

func (h *Handler) ComplianceRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signer id"})
		return
	}

	record, err := h.service.BuildComplianceRecord(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

func requestContext(c *gin.Context) RequestContext {
	return RequestContext{
		IPAddress:      c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
		AcceptLanguage: c.GetHeader("Accept-Language"),
		AcceptEncoding: c.GetHeader("Accept-Encoding"),
	}
}

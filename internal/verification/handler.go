package verification

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sealpoint/esign-portal/esign-portal-backend/internal/integrity"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	verify := rg.Group("/verification")
	{
		verify.POST("/contracts/:id/report", h.RunReport)
		verify.POST("/code", h.VerifyCode)
	}
}

func (h *Handler) RunReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	report, err := h.service.RunReport(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

type verifyCodeBody struct {
	ContractNumber string `json:"contract_number" binding:"required"`
	Code           string `json:"code" binding:"required"`
}

func (h *Handler) VerifyCode(c *gin.Context) {
	var body verifyCodeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.service.VerifyCode(c.Request.Context(), body.ContractNumber, body.Code)
	if err != nil {
		if errors.Is(err, integrity.ErrMalformedInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": ok})
}

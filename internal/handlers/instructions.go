package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/intellicoi/coi-backend/internal/services"
)

type InstructionsHandler struct {
	instructionService services.InstructionService
}

func NewInstructionsHandler(instructionService services.InstructionService) *InstructionsHandler {
	return &InstructionsHandler{instructionService: instructionService}
}

type generateInstructionsRequest struct {
	CertificateID string `json:"certificateId"`
}

func (ih *InstructionsHandler) Generate(c *gin.Context) {
	var req generateInstructionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if req.CertificateID == "" {
		RespondError(c, http.StatusBadRequest, "missing_certificate_id", fmt.Errorf("certificate ID is required"))
		return
	}
	certificateID, err := uuid.Parse(req.CertificateID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_certificate_id", err)
		return
	}

	result, err := ih.instructionService.GenerateForCertificate(c.Request.Context(), certificateID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	payload := gin.H{
		"success":      true,
		"instructions": result.Instructions,
		"gaps":         result.Gaps,
	}
	if result.Vendor != nil {
		payload["vendor"] = gin.H{
			"id":    result.Vendor.ID,
			"name":  result.Vendor.Name,
			"email": result.Vendor.Email,
		}
	}
	RespondOK(c, payload)
}

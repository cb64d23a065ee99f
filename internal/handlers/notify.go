package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/intellicoi/coi-backend/internal/services"
	"github.com/intellicoi/coi-backend/internal/types"
)

type NotifyHandler struct {
	notificationService services.NotificationService
}

func NewNotifyHandler(notificationService services.NotificationService) *NotifyHandler {
	return &NotifyHandler{notificationService: notificationService}
}

type notifyRequest struct {
	CertificateID string                 `json:"certificateId"`
	Instructions  *types.FixInstructions `json:"instructions,omitempty"`
}

func (nh *NotifyHandler) Notify(c *gin.Context) {
	var req notifyRequest
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

	result, err := nh.notificationService.NotifyForCertificate(c.Request.Context(), certificateID, req.Instructions)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

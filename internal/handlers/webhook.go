package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/intellicoi/coi-backend/internal/services"
	"github.com/intellicoi/coi-backend/internal/types"
)

var errMissingJobID = errors.New("jobId is required")

type WebhookHandler struct {
	webhookService services.WebhookService
}

func NewWebhookHandler(webhookService services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// VectorizeWebhook ingests extraction completion callbacks. The response is
// always 200 with the processing result embedded; the backend treats delivery
// as acknowledged once the payload parsed.
func (wh *WebhookHandler) VectorizeWebhook(c *gin.Context) {
	var payload types.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if payload.JobID == "" {
		RespondError(c, http.StatusBadRequest, "missing_job_id", errMissingJobID)
		return
	}

	result := wh.webhookService.ProcessExtractionWebhook(c.Request.Context(), payload)

	RespondOK(c, gin.H{
		"received": true,
		"result":   result,
	})
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/intellicoi/coi-backend/internal/logger"
	"github.com/intellicoi/coi-backend/internal/repos"
	"github.com/intellicoi/coi-backend/internal/types"
)

// WebhookService drives the certificate state machine from extraction
// completion callbacks. Every outcome is reported through ProcessingResult;
// this path never panics out to the transport layer.
type WebhookService interface {
	ProcessExtractionWebhook(ctx context.Context, payload types.WebhookPayload) types.ProcessingResult
}

type webhookService struct {
	log        *logger.Logger
	certRepo   repos.CertificateRepo
	eventRepo  repos.ComplianceEventRepo
	compliance ComplianceService
}

func NewWebhookService(
	log *logger.Logger,
	certRepo repos.CertificateRepo,
	eventRepo repos.ComplianceEventRepo,
	complianceSvc ComplianceService,
) WebhookService {
	return &webhookService{
		log:        log.With("service", "WebhookService"),
		certRepo:   certRepo,
		eventRepo:  eventRepo,
		compliance: complianceSvc,
	}
}

func (ws *webhookService) ProcessExtractionWebhook(ctx context.Context, payload types.WebhookPayload) (result types.ProcessingResult) {
	defer func() {
		if r := recover(); r != nil {
			ws.log.Error("Panic while processing extraction webhook", "job_id", payload.JobID, "panic", r)
			result = types.ProcessingResult{Success: false, Error: fmt.Sprintf("%v", r)}
		}
	}()

	cert, err := ws.certRepo.GetByJobID(ctx, nil, payload.JobID)
	if err != nil {
		ws.log.Error("Certificate not found for extraction job", "job_id", payload.JobID, "error", err)
		return types.ProcessingResult{Success: false, Error: "Certificate not found"}
	}

	switch {
	case payload.Status == ExtractionStatusCompleted && len(payload.Extraction) > 0:
		return ws.handleCompleted(ctx, cert, payload)
	case payload.Status == ExtractionStatusFailed:
		return ws.handleFailed(ctx, cert, payload)
	default:
		// Intermediate notification, or "completed" with no payload. No state
		// change; duplicates and progress pings are tolerated.
		return types.ProcessingResult{Success: true}
	}
}

func (ws *webhookService) handleCompleted(ctx context.Context, cert *types.Certificate, payload types.WebhookPayload) types.ProcessingResult {
	extracted := TransformExtraction(payload.Extraction)

	raw, err := json.Marshal(extracted)
	if err != nil {
		ws.log.Error("Failed to encode extracted data", "certificate_id", cert.ID.String(), "error", err)
		return types.ProcessingResult{Success: false, Error: "Failed to update certificate"}
	}

	now := time.Now()
	updates := map[string]interface{}{
		"extracted_data":        datatypes.JSON(raw),
		"extraction_confidence": payload.Confidence,
		"processing_status":     types.ProcessingCompleted,
		"processed_at":          now,
		"expires_at":            parseCertificateDate(extracted.ExpirationDate),
	}
	if err := ws.certRepo.UpdateFields(ctx, nil, cert.ID, updates); err != nil {
		// Partial completion is not allowed: without the persisted transition
		// there is no gap analysis either.
		ws.log.Error("Failed to update certificate from webhook", "certificate_id", cert.ID.String(), "error", err)
		return types.ProcessingResult{Success: false, Error: "Failed to update certificate"}
	}

	if err := ws.eventRepo.Log(ctx, nil, types.EventCOIProcessed, &cert.ID, &cert.VendorID, map[string]interface{}{
		"confidence":         payload.Confidence,
		"processing_time_ms": now.Sub(cert.UploadedAt).Milliseconds(),
	}); err != nil {
		ws.log.Warn("Failed to log coi_processed event", "certificate_id", cert.ID.String(), "error", err)
	}

	gaps, err := ws.compliance.Evaluate(ctx, cert.ID, *extracted)
	if err != nil {
		ws.log.Error("Gap analysis failed after extraction", "certificate_id", cert.ID.String(), "error", err)
		return types.ProcessingResult{Success: false, CertificateID: &cert.ID, Error: err.Error()}
	}

	return types.ProcessingResult{
		Success:       true,
		CertificateID: &cert.ID,
		Confidence:    payload.Confidence,
		Gaps:          gaps,
	}
}

func (ws *webhookService) handleFailed(ctx context.Context, cert *types.Certificate, payload types.WebhookPayload) types.ProcessingResult {
	now := time.Now()
	if err := ws.certRepo.UpdateFields(ctx, nil, cert.ID, map[string]interface{}{
		"processing_status": types.ProcessingFailed,
		"processed_at":      now,
	}); err != nil {
		ws.log.Error("Failed to mark certificate failed", "certificate_id", cert.ID.String(), "error", err)
	}

	eventError := payload.Error
	if eventError == "" {
		eventError = "Unknown error"
	}
	if err := ws.eventRepo.Log(ctx, nil, types.EventCOIProcessingFailed, &cert.ID, &cert.VendorID, map[string]interface{}{
		"error": eventError,
	}); err != nil {
		ws.log.Warn("Failed to log coi_processing_failed event", "certificate_id", cert.ID.String(), "error", err)
	}

	resultError := payload.Error
	if resultError == "" {
		resultError = "Processing failed"
	}
	return types.ProcessingResult{Success: false, Error: resultError}
}

// parseCertificateDate accepts the date shapes extraction backends emit.
// Unparseable or empty input yields nil rather than an error; expiry is
// advisory metadata.
func parseCertificateDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

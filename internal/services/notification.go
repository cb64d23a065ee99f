package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intellicoi/coi-backend/internal/apierr"
	"github.com/intellicoi/coi-backend/internal/logger"
	"github.com/intellicoi/coi-backend/internal/repos"
	"github.com/intellicoi/coi-backend/internal/types"
)

// NotificationService composes and dispatches vendor emails: gap
// notifications with a portal link for non-compliant certificates, an
// approval note for compliant ones, and expiry-driven renewal reminders.
type NotificationService interface {
	NotifyForCertificate(ctx context.Context, certificateID uuid.UUID, instructions *types.FixInstructions) (*NotifyResult, error)
	SendRenewalReminder(ctx context.Context, certificateID uuid.UUID, daysUntilExpiration int) error
}

type NotifyResult struct {
	Success   bool   `json:"success"`
	PortalURL string `json:"portal_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

type notificationService struct {
	log          *logger.Logger
	email        EmailClient
	certRepo     repos.CertificateRepo
	gapRepo      repos.GapAnalysisRepo
	eventRepo    repos.ComplianceEventRepo
	tokens       VendorTokenService
	instructions InstructionService
	appURL       string
}

func NewNotificationService(
	log *logger.Logger,
	email EmailClient,
	certRepo repos.CertificateRepo,
	gapRepo repos.GapAnalysisRepo,
	eventRepo repos.ComplianceEventRepo,
	tokens VendorTokenService,
	instructionSvc InstructionService,
) (NotificationService, error) {
	appURL := strings.TrimRight(strings.TrimSpace(os.Getenv("APP_URL")), "/")
	if appURL == "" {
		return nil, fmt.Errorf("missing APP_URL")
	}
	return &notificationService{
		log:          log.With("service", "NotificationService"),
		email:        email,
		certRepo:     certRepo,
		gapRepo:      gapRepo,
		eventRepo:    eventRepo,
		tokens:       tokens,
		instructions: instructionSvc,
		appURL:       appURL,
	}, nil
}

// NotifyForCertificate routes on compliance status. Instructions may be
// passed in from a prior generation call; when nil they are produced here.
func (ns *notificationService) NotifyForCertificate(ctx context.Context, certificateID uuid.UUID, instructions *types.FixInstructions) (*NotifyResult, error) {
	cert, err := ns.certRepo.GetByID(ctx, nil, certificateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(http.StatusNotFound, "certificate_not_found", fmt.Errorf("certificate %s not found", certificateID))
		}
		return nil, err
	}
	if cert.Vendor == nil || strings.TrimSpace(cert.Vendor.Email) == "" {
		return nil, apierr.New(http.StatusBadRequest, "vendor_email_missing", fmt.Errorf("vendor email not found"))
	}

	if cert.ComplianceStatus == types.ComplianceCompliant {
		return ns.sendComplianceAchieved(ctx, cert)
	}
	return ns.sendGapNotification(ctx, cert, instructions)
}

func (ns *notificationService) sendComplianceAchieved(ctx context.Context, cert *types.Certificate) (*NotifyResult, error) {
	msg := EmailMessage{
		ToEmail:  cert.Vendor.Email,
		ToName:   cert.Vendor.Name,
		Subject:  "COI Approved - You're Compliant!",
		TextBody: complianceAchievedText(cert.Vendor.Name),
		HTMLBody: complianceAchievedHTML(cert.Vendor.Name),
	}
	if err := ns.email.Send(ctx, msg); err != nil {
		ns.log.Error("Failed to send compliance email", "certificate_id", cert.ID.String(), "error", err)
		return &NotifyResult{Success: false, Error: err.Error()}, nil
	}

	if err := ns.eventRepo.Log(ctx, nil, types.EventVendorNotified, &cert.ID, &cert.VendorID, map[string]interface{}{
		"notification_type": "compliance_achieved",
	}); err != nil {
		ns.log.Warn("Failed to log vendor_notified event", "certificate_id", cert.ID.String(), "error", err)
	}
	return &NotifyResult{Success: true}, nil
}

func (ns *notificationService) sendGapNotification(ctx context.Context, cert *types.Certificate, instructions *types.FixInstructions) (*NotifyResult, error) {
	records, err := ns.gapRepo.GetByCertificateID(ctx, nil, cert.ID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "no_gaps", fmt.Errorf("no gaps found to notify about"))
	}

	gaps := make([]types.ComplianceGap, 0, len(records))
	for _, rec := range records {
		gaps = append(gaps, types.ComplianceGap{
			CoverageType: rec.CoverageType,
			Required:     rec.RequiredAmount,
			Actual:       rec.ActualAmount,
			Gap:          rec.GapAmount,
			Instruction:  rec.Instruction,
		})
	}

	token, err := ns.tokens.EnsureToken(ctx, nil, cert.VendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure vendor access token: %w", err)
	}
	portalURL := fmt.Sprintf("%s/vendor/%s", ns.appURL, token.Token)

	if instructions == nil {
		generated := ns.instructions.GenerateFixInstructions(ctx, cert.Vendor.Name, cert.Vendor.BusinessType, gaps)
		instructions = &generated
	}

	msg := EmailMessage{
		ToEmail:  cert.Vendor.Email,
		ToName:   cert.Vendor.Name,
		Subject:  "Insurance Certificate Update Required",
		TextBody: instructions.EmailBody,
		HTMLBody: gapNotificationHTML(*instructions, portalURL),
	}
	if err := ns.email.Send(ctx, msg); err != nil {
		ns.log.Error("Failed to send gap notification", "certificate_id", cert.ID.String(), "error", err)
		return &NotifyResult{Success: false, PortalURL: portalURL, Error: err.Error()}, nil
	}

	if err := ns.eventRepo.Log(ctx, nil, types.EventVendorNotified, &cert.ID, &cert.VendorID, map[string]interface{}{
		"notification_type": "gap_notification",
		"gap_count":         len(gaps),
		"portal_url":        portalURL,
	}); err != nil {
		ns.log.Warn("Failed to log vendor_notified event", "certificate_id", cert.ID.String(), "error", err)
	}

	return &NotifyResult{Success: true, PortalURL: portalURL}, nil
}

// SendRenewalReminder emails the vendor ahead of certificate expiry. Subject
// and body escalate inside the 30-day window.
func (ns *notificationService) SendRenewalReminder(ctx context.Context, certificateID uuid.UUID, daysUntilExpiration int) error {
	cert, err := ns.certRepo.GetByID(ctx, nil, certificateID)
	if err != nil {
		return err
	}
	if cert.Vendor == nil || strings.TrimSpace(cert.Vendor.Email) == "" {
		return apierr.New(http.StatusBadRequest, "vendor_email_missing", fmt.Errorf("vendor email not found"))
	}

	token, err := ns.tokens.EnsureToken(ctx, nil, cert.VendorID)
	if err != nil {
		return fmt.Errorf("failed to ensure vendor access token: %w", err)
	}
	portalURL := fmt.Sprintf("%s/vendor/%s", ns.appURL, token.Token)

	urgency := ""
	if daysUntilExpiration <= 30 {
		urgency = "Urgent: "
	}

	msg := EmailMessage{
		ToEmail: cert.Vendor.Email,
		ToName:  cert.Vendor.Name,
		Subject: fmt.Sprintf("%sCOI Renewal Required - %d Days Until Expiration", urgency, daysUntilExpiration),
		TextBody: fmt.Sprintf("Dear %s, Your Certificate of Insurance will expire in %d days. Please renew and upload your updated certificate at: %s",
			cert.Vendor.Name, daysUntilExpiration, portalURL),
		HTMLBody: renewalReminderHTML(cert.Vendor.Name, daysUntilExpiration, portalURL, urgency),
	}
	if err := ns.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send renewal reminder: %w", err)
	}

	if err := ns.eventRepo.Log(ctx, nil, types.EventVendorNotified, &cert.ID, &cert.VendorID, map[string]interface{}{
		"notification_type":     "renewal_reminder",
		"days_until_expiration": daysUntilExpiration,
	}); err != nil {
		ns.log.Warn("Failed to log vendor_notified event", "certificate_id", cert.ID.String(), "error", err)
	}
	return nil
}

func complianceAchievedText(vendorName string) string {
	return fmt.Sprintf("Dear %s, Great news! Your Certificate of Insurance has been reviewed and approved. You are now compliant with our insurance requirements.", vendorName)
}

func complianceAchievedHTML(vendorName string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #10B981;">Certificate of Insurance Approved!</h2>
  <p>Dear %s,</p>
  <p>Great news! Your Certificate of Insurance has been reviewed and approved.
  You are now compliant with our insurance requirements.</p>
  <p>Thank you for your prompt attention to this matter. We appreciate your
  cooperation in maintaining proper insurance coverage.</p>
  <p>If you have any questions, please don't hesitate to reach out.</p>
  <p>Best regards,<br>Property Management Team</p>
</div>`, vendorName)
}

func gapNotificationHTML(instructions types.FixInstructions, portalURL string) string {
	emailHTML := strings.ReplaceAll(instructions.EmailBody, "\n", "<br>")
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  %s
  <div style="text-align: center; margin: 30px 0;">
    <a href="%s"
       style="background-color: #2563EB; color: white; padding: 12px 24px;
              text-decoration: none; border-radius: 6px; display: inline-block;">
      Upload Updated COI
    </a>
  </div>
  <hr style="margin: 30px 0; border: none; border-top: 1px solid #e5e5e5;">
  <div style="background-color: #f3f4f6; padding: 20px; border-radius: 6px; margin: 20px 0;">
    <h3 style="margin-top: 0;">Instructions for Your Insurance Agent</h3>
    <p style="white-space: pre-wrap;">%s</p>
  </div>
</div>`, emailHTML, portalURL, instructions.AgentInstructions)
}

func renewalReminderHTML(vendorName string, days int, portalURL string, urgency string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #F59E0B;">%sInsurance Renewal Required</h2>
  <p>Dear %s,</p>
  <p>Your Certificate of Insurance will expire in <strong>%d days</strong>.</p>
  <p>To maintain compliance and avoid any disruption to our working relationship,
  please renew your insurance and upload the updated certificate as soon as possible.</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="%s"
       style="background-color: #2563EB; color: white; padding: 12px 24px;
              text-decoration: none; border-radius: 6px; display: inline-block;">
      Upload Renewed COI
    </a>
  </div>
  <p>If you have any questions about the renewal requirements, please contact us.</p>
  <p>Best regards,<br>Property Management Team</p>
</div>`, urgency, vendorName, days, portalURL)
}

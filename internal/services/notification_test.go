package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/intellicoi/coi-backend/internal/types"
)

func newNotificationHarness(t *testing.T) (*fakeCertificateRepo, *fakeGapRepo, *fakeEventRepo, *fakeEmailClient, *fakeTokenService, NotificationService) {
	t.Helper()
	t.Setenv("APP_URL", "https://app.example.com")

	certRepo := newFakeCertificateRepo()
	gapRepo := newFakeGapRepo()
	eventRepo := &fakeEventRepo{}
	email := &fakeEmailClient{}
	tokens := &fakeTokenService{}
	instructionSvc := NewInstructionService(testLogger(t), nil, certRepo, gapRepo, eventRepo)

	svc, err := NewNotificationService(testLogger(t), email, certRepo, gapRepo, eventRepo, tokens, instructionSvc)
	if err != nil {
		t.Fatalf("failed to build notification service: %v", err)
	}
	return certRepo, gapRepo, eventRepo, email, tokens, svc
}

func seedNonCompliantCertificate(certRepo *fakeCertificateRepo, gapRepo *fakeGapRepo) *types.Certificate {
	vendor := &types.Vendor{ID: uuid.New(), Name: "ABC Construction LLC", Email: "vendor@example.com"}
	cert := &types.Certificate{
		ID:               uuid.New(),
		VendorID:         vendor.ID,
		Vendor:           vendor,
		ComplianceStatus: types.ComplianceNonCompliant,
	}
	certRepo.add(cert)
	_ = gapRepo.ReplaceForCertificate(context.Background(), nil, cert.ID, []*types.GapAnalysisRecord{
		{
			CertificateID:  cert.ID,
			CoverageType:   types.CoverageGeneralLiability,
			RequiredAmount: 1000000,
			ActualAmount:   float64Ptr(500000),
			GapAmount:      500000,
			Instruction:    "Increase General Liability Insurance from $500,000 to $1,000,000 (gap of $500,000)",
		},
	})
	return cert
}

func TestNotifyForCertificateGapNotification(t *testing.T) {
	certRepo, gapRepo, eventRepo, email, _, svc := newNotificationHarness(t)
	cert := seedNonCompliantCertificate(certRepo, gapRepo)

	result, err := svc.NotifyForCertificate(context.Background(), cert.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("want success, got=%+v", result)
	}
	if !strings.HasPrefix(result.PortalURL, "https://app.example.com/vendor/") {
		t.Errorf("portal url: got=%q", result.PortalURL)
	}

	if len(email.sent) != 1 {
		t.Fatalf("emails sent: want=1 got=%d", len(email.sent))
	}
	msg := email.sent[0]
	if msg.ToEmail != "vendor@example.com" {
		t.Errorf("recipient: got=%q", msg.ToEmail)
	}
	if msg.Subject != "Insurance Certificate Update Required" {
		t.Errorf("subject: got=%q", msg.Subject)
	}
	if !strings.Contains(msg.HTMLBody, result.PortalURL) {
		t.Error("HTML body must embed the portal link")
	}
	if !strings.Contains(msg.TextBody, "Increase General Liability Insurance") {
		t.Errorf("text body missing gap instruction: %q", msg.TextBody)
	}

	events := eventRepo.eventTypes()
	if len(events) != 1 || events[0] != types.EventVendorNotified {
		t.Errorf("events: want=[vendor_notified] got=%v", events)
	}
	if got := eventRepo.events[0].Data["notification_type"]; got != "gap_notification" {
		t.Errorf("notification_type: got=%v", got)
	}
}

func TestNotifyForCertificateCompliantPath(t *testing.T) {
	certRepo, _, eventRepo, email, _, svc := newNotificationHarness(t)
	vendor := &types.Vendor{ID: uuid.New(), Name: "Tidy Electric", Email: "tidy@example.com"}
	cert := &types.Certificate{
		ID:               uuid.New(),
		VendorID:         vendor.ID,
		Vendor:           vendor,
		ComplianceStatus: types.ComplianceCompliant,
	}
	certRepo.add(cert)

	result, err := svc.NotifyForCertificate(context.Background(), cert.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("want success, got=%+v", result)
	}
	if result.PortalURL != "" {
		t.Errorf("compliant path has no portal url, got=%q", result.PortalURL)
	}

	if len(email.sent) != 1 {
		t.Fatalf("emails sent: want=1 got=%d", len(email.sent))
	}
	if !strings.Contains(email.sent[0].Subject, "Compliant") {
		t.Errorf("subject: got=%q", email.sent[0].Subject)
	}
	if got := eventRepo.events[0].Data["notification_type"]; got != "compliance_achieved" {
		t.Errorf("notification_type: got=%v", got)
	}
}

func TestNotifyForCertificateGuards(t *testing.T) {
	certRepo, gapRepo, _, email, _, svc := newNotificationHarness(t)

	t.Run("certificate not found", func(t *testing.T) {
		if _, err := svc.NotifyForCertificate(context.Background(), uuid.New(), nil); err == nil {
			t.Fatal("want error for unknown certificate")
		}
	})

	t.Run("missing vendor email", func(t *testing.T) {
		vendor := &types.Vendor{ID: uuid.New(), Name: "No Email LLC"}
		cert := &types.Certificate{ID: uuid.New(), VendorID: vendor.ID, Vendor: vendor, ComplianceStatus: types.ComplianceNonCompliant}
		certRepo.add(cert)
		if _, err := svc.NotifyForCertificate(context.Background(), cert.ID, nil); err == nil {
			t.Fatal("want error when vendor has no email")
		}
	})

	t.Run("no gaps to notify about", func(t *testing.T) {
		vendor := &types.Vendor{ID: uuid.New(), Name: "Gapless LLC", Email: "g@example.com"}
		cert := &types.Certificate{ID: uuid.New(), VendorID: vendor.ID, Vendor: vendor, ComplianceStatus: types.ComplianceNonCompliant}
		certRepo.add(cert)
		if _, err := svc.NotifyForCertificate(context.Background(), cert.ID, nil); err == nil {
			t.Fatal("want error when no gap rows exist")
		}
	})

	if len(email.sent) != 0 {
		t.Errorf("guard failures must not send email, sent=%d", len(email.sent))
	}
	_ = gapRepo
}

func TestNotifyForCertificateEmailFailure(t *testing.T) {
	certRepo, gapRepo, eventRepo, email, _, svc := newNotificationHarness(t)
	cert := seedNonCompliantCertificate(certRepo, gapRepo)
	email.sendErr = errors.New("smtp unavailable")

	result, err := svc.NotifyForCertificate(context.Background(), cert.ID, nil)
	if err != nil {
		t.Fatalf("send failure is reported in the result, not raised: %v", err)
	}
	if result.Success {
		t.Fatal("want unsuccessful result")
	}
	if result.Error == "" {
		t.Error("result must carry the send error")
	}
	if len(eventRepo.events) != 0 {
		t.Errorf("no vendor_notified event on failed send, got=%v", eventRepo.eventTypes())
	}
}

func TestNotifyForCertificateUsesProvidedInstructions(t *testing.T) {
	certRepo, gapRepo, _, email, _, svc := newNotificationHarness(t)
	cert := seedNonCompliantCertificate(certRepo, gapRepo)

	provided := &types.FixInstructions{
		VendorInstructions: "custom vendor text",
		AgentInstructions:  "custom agent text",
		EmailBody:          "custom email body",
	}
	if _, err := svc.NotifyForCertificate(context.Background(), cert.ID, provided); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.sent[0].TextBody != "custom email body" {
		t.Errorf("text body: got=%q", email.sent[0].TextBody)
	}
	if !strings.Contains(email.sent[0].HTMLBody, "custom agent text") {
		t.Error("HTML body must include provided agent instructions")
	}
}

func TestSendRenewalReminder(t *testing.T) {
	certRepo, _, eventRepo, email, _, svc := newNotificationHarness(t)
	vendor := &types.Vendor{ID: uuid.New(), Name: "Renewal LLC", Email: "renew@example.com"}
	cert := &types.Certificate{ID: uuid.New(), VendorID: vendor.ID, Vendor: vendor}
	certRepo.add(cert)

	t.Run("urgent inside 30 days", func(t *testing.T) {
		if err := svc.SendRenewalReminder(context.Background(), cert.ID, 14); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		msg := email.sent[len(email.sent)-1]
		if !strings.HasPrefix(msg.Subject, "Urgent: ") {
			t.Errorf("subject: got=%q", msg.Subject)
		}
		if !strings.Contains(msg.TextBody, "14 days") {
			t.Errorf("text body: got=%q", msg.TextBody)
		}
	})

	t.Run("routine outside 30 days", func(t *testing.T) {
		if err := svc.SendRenewalReminder(context.Background(), cert.ID, 60); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		msg := email.sent[len(email.sent)-1]
		if strings.HasPrefix(msg.Subject, "Urgent: ") {
			t.Errorf("subject must not be urgent: got=%q", msg.Subject)
		}
	})

	if len(eventRepo.events) != 2 {
		t.Fatalf("events: want=2 got=%d", len(eventRepo.events))
	}
	for _, e := range eventRepo.events {
		if e.Data["notification_type"] != "renewal_reminder" {
			t.Errorf("notification_type: got=%v", e.Data["notification_type"])
		}
	}
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/intellicoi/coi-backend/internal/types"
)

func sampleGaps() []types.ComplianceGap {
	return []types.ComplianceGap{
		{
			CoverageType: types.CoverageGeneralLiability,
			Required:     1000000,
			Actual:       float64Ptr(500000),
			Gap:          500000,
			Instruction:  "Increase General Liability Insurance from $500,000 to $1,000,000 (gap of $500,000)",
		},
		{
			CoverageType: types.CoverageWorkersCompensation,
			Required:     500000,
			Actual:       nil,
			Gap:          500000,
			Instruction:  "Add Workers Compensation Insurance coverage of at least $500,000",
		},
	}
}

func newInstructionService(t *testing.T, openai OpenAIClient) (InstructionService, *fakeCertificateRepo, *fakeGapRepo, *fakeEventRepo) {
	t.Helper()
	certRepo := newFakeCertificateRepo()
	gapRepo := newFakeGapRepo()
	eventRepo := &fakeEventRepo{}
	svc := NewInstructionService(testLogger(t), openai, certRepo, gapRepo, eventRepo)
	return svc, certRepo, gapRepo, eventRepo
}

func TestGenerateFixInstructionsFallbackWithoutClient(t *testing.T) {
	svc, _, _, _ := newInstructionService(t, nil)

	got := svc.GenerateFixInstructions(context.Background(), "ABC Construction LLC", "", sampleGaps())

	if !strings.Contains(got.VendorInstructions, "1. Increase General Liability Insurance") {
		t.Errorf("vendor instructions missing numbered step: %q", got.VendorInstructions)
	}
	if !strings.Contains(got.VendorInstructions, "2. Add Workers Compensation Insurance") {
		t.Errorf("vendor instructions missing second step: %q", got.VendorInstructions)
	}
	if !strings.Contains(got.AgentInstructions, "Increase General Liability from $500,000 to $1,000,000") {
		t.Errorf("agent instructions: %q", got.AgentInstructions)
	}
	if !strings.Contains(got.AgentInstructions, "Add Workers Compensation with minimum limit of $500,000") {
		t.Errorf("agent instructions missing add line: %q", got.AgentInstructions)
	}
	if !strings.Contains(got.EmailBody, "Dear ABC Construction LLC,") {
		t.Errorf("email body missing greeting: %q", got.EmailBody)
	}
}

func TestGenerateFixInstructionsFallbackIsDeterministic(t *testing.T) {
	svc, _, _, _ := newInstructionService(t, nil)

	a := svc.GenerateFixInstructions(context.Background(), "Vendor", "", sampleGaps())
	b := svc.GenerateFixInstructions(context.Background(), "Vendor", "", sampleGaps())

	if a != b {
		t.Error("fallback output must be deterministic")
	}
}

func TestGenerateFixInstructionsLLMFailureFallsBack(t *testing.T) {
	openai := &fakeOpenAI{err: errors.New("rate limited")}
	svc, _, _, _ := newInstructionService(t, openai)

	got := svc.GenerateFixInstructions(context.Background(), "Vendor", "", sampleGaps())

	if openai.calls != 1 {
		t.Errorf("expected one LLM attempt, got=%d", openai.calls)
	}
	if !strings.Contains(got.VendorInstructions, "To become compliant") {
		t.Errorf("expected fallback vendor instructions, got=%q", got.VendorInstructions)
	}
}

func TestGenerateFixInstructionsParsesLLMSections(t *testing.T) {
	openai := &fakeOpenAI{response: `VENDOR INSTRUCTIONS:
Call your agent today.

INSURANCE AGENT INSTRUCTIONS:
Add CG 20 10 endorsement.

EMAIL BODY:
Hi there, please update your coverage.`}
	svc, _, _, _ := newInstructionService(t, openai)

	got := svc.GenerateFixInstructions(context.Background(), "Vendor", "Electrician", sampleGaps())

	if got.VendorInstructions != "Call your agent today." {
		t.Errorf("vendor section: got=%q", got.VendorInstructions)
	}
	if got.AgentInstructions != "Add CG 20 10 endorsement." {
		t.Errorf("agent section: got=%q", got.AgentInstructions)
	}
	if got.EmailBody != "Hi there, please update your coverage." {
		t.Errorf("email section: got=%q", got.EmailBody)
	}
}

func TestGenerateFixInstructionsPartialLLMOutputMixesFallback(t *testing.T) {
	// Model skipped the agent and email sections entirely.
	openai := &fakeOpenAI{response: "VENDOR INSTRUCTIONS:\nJust the vendor part."}
	svc, _, _, _ := newInstructionService(t, openai)

	got := svc.GenerateFixInstructions(context.Background(), "Vendor", "", sampleGaps())

	if got.VendorInstructions != "Just the vendor part." {
		t.Errorf("vendor section: got=%q", got.VendorInstructions)
	}
	if !strings.Contains(got.AgentInstructions, "Insurance Agent Requirements:") {
		t.Errorf("agent section must fall back, got=%q", got.AgentInstructions)
	}
	if !strings.Contains(got.EmailBody, "Dear Vendor,") {
		t.Errorf("email section must fall back, got=%q", got.EmailBody)
	}
}

func TestParseInstructionSectionsCaseInsensitive(t *testing.T) {
	sections := parseInstructionSections(`vendor instructions: step one
insurance agent instructions: details here
email body: hello`)

	if sections.VendorInstructions != "step one" {
		t.Errorf("vendor: got=%q", sections.VendorInstructions)
	}
	if sections.AgentInstructions != "details here" {
		t.Errorf("agent: got=%q", sections.AgentInstructions)
	}
	if sections.EmailBody != "hello" {
		t.Errorf("email: got=%q", sections.EmailBody)
	}
}

func TestGenerateForCertificateNotFound(t *testing.T) {
	svc, _, _, _ := newInstructionService(t, nil)

	_, err := svc.GenerateForCertificate(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("want error for unknown certificate")
	}
}

func TestGenerateForCertificateNoGaps(t *testing.T) {
	svc, certRepo, _, _ := newInstructionService(t, nil)
	cert := &types.Certificate{ID: uuid.New(), VendorID: uuid.New()}
	certRepo.add(cert)

	_, err := svc.GenerateForCertificate(context.Background(), cert.ID)
	if err == nil {
		t.Fatal("want error when certificate has no gaps")
	}
}

func TestGenerateForCertificateSuccess(t *testing.T) {
	svc, certRepo, gapRepo, eventRepo := newInstructionService(t, nil)
	vendor := &types.Vendor{ID: uuid.New(), Name: "ABC Construction LLC", BusinessType: "General Contractor"}
	cert := &types.Certificate{ID: uuid.New(), VendorID: vendor.ID, Vendor: vendor}
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

	result, err := svc.GenerateForCertificate(context.Background(), cert.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Gaps) != 1 {
		t.Fatalf("gaps: want=1 got=%d", len(result.Gaps))
	}
	if result.Vendor == nil || result.Vendor.Name != "ABC Construction LLC" {
		t.Errorf("vendor: got=%+v", result.Vendor)
	}
	if result.Instructions.VendorInstructions == "" || result.Instructions.EmailBody == "" {
		t.Error("instructions must be populated")
	}

	events := eventRepo.eventTypes()
	if len(events) != 1 || events[0] != types.EventInstructionsGenerated {
		t.Errorf("events: want=[instructions_generated] got=%v", events)
	}
}

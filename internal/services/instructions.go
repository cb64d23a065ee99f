package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intellicoi/coi-backend/internal/apierr"
	"github.com/intellicoi/coi-backend/internal/compliance"
	"github.com/intellicoi/coi-backend/internal/logger"
	"github.com/intellicoi/coi-backend/internal/repos"
	"github.com/intellicoi/coi-backend/internal/types"
)

// InstructionService turns gaps into remediation text. The LLM path is an
// enhancement; the deterministic builders are the contract, used whenever the
// backend is unavailable, fails, or returns unparseable output.
type InstructionService interface {
	GenerateFixInstructions(ctx context.Context, vendorName string, vendorType string, gaps []types.ComplianceGap) types.FixInstructions
	GenerateForCertificate(ctx context.Context, certificateID uuid.UUID) (*CertificateInstructions, error)
}

// CertificateInstructions is the full response of a per-certificate
// generation: the text plus the gaps and vendor it was produced for.
type CertificateInstructions struct {
	Instructions types.FixInstructions `json:"instructions"`
	Gaps         []types.ComplianceGap `json:"gaps"`
	Vendor       *types.Vendor         `json:"vendor"`
}

type instructionService struct {
	log       *logger.Logger
	openai    OpenAIClient
	certRepo  repos.CertificateRepo
	gapRepo   repos.GapAnalysisRepo
	eventRepo repos.ComplianceEventRepo
}

// NewInstructionService accepts a nil OpenAI client; generation then runs
// fallback-only.
func NewInstructionService(
	log *logger.Logger,
	openai OpenAIClient,
	certRepo repos.CertificateRepo,
	gapRepo repos.GapAnalysisRepo,
	eventRepo repos.ComplianceEventRepo,
) InstructionService {
	return &instructionService{
		log:       log.With("service", "InstructionService"),
		openai:    openai,
		certRepo:  certRepo,
		gapRepo:   gapRepo,
		eventRepo: eventRepo,
	}
}

const instructionSystemPrompt = "You are an expert in commercial insurance and COI compliance. Provide clear, specific instructions that will help vendors become compliant quickly."

func (is *instructionService) GenerateFixInstructions(ctx context.Context, vendorName string, vendorType string, gaps []types.ComplianceGap) types.FixInstructions {
	fallback := types.FixInstructions{
		VendorInstructions: buildVendorInstructions(gaps),
		AgentInstructions:  buildAgentInstructions(gaps),
		EmailBody:          buildEmailBody(vendorName, gaps),
	}
	if is.openai == nil {
		return fallback
	}

	response, err := is.openai.GenerateText(ctx, instructionSystemPrompt, buildInstructionPrompt(vendorName, vendorType, gaps))
	if err != nil {
		is.log.Warn("LLM instruction generation failed, using fallback", "error", err)
		return fallback
	}

	sections := parseInstructionSections(response)
	result := fallback
	if sections.VendorInstructions != "" {
		result.VendorInstructions = sections.VendorInstructions
	}
	if sections.AgentInstructions != "" {
		result.AgentInstructions = sections.AgentInstructions
	}
	if sections.EmailBody != "" {
		result.EmailBody = sections.EmailBody
	}
	return result
}

// GenerateForCertificate loads the certificate's stored gaps, produces the
// instruction text, writes per-gap instructions back, and records the event.
func (is *instructionService) GenerateForCertificate(ctx context.Context, certificateID uuid.UUID) (*CertificateInstructions, error) {
	cert, err := is.certRepo.GetByID(ctx, nil, certificateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(http.StatusNotFound, "certificate_not_found", fmt.Errorf("certificate %s not found", certificateID))
		}
		return nil, err
	}

	records, err := is.gapRepo.GetByCertificateID(ctx, nil, certificateID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "no_gaps", fmt.Errorf("no gaps found for certificate %s", certificateID))
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

	vendorName := ""
	vendorType := ""
	if cert.Vendor != nil {
		vendorName = cert.Vendor.Name
		vendorType = cert.Vendor.BusinessType
	}

	instructions := is.GenerateFixInstructions(ctx, vendorName, vendorType, gaps)

	for _, rec := range records {
		if err := is.gapRepo.UpdateInstruction(ctx, nil, rec.ID, rec.Instruction); err != nil {
			is.log.Warn("Failed to update gap instruction", "gap_id", rec.ID.String(), "error", err)
		}
	}

	if err := is.eventRepo.Log(ctx, nil, types.EventInstructionsGenerated, &certificateID, &cert.VendorID, map[string]interface{}{
		"gap_count": len(gaps),
		"method":    "llm_with_fallback",
	}); err != nil {
		is.log.Warn("Failed to log instructions_generated event", "certificate_id", certificateID.String(), "error", err)
	}

	return &CertificateInstructions{
		Instructions: instructions,
		Gaps:         gaps,
		Vendor:       cert.Vendor,
	}, nil
}

func buildInstructionPrompt(vendorName string, vendorType string, gaps []types.ComplianceGap) string {
	if vendorType == "" {
		vendorType = "General Contractor"
	}

	var summary []string
	for _, gap := range gaps {
		display := compliance.FormatCoverageType(gap.CoverageType)
		if gap.Actual == nil {
			summary = append(summary, fmt.Sprintf("- Missing %s coverage (requires %s)", display, compliance.FormatAmount(gap.Required)))
		} else {
			summary = append(summary, fmt.Sprintf("- %s: Currently %s, needs to be %s", display, compliance.FormatAmount(*gap.Actual), compliance.FormatAmount(gap.Required)))
		}
	}

	return fmt.Sprintf(`You are an insurance compliance expert helping property managers communicate with vendors.

Vendor: %s
Vendor Type: %s

Coverage Gaps Found:
%s

Generate three things:

1. VENDOR INSTRUCTIONS: Clear, actionable steps the vendor should take to fix these gaps. Write in simple language that a busy contractor would understand. Be specific about what they need to tell their insurance agent.

2. INSURANCE AGENT INSTRUCTIONS: Technical details the vendor's insurance agent needs to make the changes. Include specific endorsement names and coverage terms.

3. EMAIL BODY: A professional but friendly email the property manager can send to the vendor explaining the gaps and next steps.

Make sure all instructions are specific, actionable, and will result in compliance.`, vendorName, vendorType, strings.Join(summary, "\n"))
}

var (
	vendorSectionRe = regexp.MustCompile(`(?is)VENDOR INSTRUCTIONS:?\s*(.*?)(?:INSURANCE AGENT INSTRUCTIONS:|EMAIL BODY:|$)`)
	agentSectionRe  = regexp.MustCompile(`(?is)INSURANCE AGENT INSTRUCTIONS:?\s*(.*?)(?:EMAIL BODY:|$)`)
	emailSectionRe  = regexp.MustCompile(`(?is)EMAIL BODY:?\s*(.*)$`)
)

// parseInstructionSections slices LLM output on its three expected headers.
// Best effort: a section the model skipped comes back empty and the caller
// substitutes the deterministic text.
func parseInstructionSections(response string) types.FixInstructions {
	var sections types.FixInstructions
	if m := vendorSectionRe.FindStringSubmatch(response); m != nil {
		sections.VendorInstructions = strings.TrimSpace(m[1])
	}
	if m := agentSectionRe.FindStringSubmatch(response); m != nil {
		sections.AgentInstructions = strings.TrimSpace(m[1])
	}
	if m := emailSectionRe.FindStringSubmatch(response); m != nil {
		sections.EmailBody = strings.TrimSpace(m[1])
	}
	return sections
}

func buildVendorInstructions(gaps []types.ComplianceGap) string {
	lines := []string{"To become compliant, please take these steps:", ""}
	for i, gap := range gaps {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, gap.Instruction))
	}
	lines = append(lines, "", "Please contact your insurance agent with these requirements and upload your updated COI once the changes are made.")
	return strings.Join(lines, "\n")
}

func buildAgentInstructions(gaps []types.ComplianceGap) string {
	lines := []string{"Insurance Agent Requirements:", ""}
	for _, gap := range gaps {
		display := compliance.FormatCoverageType(gap.CoverageType)
		if gap.Actual == nil {
			lines = append(lines, fmt.Sprintf("- Add %s with minimum limit of %s", display, compliance.FormatAmount(gap.Required)))
		} else {
			lines = append(lines, fmt.Sprintf("- Increase %s from %s to %s", display, compliance.FormatAmount(*gap.Actual), compliance.FormatAmount(gap.Required)))
		}
	}
	lines = append(lines, "", "Ensure the certificate holder is listed correctly and all endorsements are included.")
	return strings.Join(lines, "\n")
}

func buildEmailBody(vendorName string, gaps []types.ComplianceGap) string {
	var gapLines []string
	for _, gap := range gaps {
		gapLines = append(gapLines, "- "+gap.Instruction)
	}

	return fmt.Sprintf(`Dear %s,

We've reviewed your Certificate of Insurance and found a few items that need to be updated to meet our requirements:

%s

These changes are required to maintain compliance with our vendor insurance requirements. Please forward this email to your insurance agent and request these updates.

Once your coverage has been updated, please upload your new COI through our vendor portal.

If you have any questions about these requirements, please don't hesitate to reach out.

Best regards,
Property Management Team`, vendorName, strings.Join(gapLines, "\n"))
}

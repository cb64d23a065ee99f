package types

import "github.com/google/uuid"

// ComplianceRequirement is one rule from the requirement catalog. Immutable
// reference data for the duration of an evaluation.
type ComplianceRequirement struct {
	ID            string   `json:"id" yaml:"id"`
	CoverageType  string   `json:"coverage_type" yaml:"coverage_type"`
	MinimumAmount float64  `json:"minimum_amount" yaml:"minimum_amount"`
	Required      bool     `json:"required" yaml:"required"`
	VendorTypes   []string `json:"vendor_types" yaml:"vendor_types"`
	Description   string   `json:"description" yaml:"description"`
}

// ComplianceGap is the in-memory shape of a single coverage deficit. Actual
// is nil when the coverage is entirely absent from the certificate.
type ComplianceGap struct {
	CoverageType string   `json:"coverage_type"`
	Required     float64  `json:"required"`
	Actual       *float64 `json:"actual"`
	Gap          float64  `json:"gap"`
	Instruction  string   `json:"instruction"`
}

// FixInstructions is the three-part remediation text produced by the
// instruction generator.
type FixInstructions struct {
	VendorInstructions string `json:"vendor_instructions"`
	AgentInstructions  string `json:"agent_instructions"`
	EmailBody          string `json:"email_body"`
}

// WebhookPayload is the extraction backend's completion callback body.
type WebhookPayload struct {
	JobID      string         `json:"jobId"`
	Status     string         `json:"status"`
	Extraction map[string]any `json:"extraction,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// ProcessingResult is the webhook ingestor's outcome. Failures on that path
// are always reported through this shape, never raised.
type ProcessingResult struct {
	Success       bool            `json:"success"`
	CertificateID *uuid.UUID      `json:"certificate_id,omitempty"`
	Confidence    float64         `json:"confidence,omitempty"`
	Gaps          []ComplianceGap `json:"gaps,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// VendorNotification is the payload handed to the email dispatcher for a
// non-compliant certificate.
type VendorNotification struct {
	VendorID    uuid.UUID       `json:"vendor_id"`
	VendorEmail string          `json:"vendor_email"`
	VendorName  string          `json:"vendor_name"`
	Gaps        []ComplianceGap `json:"gaps"`
	PortalURL   string          `json:"portal_url"`
}

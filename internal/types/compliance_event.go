package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EventCOIUploaded           = "coi_uploaded"
	EventCOIProcessed          = "coi_processed"
	EventCOIProcessingFailed   = "coi_processing_failed"
	EventGapDetected           = "gap_detected"
	EventComplianceAchieved    = "compliance_achieved"
	EventInstructionsGenerated = "instructions_generated"
	EventVendorNotified        = "vendor_notified"
)

// ComplianceEvent is an append-only audit entry. The pipeline only ever
// writes these; nothing in the core reads them back.
type ComplianceEvent struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventType     string         `gorm:"column:event_type;not null;index" json:"event_type"`
	CertificateID *uuid.UUID     `gorm:"type:uuid;index" json:"certificate_id,omitempty"`
	VendorID      *uuid.UUID     `gorm:"type:uuid;index" json:"vendor_id,omitempty"`
	Data          datatypes.JSON `gorm:"column:data;type:jsonb" json:"data,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (ComplianceEvent) TableName() string { return "compliance_event" }

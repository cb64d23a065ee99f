package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProcessingStatus string

const (
	ProcessingPending        ProcessingStatus = "pending"
	ProcessingInProgress     ProcessingStatus = "processing"
	ProcessingCompleted      ProcessingStatus = "completed"
	ProcessingFailed         ProcessingStatus = "failed"
	ProcessingRequiresReview ProcessingStatus = "requires_review"
)

type ComplianceStatus string

const (
	CompliancePending      ComplianceStatus = "pending"
	ComplianceCompliant    ComplianceStatus = "compliant"
	CompliancePartial      ComplianceStatus = "partial"
	ComplianceNonCompliant ComplianceStatus = "non_compliant"
	ComplianceExpired      ComplianceStatus = "expired"
)

// Certificate is the lifecycle record for one uploaded COI document.
// ExtractedData stays null until the extraction webhook completes the job.
type Certificate struct {
	ID                   uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	VendorID             uuid.UUID        `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Vendor               *Vendor          `gorm:"constraint:OnDelete:CASCADE;foreignKey:VendorID;references:ID" json:"vendor,omitempty"`
	DocumentURL          string           `gorm:"column:document_url;not null" json:"document_url"`
	FileName             string           `gorm:"column:file_name;not null" json:"file_name"`
	FileSize             int64            `gorm:"column:file_size" json:"file_size"`
	MimeType             string           `gorm:"column:mime_type" json:"mime_type"`
	ExtractedData        datatypes.JSON   `gorm:"column:extracted_data;type:jsonb" json:"extracted_data,omitempty"`
	ExtractionConfidence float64          `gorm:"column:extraction_confidence" json:"extraction_confidence"`
	ProcessingStatus     ProcessingStatus `gorm:"column:processing_status;not null;default:'pending';index" json:"processing_status"`
	ComplianceStatus     ComplianceStatus `gorm:"column:compliance_status;not null;default:'pending';index" json:"compliance_status"`
	VectorizeJobID       string           `gorm:"column:vectorize_job_id;index" json:"vectorize_job_id,omitempty"`
	ExpiresAt            *time.Time       `gorm:"column:expires_at" json:"expires_at,omitempty"`
	UploadedAt           time.Time        `gorm:"column:uploaded_at;not null;default:now()" json:"uploaded_at"`
	ProcessedAt          *time.Time       `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt            time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt            time.Time        `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt            gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
}

func (Certificate) TableName() string { return "certificate" }

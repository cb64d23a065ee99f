package types

import (
	"time"

	"github.com/google/uuid"
)

// GapAnalysisRecord is a persisted compliance gap row. Rows are derived from
// the certificate's extracted data and are fully replaced on every
// re-evaluation, never merged.
type GapAnalysisRecord struct {
	ID             uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CertificateID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"certificate_id"`
	Certificate    *Certificate `gorm:"constraint:OnDelete:CASCADE;foreignKey:CertificateID;references:ID" json:"certificate,omitempty"`
	CoverageType   string       `gorm:"column:coverage_type;not null" json:"coverage_type"`
	RequiredAmount float64      `gorm:"column:required_amount" json:"required_amount"`
	ActualAmount   *float64     `gorm:"column:actual_amount" json:"actual_amount,omitempty"`
	GapAmount      float64      `gorm:"column:gap_amount" json:"gap_amount"`
	IsCompliant    bool         `gorm:"column:is_compliant;not null;default:false" json:"is_compliant"`
	Instruction    string       `gorm:"column:instruction" json:"instruction"`
	CreatedAt      time.Time    `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:now()" json:"updated_at"`
}

func (GapAnalysisRecord) TableName() string { return "gap_analysis" }

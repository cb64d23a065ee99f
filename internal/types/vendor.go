package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Vendor struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name         string         `gorm:"column:name;not null" json:"name"`
	BusinessType string         `gorm:"column:business_type" json:"business_type,omitempty"`
	Email        string         `gorm:"column:email" json:"email,omitempty"`
	Phone        string         `gorm:"column:phone" json:"phone,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Vendor) TableName() string { return "vendor" }

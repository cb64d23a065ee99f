package types

import (
	"time"

	"github.com/google/uuid"
)

// VendorAccessToken grants a vendor time-boxed upload access through the
// portal. One active token per vendor.
type VendorAccessToken struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	VendorID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"vendor_id"`
	Vendor     *Vendor    `gorm:"constraint:OnDelete:CASCADE;foreignKey:VendorID;references:ID" json:"vendor,omitempty"`
	Token      string     `gorm:"column:token;uniqueIndex;not null" json:"token"`
	ExpiresAt  time.Time  `gorm:"column:expires_at;not null" json:"expires_at"`
	LastUsedAt *time.Time `gorm:"column:last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (VendorAccessToken) TableName() string { return "vendor_access_token" }

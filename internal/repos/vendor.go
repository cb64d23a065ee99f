package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intellicoi/coi-backend/internal/logger"
	"github.com/intellicoi/coi-backend/internal/types"
)

type VendorRepo interface {
	Create(ctx context.Context, tx *gorm.DB, vendor *types.Vendor) (*types.Vendor, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Vendor, error)
}

type vendorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVendorRepo(db *gorm.DB, baseLog *logger.Logger) VendorRepo {
	repoLog := baseLog.With("repo", "VendorRepo")
	return &vendorRepo{db: db, log: repoLog}
}

func (r *vendorRepo) Create(ctx context.Context, tx *gorm.DB, vendor *types.Vendor) (*types.Vendor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(vendor).Error; err != nil {
		return nil, err
	}
	return vendor, nil
}

func (r *vendorRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Vendor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var vendor types.Vendor
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/intellicoi/coi-backend/internal/logger"
	"github.com/intellicoi/coi-backend/internal/types"
)

type VendorAccessTokenRepo interface {
	Create(ctx context.Context, tx *gorm.DB, token *types.VendorAccessToken) (*types.VendorAccessToken, error)
	Upsert(ctx context.Context, tx *gorm.DB, token *types.VendorAccessToken) (*types.VendorAccessToken, error)
	GetByVendorID(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*types.VendorAccessToken, error)
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (*types.VendorAccessToken, error)
	TouchLastUsed(ctx context.Context, tx *gorm.DB, token string, at time.Time) error
}

type vendorAccessTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVendorAccessTokenRepo(db *gorm.DB, baseLog *logger.Logger) VendorAccessTokenRepo {
	repoLog := baseLog.With("repo", "VendorAccessTokenRepo")
	return &vendorAccessTokenRepo{db: db, log: repoLog}
}

func (r *vendorAccessTokenRepo) Create(ctx context.Context, tx *gorm.DB, token *types.VendorAccessToken) (*types.VendorAccessToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

// Upsert rotates the vendor's single token row in place, keyed by the
// one-per-vendor unique index.
func (r *vendorAccessTokenRepo) Upsert(ctx context.Context, tx *gorm.DB, token *types.VendorAccessToken) (*types.VendorAccessToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vendor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at"}),
		}).
		Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

func (r *vendorAccessTokenRepo) GetByVendorID(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*types.VendorAccessToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var token types.VendorAccessToken
	if err := transaction.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *vendorAccessTokenRepo) GetByToken(ctx context.Context, tx *gorm.DB, tokenString string) (*types.VendorAccessToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var token types.VendorAccessToken
	if err := transaction.WithContext(ctx).
		Preload("Vendor").
		Where("token = ?", tokenString).
		First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *vendorAccessTokenRepo) TouchLastUsed(ctx context.Context, tx *gorm.DB, tokenString string, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.VendorAccessToken{}).
		Where("token = ?", tokenString).
		Update("last_used_at", at).Error; err != nil {
		return err
	}
	return nil
}

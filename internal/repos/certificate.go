package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intellicoi/coi-backend/internal/logger"
	"github.com/intellicoi/coi-backend/internal/types"
)

type CertificateRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cert *types.Certificate) (*types.Certificate, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Certificate, error)
	GetByJobID(ctx context.Context, tx *gorm.DB, jobID string) (*types.Certificate, error)
	GetByVendorID(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) ([]*types.Certificate, error)
	GetLatestByVendorID(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*types.Certificate, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type certificateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateRepo(db *gorm.DB, baseLog *logger.Logger) CertificateRepo {
	repoLog := baseLog.With("repo", "CertificateRepo")
	return &certificateRepo{db: db, log: repoLog}
}

func (r *certificateRepo) Create(ctx context.Context, tx *gorm.DB, cert *types.Certificate) (*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(cert).Error; err != nil {
		return nil, err
	}
	return cert, nil
}

func (r *certificateRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var cert types.Certificate
	if err := transaction.WithContext(ctx).
		Preload("Vendor").
		Where("id = ?", id).
		First(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *certificateRepo) GetByJobID(ctx context.Context, tx *gorm.DB, jobID string) (*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var cert types.Certificate
	if err := transaction.WithContext(ctx).
		Where("vectorize_job_id = ?", jobID).
		First(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *certificateRepo) GetByVendorID(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) ([]*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Certificate
	if vendorID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("uploaded_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *certificateRepo) GetLatestByVendorID(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var cert types.Certificate
	if err := transaction.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("uploaded_at DESC").
		First(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

// UpdateFields is a plain field overwrite keyed by id. Duplicate webhook
// deliveries converge to the same row state because nothing here increments
// or appends.
func (r *certificateRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.Certificate{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return err
	}
	return nil
}

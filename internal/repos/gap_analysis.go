package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intellicoi/coi-backend/internal/logger"
	"github.com/intellicoi/coi-backend/internal/types"
)

type GapAnalysisRepo interface {
	GetByCertificateID(ctx context.Context, tx *gorm.DB, certificateID uuid.UUID) ([]*types.GapAnalysisRecord, error)
	ReplaceForCertificate(ctx context.Context, tx *gorm.DB, certificateID uuid.UUID, records []*types.GapAnalysisRecord) error
	UpdateInstruction(ctx context.Context, tx *gorm.DB, id uuid.UUID, instruction string) error
}

type gapAnalysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGapAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) GapAnalysisRepo {
	repoLog := baseLog.With("repo", "GapAnalysisRepo")
	return &gapAnalysisRepo{db: db, log: repoLog}
}

func (r *gapAnalysisRepo) GetByCertificateID(ctx context.Context, tx *gorm.DB, certificateID uuid.UUID) ([]*types.GapAnalysisRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.GapAnalysisRecord
	if certificateID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("certificate_id = ?", certificateID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ReplaceForCertificate swaps the certificate's gap rows for the given set in
// one transaction. Replace, not merge: re-evaluation after a corrected upload
// must never leave stale rows behind.
func (r *gapAnalysisRepo) ReplaceForCertificate(ctx context.Context, tx *gorm.DB, certificateID uuid.UUID, records []*types.GapAnalysisRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Transaction(func(innerTx *gorm.DB) error {
		if err := innerTx.
			Unscoped().
			Where("certificate_id = ?", certificateID).
			Delete(&types.GapAnalysisRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return innerTx.Create(&records).Error
	})
}

func (r *gapAnalysisRepo) UpdateInstruction(ctx context.Context, tx *gorm.DB, id uuid.UUID, instruction string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.GapAnalysisRecord{}).
		Where("id = ?", id).
		Update("instruction", instruction).Error; err != nil {
		return err
	}
	return nil
}

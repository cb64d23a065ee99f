package repos

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/intellicoi/coi-backend/internal/logger"
	"github.com/intellicoi/coi-backend/internal/types"
)

type ComplianceEventRepo interface {
	Log(ctx context.Context, tx *gorm.DB, eventType string, certificateID, vendorID *uuid.UUID, data map[string]interface{}) error
}

type complianceEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewComplianceEventRepo(db *gorm.DB, baseLog *logger.Logger) ComplianceEventRepo {
	repoLog := baseLog.With("repo", "ComplianceEventRepo")
	return &complianceEventRepo{db: db, log: repoLog}
}

// Log appends one audit event. The audit trail is write-only for the
// pipeline; a failed insert is logged but not fatal to the caller's flow,
// which is why errors here are returned for the caller to decide on.
func (r *complianceEventRepo) Log(ctx context.Context, tx *gorm.DB, eventType string, certificateID, vendorID *uuid.UUID, data map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	event := &types.ComplianceEvent{
		EventType:     eventType,
		CertificateID: certificateID,
		VendorID:      vendorID,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		event.Data = datatypes.JSON(raw)
	}

	if err := transaction.WithContext(ctx).Create(event).Error; err != nil {
		r.log.Error("Failed to log compliance event", "event_type", eventType, "error", err)
		return err
	}
	return nil
}

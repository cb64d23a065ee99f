package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intellicoi/coi-backend/internal/compliance"
	"github.com/intellicoi/coi-backend/internal/logger"
	"github.com/intellicoi/coi-backend/internal/repos"
	"github.com/intellicoi/coi-backend/internal/types"
)

// ComplianceService runs the gap engine against a certificate and persists
// the verdict: compliance status, replaced gap rows, and one audit event per
// evaluation.
type ComplianceService interface {
	Evaluate(ctx context.Context, certificateID uuid.UUID, data types.ExtractedCOIData) ([]types.ComplianceGap, error)
	Engine() *compliance.Engine
}

type complianceService struct {
	log       *logger.Logger
	db        *gorm.DB
	engine    *compliance.Engine
	certRepo  repos.CertificateRepo
	gapRepo   repos.GapAnalysisRepo
	eventRepo repos.ComplianceEventRepo
}

func NewComplianceService(
	log *logger.Logger,
	db *gorm.DB,
	engine *compliance.Engine,
	certRepo repos.CertificateRepo,
	gapRepo repos.GapAnalysisRepo,
	eventRepo repos.ComplianceEventRepo,
) ComplianceService {
	return &complianceService{
		log:       log.With("service", "ComplianceService"),
		db:        db,
		engine:    engine,
		certRepo:  certRepo,
		gapRepo:   gapRepo,
		eventRepo: eventRepo,
	}
}

func (cs *complianceService) Engine() *compliance.Engine {
	return cs.engine
}

// Evaluate computes gaps and persists the outcome atomically. Gap rows are
// replaced, never merged, so re-evaluation after a corrected upload leaves no
// stale rows.
func (cs *complianceService) Evaluate(ctx context.Context, certificateID uuid.UUID, data types.ExtractedCOIData) ([]types.ComplianceGap, error) {
	cert, err := cs.certRepo.GetByID(ctx, nil, certificateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate %s: %w", certificateID, err)
	}

	gaps := cs.engine.AnalyzeGaps(data)
	percentage := cs.engine.CompliancePercentage(data)

	status := types.ComplianceCompliant
	if len(gaps) > 0 {
		status = types.ComplianceNonCompliant
	}

	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := cs.certRepo.UpdateFields(ctx, tx, certificateID, map[string]interface{}{
			"compliance_status": status,
		}); err != nil {
			return fmt.Errorf("failed to update compliance status: %w", err)
		}

		records := make([]*types.GapAnalysisRecord, 0, len(gaps))
		for _, gap := range gaps {
			records = append(records, &types.GapAnalysisRecord{
				CertificateID:  certificateID,
				CoverageType:   gap.CoverageType,
				RequiredAmount: gap.Required,
				ActualAmount:   gap.Actual,
				GapAmount:      gap.Gap,
				IsCompliant:    false,
				Instruction:    gap.Instruction,
			})
		}
		if err := cs.gapRepo.ReplaceForCertificate(ctx, tx, certificateID, records); err != nil {
			return fmt.Errorf("failed to replace gap rows: %w", err)
		}

		if len(gaps) > 0 {
			return cs.eventRepo.Log(ctx, tx, types.EventGapDetected, &certificateID, &cert.VendorID, map[string]interface{}{
				"gap_count":             len(gaps),
				"compliance_percentage": percentage,
			})
		}
		return cs.eventRepo.Log(ctx, tx, types.EventComplianceAchieved, &certificateID, &cert.VendorID, nil)
	})
	if err != nil {
		return nil, err
	}

	cs.log.Info("Compliance evaluated",
		"certificate_id", certificateID.String(),
		"status", string(status),
		"gap_count", len(gaps),
		"compliance_percentage", percentage,
	)
	return gaps, nil
}

package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intellicoi/coi-backend/internal/apierr"
	"github.com/intellicoi/coi-backend/internal/logger"
	"github.com/intellicoi/coi-backend/internal/repos"
	"github.com/intellicoi/coi-backend/internal/types"
)

const maxUploadBytes = 10 * 1024 * 1024

var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

// UploadCOIInput is the intake request. VendorID wins when set; otherwise a
// vendor is created from the name/email fields.
type UploadCOIInput struct {
	VendorID    *uuid.UUID
	VendorName  string
	VendorEmail string
	FileName    string
	MimeType    string
	FileSize    int64
	Content     []byte
}

type UploadCOIResult struct {
	CertificateID uuid.UUID `json:"certificate_id"`
	VendorID      uuid.UUID `json:"vendor_id"`
	JobID         string    `json:"job_id"`
}

// CertificateService owns COI intake and the read surface over certificates
// and their gap rows.
type CertificateService interface {
	UploadCOI(ctx context.Context, input UploadCOIInput) (*UploadCOIResult, error)
	GetCertificate(ctx context.Context, id uuid.UUID) (*types.Certificate, error)
	GetCertificateGaps(ctx context.Context, id uuid.UUID) ([]*types.GapAnalysisRecord, error)
	ListVendorCertificates(ctx context.Context, vendorID uuid.UUID) ([]*types.Certificate, error)
}

type certificateService struct {
	log        *logger.Logger
	vendorRepo repos.VendorRepo
	certRepo   repos.CertificateRepo
	gapRepo    repos.GapAnalysisRepo
	eventRepo  repos.ComplianceEventRepo
	bucket     BucketService
	extraction ExtractionClient
}

func NewCertificateService(
	log *logger.Logger,
	vendorRepo repos.VendorRepo,
	certRepo repos.CertificateRepo,
	gapRepo repos.GapAnalysisRepo,
	eventRepo repos.ComplianceEventRepo,
	bucket BucketService,
	extraction ExtractionClient,
) CertificateService {
	return &certificateService{
		log:        log.With("service", "CertificateService"),
		vendorRepo: vendorRepo,
		certRepo:   certRepo,
		gapRepo:    gapRepo,
		eventRepo:  eventRepo,
		bucket:     bucket,
		extraction: extraction,
	}
}

// UploadCOI validates the document, stores it, creates the certificate row
// and submits the extraction job. The certificate ends in processing (job
// accepted) or failed (submission rejected).
func (cs *certificateService) UploadCOI(ctx context.Context, input UploadCOIInput) (*UploadCOIResult, error) {
	if len(input.Content) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "no_file", fmt.Errorf("no file provided"))
	}
	if !allowedMimeTypes[input.MimeType] {
		return nil, apierr.New(http.StatusBadRequest, "invalid_file_type", fmt.Errorf("invalid file type %q, upload PDF, PNG, or JPG", input.MimeType))
	}
	if input.FileSize > maxUploadBytes || int64(len(input.Content)) > maxUploadBytes {
		return nil, apierr.New(http.StatusBadRequest, "file_too_large", fmt.Errorf("file too large, maximum size is 10MB"))
	}

	vendorID, err := cs.resolveVendor(ctx, input)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("coi-documents/%s/%d-%s", vendorID, time.Now().UnixMilli(), input.FileName)
	if err := cs.bucket.UploadFile(ctx, key, bytes.NewReader(input.Content)); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	cert, err := cs.certRepo.Create(ctx, nil, &types.Certificate{
		VendorID:         vendorID,
		DocumentURL:      cs.bucket.GetPublicURL(key),
		FileName:         input.FileName,
		FileSize:         input.FileSize,
		MimeType:         input.MimeType,
		ProcessingStatus: types.ProcessingPending,
		ComplianceStatus: types.CompliancePending,
		UploadedAt:       time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	job, err := cs.extraction.SubmitDocument(ctx, input.FileName, input.MimeType, bytes.NewReader(input.Content))
	if err != nil {
		if uErr := cs.certRepo.UpdateFields(ctx, nil, cert.ID, map[string]interface{}{
			"processing_status": types.ProcessingFailed,
		}); uErr != nil {
			cs.log.Error("Failed to mark certificate failed after submission error", "certificate_id", cert.ID.String(), "error", uErr)
		}
		return nil, fmt.Errorf("failed to start processing: %w", err)
	}

	if err := cs.certRepo.UpdateFields(ctx, nil, cert.ID, map[string]interface{}{
		"vectorize_job_id":  job.JobID,
		"processing_status": types.ProcessingInProgress,
	}); err != nil {
		return nil, fmt.Errorf("failed to record extraction job: %w", err)
	}

	if err := cs.eventRepo.Log(ctx, nil, types.EventCOIUploaded, &cert.ID, &vendorID, map[string]interface{}{
		"file_name": input.FileName,
		"file_size": input.FileSize,
		"file_type": input.MimeType,
	}); err != nil {
		cs.log.Warn("Failed to log coi_uploaded event", "certificate_id", cert.ID.String(), "error", err)
	}

	cs.log.Info("COI uploaded and processing started",
		"certificate_id", cert.ID.String(),
		"vendor_id", vendorID.String(),
		"job_id", job.JobID,
	)
	return &UploadCOIResult{
		CertificateID: cert.ID,
		VendorID:      vendorID,
		JobID:         job.JobID,
	}, nil
}

func (cs *certificateService) resolveVendor(ctx context.Context, input UploadCOIInput) (uuid.UUID, error) {
	if input.VendorID != nil && *input.VendorID != uuid.Nil {
		vendor, err := cs.vendorRepo.GetByID(ctx, nil, *input.VendorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, apierr.New(http.StatusNotFound, "vendor_not_found", fmt.Errorf("vendor %s not found", input.VendorID))
			}
			return uuid.Nil, err
		}
		return vendor.ID, nil
	}

	name := strings.TrimSpace(input.VendorName)
	if name == "" {
		name = "New Vendor"
	}
	vendor, err := cs.vendorRepo.Create(ctx, nil, &types.Vendor{
		Name:  name,
		Email: strings.TrimSpace(input.VendorEmail),
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create vendor: %w", err)
	}
	return vendor.ID, nil
}

func (cs *certificateService) GetCertificate(ctx context.Context, id uuid.UUID) (*types.Certificate, error) {
	cert, err := cs.certRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(http.StatusNotFound, "certificate_not_found", fmt.Errorf("certificate %s not found", id))
		}
		return nil, err
	}
	return cert, nil
}

func (cs *certificateService) GetCertificateGaps(ctx context.Context, id uuid.UUID) ([]*types.GapAnalysisRecord, error) {
	return cs.gapRepo.GetByCertificateID(ctx, nil, id)
}

func (cs *certificateService) ListVendorCertificates(ctx context.Context, vendorID uuid.UUID) ([]*types.Certificate, error) {
	return cs.certRepo.GetByVendorID(ctx, nil, vendorID)
}

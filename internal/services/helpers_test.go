package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intellicoi/coi-backend/internal/compliance"
	"github.com/intellicoi/coi-backend/internal/logger"
	"github.com/intellicoi/coi-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	return log
}

func float64Ptr(v float64) *float64 { return &v }

// --- fake repos ---

type fakeCertificateRepo struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*types.Certificate
	byJobID   map[string]*types.Certificate
	updates   []map[string]interface{}
	updateErr error
}

func newFakeCertificateRepo() *fakeCertificateRepo {
	return &fakeCertificateRepo{
		byID:    map[uuid.UUID]*types.Certificate{},
		byJobID: map[string]*types.Certificate{},
	}
}

func (f *fakeCertificateRepo) add(cert *types.Certificate) {
	f.byID[cert.ID] = cert
	if cert.VectorizeJobID != "" {
		f.byJobID[cert.VectorizeJobID] = cert
	}
}

func (f *fakeCertificateRepo) Create(_ context.Context, _ *gorm.DB, cert *types.Certificate) (*types.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cert.ID == uuid.Nil {
		cert.ID = uuid.New()
	}
	f.add(cert)
	return cert, nil
}

func (f *fakeCertificateRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cert, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cert, nil
}

func (f *fakeCertificateRepo) GetByJobID(_ context.Context, _ *gorm.DB, jobID string) (*types.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cert, ok := f.byJobID[jobID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cert, nil
}

func (f *fakeCertificateRepo) GetByVendorID(_ context.Context, _ *gorm.DB, vendorID uuid.UUID) ([]*types.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Certificate
	for _, cert := range f.byID {
		if cert.VendorID == vendorID {
			out = append(out, cert)
		}
	}
	return out, nil
}

func (f *fakeCertificateRepo) GetLatestByVendorID(_ context.Context, _ *gorm.DB, vendorID uuid.UUID) (*types.Certificate, error) {
	certs, _ := f.GetByVendorID(context.Background(), nil, vendorID)
	if len(certs) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return certs[0], nil
}

func (f *fakeCertificateRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	cert, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.updates = append(f.updates, updates)
	if v, ok := updates["processing_status"].(types.ProcessingStatus); ok {
		cert.ProcessingStatus = v
	}
	if v, ok := updates["compliance_status"].(types.ComplianceStatus); ok {
		cert.ComplianceStatus = v
	}
	if v, ok := updates["extraction_confidence"].(float64); ok {
		cert.ExtractionConfidence = v
	}
	if v, ok := updates["vectorize_job_id"].(string); ok {
		cert.VectorizeJobID = v
		f.byJobID[v] = cert
	}
	return nil
}

type loggedEvent struct {
	EventType     string
	CertificateID *uuid.UUID
	VendorID      *uuid.UUID
	Data          map[string]interface{}
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []loggedEvent
}

func (f *fakeEventRepo) Log(_ context.Context, _ *gorm.DB, eventType string, certificateID, vendorID *uuid.UUID, data map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, loggedEvent{EventType: eventType, CertificateID: certificateID, VendorID: vendorID, Data: data})
	return nil
}

func (f *fakeEventRepo) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeGapRepo struct {
	mu            sync.Mutex
	byCertificate map[uuid.UUID][]*types.GapAnalysisRecord
	replaceCalls  int
}

func newFakeGapRepo() *fakeGapRepo {
	return &fakeGapRepo{byCertificate: map[uuid.UUID][]*types.GapAnalysisRecord{}}
}

func (f *fakeGapRepo) GetByCertificateID(_ context.Context, _ *gorm.DB, certificateID uuid.UUID) ([]*types.GapAnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byCertificate[certificateID], nil
}

func (f *fakeGapRepo) ReplaceForCertificate(_ context.Context, _ *gorm.DB, certificateID uuid.UUID, records []*types.GapAnalysisRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaceCalls++
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
	}
	f.byCertificate[certificateID] = records
	return nil
}

func (f *fakeGapRepo) UpdateInstruction(_ context.Context, _ *gorm.DB, id uuid.UUID, instruction string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, records := range f.byCertificate {
		for _, rec := range records {
			if rec.ID == id {
				rec.Instruction = instruction
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

// fakeComplianceService records Evaluate calls without touching a database.
type fakeComplianceService struct {
	mu      sync.Mutex
	calls   int
	lastID  uuid.UUID
	gaps    []types.ComplianceGap
	evalErr error
}

func (f *fakeComplianceService) Evaluate(_ context.Context, certificateID uuid.UUID, _ types.ExtractedCOIData) ([]types.ComplianceGap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastID = certificateID
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	return f.gaps, nil
}

func (f *fakeComplianceService) Engine() *compliance.Engine {
	return compliance.NewEngine(nil)
}

// fakeEmailClient records outbound mail and can be told to fail.
type fakeEmailClient struct {
	mu      sync.Mutex
	sent    []EmailMessage
	sendErr error
}

func (f *fakeEmailClient) Send(_ context.Context, msg EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

// fakeOpenAI returns a fixed response or error.
type fakeOpenAI struct {
	response string
	err      error
	calls    int
}

func (f *fakeOpenAI) GenerateText(_ context.Context, _ string, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeTokenService struct {
	token       *types.VendorAccessToken
	ensureErr   error
	validateErr error
}

func (f *fakeTokenService) EnsureToken(_ context.Context, _ *gorm.DB, vendorID uuid.UUID) (*types.VendorAccessToken, error) {
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	if f.token != nil {
		return f.token, nil
	}
	return &types.VendorAccessToken{VendorID: vendorID, Token: fmt.Sprintf("tok-%s", vendorID)}, nil
}

func (f *fakeTokenService) Validate(_ context.Context, _ string) (*types.VendorAccessToken, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return f.token, nil
}

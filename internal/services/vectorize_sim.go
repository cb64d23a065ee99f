package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/intellicoi/coi-backend/internal/logger"
)

// JobStore keeps simulated job state between submission and webhook delivery.
// Injected rather than a package-level map so each test (or process) owns its
// lifetime.
type JobStore interface {
	Set(ctx context.Context, jobID string, result *ExtractionJobResult) error
	Get(ctx context.Context, jobID string) (*ExtractionJobResult, error)
}

// MemoryJobStore is the in-process JobStore used by tests and single-node dev
// runs.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*ExtractionJobResult
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: map[string]*ExtractionJobResult{}}
}

func (s *MemoryJobStore) Set(_ context.Context, jobID string, result *ExtractionJobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobID] = result
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, jobID string) (*ExtractionJobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("extraction job %q not found", jobID)
	}
	return job, nil
}

// SimulatorConfig tunes the simulated backend. Delay defaults to the hosted
// backend's typical turnaround; WebhookURL/WebhookSecret enable the callback
// leg and may be empty for poll-only use.
type SimulatorConfig struct {
	Delay         time.Duration
	WebhookURL    string
	WebhookSecret string
}

// SimulatedExtraction is the local stand-in for the Vectorize backend. It
// produces an ACORD-shaped payload with filename-driven variations, completes
// jobs on a detached timer, and fires the completion webhook best-effort.
type SimulatedExtraction struct {
	log        *logger.Logger
	store      JobStore
	cfg        SimulatorConfig
	httpClient *http.Client
}

func NewSimulatedExtraction(log *logger.Logger, store JobStore, cfg SimulatorConfig) *SimulatedExtraction {
	if cfg.Delay <= 0 {
		cfg.Delay = 2 * time.Second
	}
	return &SimulatedExtraction{
		log:        log.With("service", "SimulatedExtraction"),
		store:      store,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *SimulatedExtraction) SubmitDocument(ctx context.Context, fileName string, _ string, file io.Reader) (*ExtractionJob, error) {
	// Drain so callers can treat the simulator like the real client.
	if file != nil {
		_, _ = io.Copy(io.Discard, file)
	}

	jobID := "sim_extraction_" + uuid.NewString()
	if err := s.store.Set(ctx, jobID, &ExtractionJobResult{Status: ExtractionStatusProcessing}); err != nil {
		return nil, fmt.Errorf("failed to record simulated job: %w", err)
	}

	time.AfterFunc(s.cfg.Delay, func() {
		s.completeJob(jobID, fileName)
	})

	return &ExtractionJob{JobID: jobID, Status: ExtractionStatusProcessing}, nil
}

func (s *SimulatedExtraction) GetJobStatus(ctx context.Context, jobID string) (*ExtractionJobResult, error) {
	return s.store.Get(ctx, jobID)
}

func (s *SimulatedExtraction) completeJob(jobID string, fileName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result := &ExtractionJobResult{
		Status:     ExtractionStatusCompleted,
		Extraction: simulatedPayload(fileName),
		Confidence: 0.95,
	}
	if err := s.store.Set(ctx, jobID, result); err != nil {
		s.log.Error("Failed to persist simulated job completion", "job_id", jobID, "error", err)
		return
	}

	if s.cfg.WebhookURL == "" {
		return
	}
	if err := s.postWebhook(ctx, jobID, result); err != nil {
		// Best effort: the job result is readable by poll regardless.
		s.log.Warn("Simulated webhook delivery failed", "job_id", jobID, "error", err)
	}
}

func (s *SimulatedExtraction) postWebhook(ctx context.Context, jobID string, result *ExtractionJobResult) error {
	body, err := json.Marshal(map[string]any{
		"jobId":      jobID,
		"status":     result.Status,
		"extraction": result.Extraction,
		"confidence": result.Confidence,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.WebhookSecret != "" {
		req.Header.Set("X-Vectorize-Signature", s.cfg.WebhookSecret)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &httpStatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return nil
}

// simulatedPayload builds the raw backend-shaped extraction. Filename hints
// steer the scenario: "partial" drops workers comp and shrinks GL, "expired"
// backdates the expiration, "missing" keeps GL only.
func simulatedPayload(fileName string) map[string]any {
	now := time.Now()
	payload := map[string]any{
		"insurance_company": "Acme Insurance Company",
		"policy_number":     "GL-2024-12345",
		"insured_name":      "ABC Construction LLC",
		"effective_date":    now.AddDate(-1, 0, 0).Format("2006-01-02"),
		"expiration_date":   now.AddDate(1, 0, 0).Format("2006-01-02"),
		"general_liability": map[string]any{
			"policy_number":     "GL-2024-12345",
			"each_occurrence":   float64(1000000),
			"general_aggregate": float64(2000000),
		},
		"automobile_liability": map[string]any{
			"policy_number":         "AUTO-2024-67890",
			"combined_single_limit": float64(1000000),
		},
		"workers_compensation": map[string]any{
			"policy_number": "WC-2024-11111",
			"each_accident": float64(500000),
		},
		"additional_insured":    []any{"Property Management Co LLC"},
		"certificate_holder":    "Property Management Co LLC",
		"waiver_of_subrogation": true,
	}

	name := strings.ToLower(fileName)
	switch {
	case strings.Contains(name, "partial"):
		delete(payload, "workers_compensation")
		payload["general_liability"] = map[string]any{
			"policy_number":     "GL-2024-12345",
			"each_occurrence":   float64(500000),
			"general_aggregate": float64(1000000),
		}
	case strings.Contains(name, "expired"):
		payload["expiration_date"] = now.AddDate(0, -8, 0).Format("2006-01-02")
	case strings.Contains(name, "missing"):
		delete(payload, "automobile_liability")
		delete(payload, "workers_compensation")
	}

	return payload
}

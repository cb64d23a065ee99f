package services

import (
	"context"
	"io"
)

// Extraction job statuses as reported by the backend and echoed in webhook
// callbacks.
const (
	ExtractionStatusProcessing = "processing"
	ExtractionStatusCompleted  = "completed"
	ExtractionStatusFailed     = "failed"
)

// ExtractionJob is the handle returned by a submission. JobID is the key the
// webhook callback later carries.
type ExtractionJob struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ExtractionJobResult is one job's current state as seen by a poll.
type ExtractionJobResult struct {
	Status     string         `json:"status"`
	Extraction map[string]any `json:"extraction,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// ExtractionClient submits COI documents for asynchronous field extraction.
// The remote Vectorize client and the local simulator both satisfy it, so the
// pipeline never knows which backend is wired in.
type ExtractionClient interface {
	SubmitDocument(ctx context.Context, fileName string, contentType string, file io.Reader) (*ExtractionJob, error)
	GetJobStatus(ctx context.Context, jobID string) (*ExtractionJobResult, error)
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/intellicoi/coi-backend/internal/logger"
)

// VectorizeClient talks to the hosted Vectorize IRIS extraction API.
// Submission is three steps: register an upload, PUT the document bytes to the
// returned URL, then start the extraction job against the uploaded file.
type vectorizeClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	pipeline   string
	webhookURL string
	httpClient *http.Client

	maxRetries int
}

func NewVectorizeClient(log *logger.Logger) (ExtractionClient, error) {
	apiKey := os.Getenv("VECTORIZE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing VECTORIZE_API_KEY")
	}

	baseURL := os.Getenv("VECTORIZE_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.vectorize.io"
	}

	pipeline := os.Getenv("VECTORIZE_PIPELINE")
	if pipeline == "" {
		pipeline = "insurance_coi_extraction"
	}

	timeoutSec := 60
	if v := os.Getenv("VECTORIZE_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 3
	if v := os.Getenv("VECTORIZE_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &vectorizeClient{
		log:        log.With("service", "VectorizeClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		pipeline:   pipeline,
		webhookURL: os.Getenv("VECTORIZE_WEBHOOK_URL"),
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

func (c *vectorizeClient) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpStatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *vectorizeClient) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("vectorize decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !isRetryableErr(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := backoff
		if resp != nil {
			ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
			if ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
					sleepFor = time.Duration(secs) * time.Second
				}
			}
		}
		if sleepFor > 10*time.Second {
			sleepFor = 10 * time.Second
		}
		sleepFor = jitterSleep(sleepFor)

		c.log.Warn("Vectorize request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

type uploadRegisterRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

type uploadRegisterResponse struct {
	FileID    string `json:"file_id"`
	UploadURL string `json:"upload_url"`
}

type extractRequest struct {
	FileID     string `json:"file_id"`
	Pipeline   string `json:"pipeline"`
	Async      bool   `json:"async"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

type extractResponse struct {
	JobID      string  `json:"job_id"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence,omitempty"`
}

func (c *vectorizeClient) SubmitDocument(ctx context.Context, fileName string, contentType string, file io.Reader) (*ExtractionJob, error) {
	regReq := uploadRegisterRequest{FileName: fileName, ContentType: contentType}
	var reg uploadRegisterResponse
	if err := c.do(ctx, "POST", "/v1/uploads", regReq, &reg); err != nil {
		return nil, fmt.Errorf("failed to register upload: %w", err)
	}
	if reg.UploadURL == "" || reg.FileID == "" {
		return nil, fmt.Errorf("vectorize upload registration returned no destination")
	}

	if err := c.putBytes(ctx, reg.UploadURL, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload document bytes: %w", err)
	}

	extReq := extractRequest{
		FileID:     reg.FileID,
		Pipeline:   c.pipeline,
		Async:      true,
		WebhookURL: c.webhookURL,
	}
	var ext extractResponse
	if err := c.do(ctx, "POST", "/v1/extract", extReq, &ext); err != nil {
		return nil, fmt.Errorf("failed to start extraction: %w", err)
	}
	if ext.JobID == "" {
		return nil, fmt.Errorf("vectorize extraction returned no job id")
	}

	status := ext.Status
	if status == "" {
		status = ExtractionStatusProcessing
	}
	return &ExtractionJob{JobID: ext.JobID, Status: status}, nil
}

// putBytes streams the document to the signed upload URL. The body is not
// seekable, so this step is single-shot rather than retried.
func (c *vectorizeClient) putBytes(ctx context.Context, url string, contentType string, file io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, file)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
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

type jobStatusResponse struct {
	JobID      string         `json:"job_id"`
	Status     string         `json:"status"`
	Extraction map[string]any `json:"extraction,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func (c *vectorizeClient) GetJobStatus(ctx context.Context, jobID string) (*ExtractionJobResult, error) {
	var resp jobStatusResponse
	if err := c.do(ctx, "GET", "/v1/jobs/"+jobID, nil, &resp); err != nil {
		return nil, err
	}
	return &ExtractionJobResult{
		Status:     resp.Status,
		Extraction: resp.Extraction,
		Confidence: resp.Confidence,
		Error:      resp.Error,
	}, nil
}

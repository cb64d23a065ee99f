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

// EmailClient is the outbound mail boundary. The production implementation is
// SendGrid; tests inject a fake.
type EmailClient interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type EmailMessage struct {
	ToEmail  string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}

type sendGridClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	fromEmail  string
	fromName   string
	httpClient *http.Client

	maxRetries int
}

func NewSendGridClient(log *logger.Logger) (EmailClient, error) {
	apiKey := strings.TrimSpace(os.Getenv("SENDGRID_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	fromEmail := strings.TrimSpace(os.Getenv("SENDGRID_FROM_EMAIL"))
	if fromEmail == "" {
		return nil, fmt.Errorf("missing SENDGRID_FROM_EMAIL")
	}

	baseURL := strings.TrimSpace(os.Getenv("SENDGRID_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeoutSec := 30
	if v := os.Getenv("SENDGRID_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 3
	if v := os.Getenv("SENDGRID_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &sendGridClient{
		log:        log.With("service", "SendGridClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		fromName:   strings.TrimSpace(os.Getenv("SENDGRID_FROM_NAME")),
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type sgEmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgEmailAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMailSendRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgEmailAddress      `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

func (c *sendGridClient) Send(ctx context.Context, msg EmailMessage) error {
	toEmail := strings.TrimSpace(msg.ToEmail)
	if toEmail == "" {
		return fmt.Errorf("sendgrid: recipient email required")
	}
	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		return fmt.Errorf("sendgrid: subject required")
	}

	contents := []sgContent{}
	if t := strings.TrimSpace(msg.TextBody); t != "" {
		contents = append(contents, sgContent{Type: "text/plain", Value: t})
	}
	if h := strings.TrimSpace(msg.HTMLBody); h != "" {
		contents = append(contents, sgContent{Type: "text/html", Value: h})
	}
	if len(contents) == 0 {
		return fmt.Errorf("sendgrid: text or HTML body required")
	}

	wire := sgMailSendRequest{
		Personalizations: []sgPersonalization{
			{To: []sgEmailAddress{{Email: toEmail, Name: strings.TrimSpace(msg.ToName)}}},
		},
		From:    sgEmailAddress{Email: c.fromEmail, Name: c.fromName},
		Subject: subject,
		Content: contents,
	}

	return c.do(ctx, "POST", "/v3/mail/send", wire)
}

func (c *sendGridClient) doOnce(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &httpStatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}

func (c *sendGridClient) do(ctx context.Context, method, path string, body any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, err := c.doOnce(ctx, method, path, body)
		if err == nil {
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

		c.log.Warn("SendGrid request retrying",
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

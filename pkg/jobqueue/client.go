package jobqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Client is the interface to the executor's job queue. Submit returns the
// queue-assigned job ID; Poll reads the current job record. Neither call
// retries internally: retry policy belongs to the orchestration layer, which
// deliberately has none for submissions.
type Client interface {
	// Submit enqueues a job and returns its ID.
	Submit(ctx context.Context, req Request) (string, error)

	// Poll reads the current state of a job.
	Poll(ctx context.Context, jobID string) (*Job, error)
}

// HTTPConfig contains HTTP client configuration options.
type HTTPConfig struct {
	// BaseURL is the job queue API root, e.g. "https://executor:8443".
	BaseURL string

	// Token is an optional bearer token.
	Token string

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration
}

// HTTPClient talks JSON over HTTP to the executor's job queue.
type HTTPClient struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  zerolog.Logger
}

// NewHTTPClient creates a new job queue HTTP client.
func NewHTTPClient(cfg HTTPConfig, logger zerolog.Logger) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("job queue base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid job queue base URL: %w", err)
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		httpc:   &http.Client{Timeout: cfg.RequestTimeout},
		logger:  logger.With().Str("component", "jobqueue").Logger(),
	}, nil
}

// submitResponse is the queue's reply to a submission.
type submitResponse struct {
	ID string `json:"id"`
}

// errorResponse is the queue's reply on a rejected request.
type errorResponse struct {
	Error string `json:"error"`
}

// Submit enqueues a job and returns its ID.
func (c *HTTPClient) Submit(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode job request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	c.setHeaders(httpReq)

	c.logger.Debug().
		Str("job_type", string(req.JobType)).
		Str("target_scope", req.TargetScope).
		Msg("submitting job")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("submit %s job: %w", req.JobType, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("submit %s job: %s", req.JobType, readError(resp))
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if sr.ID == "" {
		return "", fmt.Errorf("queue returned empty job id for %s job", req.JobType)
	}

	c.logger.Info().
		Str("job_type", string(req.JobType)).
		Str("job_id", sr.ID).
		Msg("job submitted")

	return sr.ID, nil
}

// Poll reads the current state of a job.
func (c *HTTPClient) Poll(ctx context.Context, jobID string) (*Job, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("poll job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll job %s: %s", jobID, readError(resp))
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	if job.ID == "" {
		job.ID = jobID
	}

	return &job, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// readError extracts a useful message from an error response body.
func readError(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return resp.Status
	}
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		return fmt.Sprintf("%s: %s", resp.Status, er.Error)
	}
	return fmt.Sprintf("%s: %s", resp.Status, string(body))
}

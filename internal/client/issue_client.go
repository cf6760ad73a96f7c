package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cartagena-corp/lm-comments/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const issueService = "issues"

// IssueClient talks to the issue service
type IssueClient struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// NewIssueClient creates a client for the issue service at baseURL.
// A nil httpClient uses http.DefaultClient.
func NewIssueClient(baseURL string, httpClient *http.Client, m *metrics.Metrics, log zerolog.Logger) *IssueClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &IssueClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		metrics:    m,
		log:        log.With().Str("client", issueService).Logger(),
	}
}

// IssueExists asks GET {base}/validate/{id}; the service answers a JSON boolean
func (c *IssueClient) IssueExists(ctx context.Context, issueID uuid.UUID, token string) Verdict {
	if issueID == uuid.Nil {
		c.log.Warn().Msg("Issue validation skipped: empty issue id")
		return Denied
	}

	path := "/validate/" + issueID.String()
	resp, err := c.get(ctx, path, token)
	if err != nil {
		c.log.Warn().Err(err).Bool("unreachable", true).Str("issue_id", issueID.String()).Msg("Issue service is not available")
		return Unreachable
	}
	defer drain(resp)

	if verdict, done := c.classify(resp, path, issueID); done {
		return verdict
	}

	var exists bool
	if err := json.NewDecoder(resp.Body).Decode(&exists); err != nil {
		c.log.Error().Err(err).Str("issue_id", issueID.String()).Msg("Failed to decode issue validation response")
		return Denied
	}

	c.log.Debug().Str("issue_id", issueID.String()).Bool("exists", exists).Msg("Issue existence validated")
	if !exists {
		return Denied
	}
	return Allowed
}

// IssueAccess asks GET {base}/{id} with the caller's token; any 2xx grants access
func (c *IssueClient) IssueAccess(ctx context.Context, issueID uuid.UUID, token string) Verdict {
	if issueID == uuid.Nil {
		return Denied
	}

	path := "/" + issueID.String()
	resp, err := c.get(ctx, path, token)
	if err != nil {
		c.log.Warn().Err(err).Bool("unreachable", true).Str("issue_id", issueID.String()).Msg("Issue service is not available")
		return Unreachable
	}
	defer drain(resp)

	if verdict, done := c.classify(resp, path, issueID); done {
		return verdict
	}
	return Allowed
}

// classify maps non-2xx statuses to a verdict; done is false for 2xx
func (c *IssueClient) classify(resp *http.Response, path string, issueID uuid.UUID) (Verdict, bool) {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Allowed, false
	case resp.StatusCode == http.StatusUnauthorized:
		c.log.Warn().Str("issue_id", issueID.String()).Msg("Token not authorized by issue service")
		return Denied, true
	case resp.StatusCode == http.StatusForbidden:
		c.log.Warn().Str("issue_id", issueID.String()).Msg("No permission on issue")
		return Denied, true
	case resp.StatusCode == http.StatusNotFound:
		c.log.Warn().Str("issue_id", issueID.String()).Msg("Issue not found")
		return Denied, true
	case resp.StatusCode >= 500:
		c.log.Warn().Int("status", resp.StatusCode).Bool("unreachable", true).Str("path", path).Msg("Issue service failed")
		return Unreachable, true
	default:
		c.log.Error().Int("status", resp.StatusCode).Str("path", path).Msg("Unexpected issue service response")
		return Denied, true
	}
}

func (c *IssueClient) get(ctx context.Context, path, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.metrics.RecordExternalCall(issueService, path, status, time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("failed to call issue service: %w", err)
	}
	return resp, nil
}

// drain lets the transport reuse the connection
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

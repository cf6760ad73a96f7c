package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cartagena-corp/lm-comments/internal/metrics"
	"github.com/cartagena-corp/lm-comments/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const authService = "auth"

// UserClient talks to the auth/user service
type UserClient struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// NewUserClient creates a client for the auth service at baseURL.
// A nil httpClient uses http.DefaultClient.
func NewUserClient(baseURL string, httpClient *http.Client, m *metrics.Metrics, log zerolog.Logger) *UserClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &UserClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		metrics:    m,
		log:        log.With().Str("client", authService).Logger(),
	}
}

// UsersBasicData fetches display data for ids in one POST {base}/users/batch.
// Failures are logged and yield an empty result. No request is made for an empty id list.
func (c *UserClient) UsersBasicData(ctx context.Context, token string, ids []uuid.UUID) []models.UserBasic {
	if len(ids) == 0 {
		return []models.UserBasic{}
	}

	body := make([]string, len(ids))
	for i, id := range ids {
		body[i] = id.String()
	}
	payload, err := json.Marshal(body)
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to encode user ids")
		return []models.UserBasic{}
	}

	resp, err := c.do(ctx, http.MethodPost, "/users/batch", token, bytes.NewReader(payload))
	if err != nil {
		c.log.Warn().Err(err).Bool("unreachable", true).Int("user_count", len(ids)).Msg("Failed to fetch users data")
		return []models.UserBasic{}
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Int("user_count", len(ids)).Msg("Auth service rejected users batch request")
		return []models.UserBasic{}
	}

	var users []models.UserBasic
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		c.log.Error().Err(err).Msg("Failed to decode users batch response")
		return []models.UserBasic{}
	}
	if users == nil {
		users = []models.UserBasic{}
	}

	c.log.Debug().Int("requested", len(ids)).Int("received", len(users)).Msg("Users data fetched")
	return users
}

// UserIDFromToken resolves a bearer token through GET {base}/token, whose body is the user id
func (c *UserClient) UserIDFromToken(ctx context.Context, token string) (uuid.UUID, bool) {
	resp, err := c.do(ctx, http.MethodGet, "/token", token, nil)
	if err != nil {
		c.log.Warn().Err(err).Bool("unreachable", true).Msg("Failed to introspect token")
		return uuid.Nil, false
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Msg("Auth service rejected token")
		return uuid.Nil, false
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to read token introspection response")
		return uuid.Nil, false
	}

	// Accept both a bare id and a JSON string
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	userID, err := uuid.Parse(text)
	if err != nil {
		c.log.Warn().Err(err).Msg("Token introspection returned an invalid user id")
		return uuid.Nil, false
	}
	return userID, true
}

func (c *UserClient) do(ctx context.Context, method, path, token string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.metrics.RecordExternalCall(authService, path, status, time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("failed to call auth service: %w", err)
	}
	return resp, nil
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
)

// apiClient talks to a running podium server.
type apiClient struct {
	client  *http.Client
	baseURL string
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// apiError is a non-2xx answer from the server. Winner batches report
// failures under "error" next to their partial reports.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"error"`
}

func (e *apiError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Detail
	}
	return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, msg)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Ready checks the server's datastore readiness.
func (c *apiClient) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, nil)
}

// PostWinner submits one announcement.
func (c *apiClient) PostWinner(ctx context.Context, eventID string, w model.WinnerCandidate) (service.IngestReport, error) {
	var resp struct {
		Reports []service.IngestReport `json:"reports"`
	}
	path := "/events/" + url.PathEscape(eventID) + "/winners"
	if err := c.do(ctx, http.MethodPost, path, w, &resp); err != nil {
		return service.IngestReport{Candidate: w}, err
	}
	if len(resp.Reports) == 0 {
		return service.IngestReport{Candidate: w}, fmt.Errorf("empty report for %q", w.CategoryText)
	}
	return resp.Reports[0], nil
}

// Standings fetches a league's ranking.
func (c *apiClient) Standings(ctx context.Context, eventID, leagueID string, limit int) ([]types.Entry, error) {
	var resp struct {
		Entries []types.Entry `json:"entries"`
	}
	path := "/events/" + url.PathEscape(eventID) + "/leagues/" + url.PathEscape(leagueID) + "/standings"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

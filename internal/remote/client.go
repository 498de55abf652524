package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
)

// Client implements Adapter against a hosted content endpoint. Fetches that
// fail for any reason return an empty draft; only writes surface errors.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type fetchResponse struct {
	Data  []Change `json:"data"`
	Error string   `json:"error,omitempty"`
}

type upsertResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

func (c *Client) Changes(ctx context.Context, projectID model.ProjectID) []Change {
	u := fmt.Sprintf("%s/api/content/%s", c.endpoint, url.PathEscape(string(projectID)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		remoteLogger.Error().Err(err).Str("project_id", string(projectID)).Msg("Error building fetch request")
		return nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		remoteLogger.Warn().Err(err).Str("project_id", string(projectID)).Msg("Draft fetch failed, falling back to empty draft")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		remoteLogger.Warn().Int("status", resp.StatusCode).Str("project_id", string(projectID)).Msg("Draft fetch returned non-OK status")
		return nil
	}

	var body fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		remoteLogger.Warn().Err(err).Str("project_id", string(projectID)).Msg("Malformed draft fetch response")
		return nil
	}
	if body.Error != "" {
		remoteLogger.Warn().Str("error", body.Error).Str("project_id", string(projectID)).Msg("Draft fetch rejected by endpoint")
		return nil
	}
	return body.Data
}

func (c *Client) GetChanges(ctx context.Context, projectID model.ProjectID) *model.ProjectDraft {
	draft := model.NewProjectDraft()
	for _, change := range c.Changes(ctx, projectID) {
		draft.Apply(change.Entry())
	}
	return draft
}

func (c *Client) SaveChange(ctx context.Context, projectID model.ProjectID, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("error encoding draft change: %w", err)
	}

	u := fmt.Sprintf("%s/api/content/%s", c.endpoint, url.PathEscape(string(projectID)))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error building upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error upserting draft change: %w", err)
	}
	defer resp.Body.Close()

	var body upsertResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("error decoding upsert response: %w", err)
	}
	if body.Error != "" {
		return fmt.Errorf("upsert rejected: %s", body.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upsert returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) Clear(ctx context.Context, projectID model.ProjectID) error {
	u := fmt.Sprintf("%s/api/content/%s", c.endpoint, url.PathEscape(string(projectID)))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("error building clear request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error clearing draft: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("clear returned status %d", resp.StatusCode)
	}
	return nil
}

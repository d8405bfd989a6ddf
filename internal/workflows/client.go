package workflows

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to the workflow service over HTTP. It implements both
// Catalog and Launcher.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for the workflow service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Exists reports whether the workflow definition is known to the workflow
// service.
func (c *Client) Exists(ctx context.Context, workflowID string) (bool, error) {
	url := fmt.Sprintf("%s/api/workflows/%s", c.baseURL, workflowID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("creating workflow lookup request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("looking up workflow %s: %w", workflowID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("workflow service returned status %d", resp.StatusCode)
	}
}

// CreateInstance starts a workflow instance attached to the given entity.
func (c *Client) CreateInstance(ctx context.Context, workflowID, entityID, entityType string) (*Instance, error) {
	payload, err := json.Marshal(map[string]string{
		"entity_id":   entityID,
		"entity_type": entityType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling instance request: %w", err)
	}

	url := fmt.Sprintf("%s/api/workflows/%s/instances", c.baseURL, workflowID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating instance request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("starting workflow %s: %w", workflowID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("workflow service returned status %d", resp.StatusCode)
	}

	var inst Instance
	if err := json.NewDecoder(resp.Body).Decode(&inst); err != nil {
		return nil, fmt.Errorf("decoding instance response: %w", err)
	}
	if inst.WorkflowID == "" {
		inst.WorkflowID = workflowID
	}
	return &inst, nil
}

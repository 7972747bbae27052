// Package engine is a thin HTTP client for the external workflow-automation
// engine. The console proxies listing and execution calls through it; all
// access control happens before a request reaches this package.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/cascadehq/flowdeck/pkg/errors"
)

// Workflow is the subset of engine workflow fields the console cares about.
type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Execution describes a triggered workflow run.
type Execution struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflowId"`
	Status     string `json:"status"`
}

// API is the engine surface the services consume; Client implements it and
// tests stub it.
type API interface {
	ListWorkflows(ctx context.Context) ([]Workflow, error)
	GetWorkflow(ctx context.Context, id string) (*Workflow, error)
	Run(ctx context.Context, id string, payload map[string]any) (*Execution, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// Config holds engine connection options.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the engine's REST API using API-key authentication.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
}

// NewClient constructs an engine client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("engine client: base URL is required")
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("engine client: parse base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: parsed,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// ListWorkflows returns every workflow known to the engine.
func (c *Client) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	var result struct {
		Data []Workflow `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/workflows", nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GetWorkflow fetches one workflow, returning NotFound for unknown ids.
func (c *Client) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	var workflow Workflow
	if err := c.do(ctx, http.MethodGet, "/api/v1/workflows/"+url.PathEscape(id), nil, &workflow); err != nil {
		return nil, err
	}
	return &workflow, nil
}

// Run triggers a manual execution of the workflow.
func (c *Client) Run(ctx context.Context, id string, payload map[string]any) (*Execution, error) {
	var execution Execution
	path := "/api/v1/workflows/" + url.PathEscape(id) + "/run"
	if err := c.do(ctx, http.MethodPost, path, payload, &execution); err != nil {
		return nil, err
	}
	return &execution, nil
}

// SetActive toggles the workflow's activation state.
func (c *Client) SetActive(ctx context.Context, id string, active bool) error {
	verb := "deactivate"
	if active {
		verb = "activate"
	}
	path := "/api/v1/workflows/" + url.PathEscape(id) + "/" + verb
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("engine client: encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("engine client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("engine client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound.WithMessage("workflow not found in engine")
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.Wrap(
			fmt.Errorf("engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
			"workflow engine request failed",
		)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("engine client: decode response: %w", err)
	}
	return nil
}

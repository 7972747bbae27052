package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/cascadehq/flowdeck/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
	require.NoError(t, err)
	return client
}

func TestListWorkflowsSendsAPIKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/workflows", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("X-API-KEY"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "wf-1", "name": "Sync invoices", "active": true},
				{"id": "wf-2", "name": "Weekly digest", "active": false},
			},
		})
	})

	workflows, err := client.ListWorkflows(context.Background())
	require.NoError(t, err)
	require.Len(t, workflows, 2)
	require.Equal(t, "wf-1", workflows[0].ID)
	require.True(t, workflows[0].Active)
}

func TestGetWorkflowNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetWorkflow(context.Background(), "missing")
	require.Error(t, err)

	appErr := apperrors.FromError(err)
	require.Equal(t, apperrors.ErrNotFound.Code, appErr.Code)
}

func TestRunPostsPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/workflows/wf-1/run", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "manual", payload["trigger"])

		_ = json.NewEncoder(w).Encode(Execution{ID: "exec-9", WorkflowID: "wf-1", Status: "running"})
	})

	execution, err := client.Run(context.Background(), "wf-1", map[string]any{"trigger": "manual"})
	require.NoError(t, err)
	require.Equal(t, "exec-9", execution.ID)
	require.Equal(t, "running", execution.Status)
}

func TestServerErrorSurfacesBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine on fire", http.StatusBadGateway)
	})

	err := client.SetActive(context.Background(), "wf-1", true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "engine returned 502")
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

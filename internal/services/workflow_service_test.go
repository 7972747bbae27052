package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cascadehq/flowdeck/internal/engine"
	apperrors "github.com/cascadehq/flowdeck/pkg/errors"
)

// stubEngine serves a fixed workflow inventory and records run calls.
type stubEngine struct {
	workflows []engine.Workflow
	ran       []string
}

func (s *stubEngine) ListWorkflows(ctx context.Context) ([]engine.Workflow, error) {
	return s.workflows, nil
}

func (s *stubEngine) GetWorkflow(ctx context.Context, id string) (*engine.Workflow, error) {
	for _, wf := range s.workflows {
		if wf.ID == id {
			return &wf, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *stubEngine) Run(ctx context.Context, id string, payload map[string]any) (*engine.Execution, error) {
	s.ran = append(s.ran, id)
	return &engine.Execution{ID: "exec-1", WorkflowID: id, Status: "running"}, nil
}

func (s *stubEngine) SetActive(ctx context.Context, id string, active bool) error {
	return nil
}

func newWorkflowFixture(t *testing.T) (*fixture, *WorkflowService, *stubEngine) {
	t.Helper()

	f := newFixture(t)
	eng := &stubEngine{workflows: []engine.Workflow{
		{ID: "wf-1", Name: "Sync invoices"},
		{ID: "wf-2", Name: "Weekly digest"},
		{ID: "wf-3", Name: "Orphan job"},
	}}

	svc, err := NewWorkflowService(eng, f.stores, f.scope, nil)
	require.NoError(t, err)
	return f, svc, eng
}

func TestWorkflowListFiltersByAccess(t *testing.T) {
	f, svc, _ := newWorkflowFixture(t)
	ctx := context.Background()

	a := f.mustCreateFolder(t, "A", nil)
	other := f.mustCreateFolder(t, "Other", nil)
	require.NoError(t, f.stores.Bindings().Assign(ctx, "wf-1", a.ID, "admin-1"))
	require.NoError(t, f.stores.Bindings().Assign(ctx, "wf-2", other.ID, "admin-1"))

	f.mustGrant(t, a.ID, "user-1", "viewer")

	views, err := svc.List(ctx, Actor{ID: "user-1"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "wf-1", views[0].ID)
	require.Equal(t, a.ID, *views[0].FolderID)

	// Admins see everything, including the unassigned workflow.
	views, err = svc.List(ctx, Actor{ID: "admin-1", IsAdmin: true})
	require.NoError(t, err)
	require.Len(t, views, 3)
}

func TestWorkflowRunGatedByExecute(t *testing.T) {
	f, svc, eng := newWorkflowFixture(t)
	ctx := context.Background()

	a := f.mustCreateFolder(t, "A", nil)
	require.NoError(t, f.stores.Bindings().Assign(ctx, "wf-1", a.ID, "admin-1"))

	f.mustGrant(t, a.ID, "viewer-user", "viewer")
	f.mustGrant(t, a.ID, "runner-user", "executor")

	_, err := svc.Run(ctx, Actor{ID: "viewer-user"}, "wf-1", nil)
	requireAppError(t, err, apperrors.ErrForbidden)

	execution, err := svc.Run(ctx, Actor{ID: "runner-user"}, "wf-1", nil)
	require.NoError(t, err)
	require.Equal(t, "running", execution.Status)
	require.Equal(t, []string{"wf-1"}, eng.ran)
}

func TestRunUnassignedWorkflowAdminOnly(t *testing.T) {
	_, svc, _ := newWorkflowFixture(t)
	ctx := context.Background()

	_, err := svc.Run(ctx, Actor{ID: "user-1"}, "wf-3", nil)
	requireAppError(t, err, apperrors.ErrForbidden)

	_, err = svc.Run(ctx, Actor{ID: "admin-1", IsAdmin: true}, "wf-3", nil)
	require.NoError(t, err)
}

func TestAssignFolderPermissions(t *testing.T) {
	f, svc, _ := newWorkflowFixture(t)
	ctx := context.Background()

	src := f.mustCreateFolder(t, "Source", nil)
	dst := f.mustCreateFolder(t, "Destination", nil)
	require.NoError(t, f.stores.Bindings().Assign(ctx, "wf-1", src.ID, "admin-1"))

	// Editor on destination only: refused, the workflow lives elsewhere.
	f.mustGrant(t, dst.ID, "user-1", "editor")
	err := svc.AssignFolder(ctx, Actor{ID: "user-1"}, "wf-1", dst.ID)
	requireAppError(t, err, apperrors.ErrForbidden)

	// Editor on both folders: allowed.
	f.mustGrant(t, src.ID, "user-1", "editor")
	require.NoError(t, svc.AssignFolder(ctx, Actor{ID: "user-1"}, "wf-1", dst.ID))

	binding, err := f.stores.Bindings().FindByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Equal(t, dst.ID, binding.FolderID)

	// Claiming an unassigned workflow is admin-only.
	err = svc.AssignFolder(ctx, Actor{ID: "user-1"}, "wf-3", dst.ID)
	requireAppError(t, err, apperrors.ErrForbidden)
	require.NoError(t, svc.AssignFolder(ctx, Actor{ID: "admin-1", IsAdmin: true}, "wf-3", dst.ID))
}

func TestAssignFolderBulk(t *testing.T) {
	f, svc, _ := newWorkflowFixture(t)
	ctx := context.Background()

	src := f.mustCreateFolder(t, "Source", nil)
	dst := f.mustCreateFolder(t, "Destination", nil)
	require.NoError(t, f.stores.Bindings().Assign(ctx, "wf-1", src.ID, "admin-1"))
	require.NoError(t, f.stores.Bindings().Assign(ctx, "wf-2", src.ID, "admin-1"))

	err := svc.AssignFolderBulk(ctx, Actor{ID: "admin-1", IsAdmin: true}, nil, dst.ID)
	requireAppError(t, err, apperrors.ErrBadRequest)

	// Editor on the destination only: refused because wf-1 lives elsewhere.
	f.mustGrant(t, dst.ID, "user-1", "editor")
	err = svc.AssignFolderBulk(ctx, Actor{ID: "user-1"}, []string{"wf-1", "wf-2"}, dst.ID)
	requireAppError(t, err, apperrors.ErrForbidden)

	f.mustGrant(t, src.ID, "user-1", "editor")
	require.NoError(t, svc.AssignFolderBulk(ctx, Actor{ID: "user-1"}, []string{"wf-1", "wf-2", "wf-1"}, dst.ID))

	for _, workflowID := range []string{"wf-1", "wf-2"} {
		binding, err := f.stores.Bindings().FindByWorkflow(ctx, workflowID)
		require.NoError(t, err)
		require.Equal(t, dst.ID, binding.FolderID)
	}
}

func TestAssignFolderMissingFolder(t *testing.T) {
	_, svc, _ := newWorkflowFixture(t)

	err := svc.AssignFolder(context.Background(), Actor{ID: "admin-1", IsAdmin: true}, "wf-1", "missing")
	requireAppError(t, err, apperrors.ErrNotFound)
}

func TestUnassignFolder(t *testing.T) {
	f, svc, _ := newWorkflowFixture(t)
	ctx := context.Background()

	a := f.mustCreateFolder(t, "A", nil)
	require.NoError(t, f.stores.Bindings().Assign(ctx, "wf-1", a.ID, "admin-1"))

	err := svc.UnassignFolder(ctx, Actor{ID: "user-1"}, "wf-1")
	requireAppError(t, err, apperrors.ErrForbidden)

	f.mustGrant(t, a.ID, "user-1", "editor")
	require.NoError(t, svc.UnassignFolder(ctx, Actor{ID: "user-1"}, "wf-1"))

	err = svc.UnassignFolder(ctx, Actor{ID: "user-1"}, "wf-1")
	requireAppError(t, err, apperrors.ErrNotFound)
}

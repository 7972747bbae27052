package services

import (
	"context"
	"errors"

	"github.com/cascadehq/flowdeck/internal/engine"
	"github.com/cascadehq/flowdeck/internal/permissions"
	"github.com/cascadehq/flowdeck/internal/stores"
	apperrors "github.com/cascadehq/flowdeck/pkg/errors"
)

// WorkflowView pairs an engine workflow with its folder binding.
type WorkflowView struct {
	engine.Workflow
	FolderID *string `json:"folder_id"`
}

// WorkflowService combines the engine's workflow inventory with the console's
// folder bindings and access scoping.
type WorkflowService struct {
	engine engine.API
	stores stores.Stores
	scope  *AccessScopeService
	audit  *AuditService
}

// NewWorkflowService constructs the workflow service.
func NewWorkflowService(api engine.API, st stores.Stores, scope *AccessScopeService, audit *AuditService) (*WorkflowService, error) {
	if api == nil {
		return nil, errors.New("workflow service: engine client is required")
	}
	if st == nil {
		return nil, errors.New("workflow service: stores are required")
	}
	if scope == nil {
		return nil, errors.New("workflow service: access scope service is required")
	}
	return &WorkflowService{engine: api, stores: st, scope: scope, audit: audit}, nil
}

// List returns the workflows the actor may see, annotated with their folder.
// Admins see everything including unassigned workflows.
func (s *WorkflowService) List(ctx context.Context, actor Actor) ([]WorkflowView, error) {
	ctx = ensureContext(ctx)

	workflows, err := s.engine.ListWorkflows(ctx)
	if err != nil {
		return nil, err
	}

	access, err := s.scope.AccessibleWorkflows(ctx, actor.ID, actor.IsAdmin)
	if err != nil {
		return nil, err
	}

	visible := make(map[string]struct{}, len(access.IDs))
	for _, id := range access.IDs {
		visible[id] = struct{}{}
	}

	views := make([]WorkflowView, 0, len(workflows))
	for _, workflow := range workflows {
		if !access.All {
			if _, ok := visible[workflow.ID]; !ok {
				continue
			}
		}

		binding, err := s.stores.Bindings().FindByWorkflow(ctx, workflow.ID)
		if err != nil {
			return nil, err
		}

		view := WorkflowView{Workflow: workflow}
		if binding != nil {
			folderID := binding.FolderID
			view.FolderID = &folderID
		}
		views = append(views, view)
	}

	return views, nil
}

// AssignFolder binds the workflow to a folder. The actor needs editor level on
// the destination folder, and on the current folder when the workflow is
// already assigned elsewhere.
func (s *WorkflowService) AssignFolder(ctx context.Context, actor Actor, workflowID, folderID string) error {
	ctx = ensureContext(ctx)

	exists, err := s.stores.Folders().Exists(ctx, folderID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.ErrNotFound.WithMessage("folder not found")
	}

	if !actor.IsAdmin {
		allowed, err := s.scope.resolver.Check(ctx, actor.ID, folderID, permissions.ActionEdit)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.ErrForbidden
		}

		current, err := s.stores.Bindings().FindByWorkflow(ctx, workflowID)
		if err != nil {
			return err
		}
		if current == nil {
			// Unassigned workflows can only be claimed by admins.
			return apperrors.ErrForbidden
		}
		allowed, err = s.scope.resolver.Check(ctx, actor.ID, current.FolderID, permissions.ActionEdit)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.ErrForbidden
		}
	}

	if err := s.stores.Bindings().Assign(ctx, workflowID, folderID, actor.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     "workflow.assign",
		Resource:   "workflow",
		ResourceID: workflowID,
		Details:    map[string]any{"folder_id": folderID},
	})
	return nil
}

// AssignFolderBulk moves several workflows into one folder. The same rules as
// AssignFolder apply per workflow, and the bindings change atomically.
func (s *WorkflowService) AssignFolderBulk(ctx context.Context, actor Actor, workflowIDs []string, folderID string) error {
	ctx = ensureContext(ctx)

	ids := normaliseIDs(workflowIDs)
	if len(ids) == 0 {
		return apperrors.NewBadRequest("at least one workflow id is required")
	}

	exists, err := s.stores.Folders().Exists(ctx, folderID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.ErrNotFound.WithMessage("folder not found")
	}

	if !actor.IsAdmin {
		allowed, err := s.scope.resolver.Check(ctx, actor.ID, folderID, permissions.ActionEdit)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.ErrForbidden
		}

		for _, workflowID := range ids {
			current, err := s.stores.Bindings().FindByWorkflow(ctx, workflowID)
			if err != nil {
				return err
			}
			if current == nil {
				return apperrors.ErrForbidden
			}
			allowed, err := s.scope.resolver.Check(ctx, actor.ID, current.FolderID, permissions.ActionEdit)
			if err != nil {
				return err
			}
			if !allowed {
				return apperrors.ErrForbidden
			}
		}
	}

	err = s.stores.Transaction(ctx, func(tx stores.Stores) error {
		return tx.Bindings().AssignMany(ctx, ids, folderID, actor.ID)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     "workflow.assign_bulk",
		Resource:   "folder",
		ResourceID: folderID,
		Details:    map[string]any{"workflow_ids": ids},
	})
	return nil
}

// UnassignFolder detaches the workflow from its folder, leaving it reachable
// by admins only.
func (s *WorkflowService) UnassignFolder(ctx context.Context, actor Actor, workflowID string) error {
	ctx = ensureContext(ctx)

	binding, err := s.stores.Bindings().FindByWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}
	if binding == nil {
		return apperrors.ErrNotFound.WithMessage("workflow is not assigned to a folder")
	}

	if !actor.IsAdmin {
		allowed, err := s.scope.resolver.Check(ctx, actor.ID, binding.FolderID, permissions.ActionEdit)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.ErrForbidden
		}
	}

	if err := s.stores.Bindings().Unassign(ctx, workflowID); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     "workflow.unassign",
		Resource:   "workflow",
		ResourceID: workflowID,
		Details:    map[string]any{"folder_id": binding.FolderID},
	})
	return nil
}

// Run triggers a workflow execution after checking execute access through the
// workflow's bound folder.
func (s *WorkflowService) Run(ctx context.Context, actor Actor, workflowID string, payload map[string]any) (*engine.Execution, error) {
	ctx = ensureContext(ctx)

	allowed, err := s.scope.CheckWorkflowAccess(ctx, actor.ID, workflowID, permissions.ActionExecute, actor.IsAdmin)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.ErrForbidden
	}

	execution, err := s.engine.Run(ctx, workflowID, payload)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     "workflow.run",
		Resource:   "workflow",
		ResourceID: workflowID,
		Details:    map[string]any{"execution_id": execution.ID},
	})
	return execution, nil
}

// SetActive toggles a workflow in the engine, gated by edit access.
func (s *WorkflowService) SetActive(ctx context.Context, actor Actor, workflowID string, active bool) error {
	ctx = ensureContext(ctx)

	allowed, err := s.scope.CheckWorkflowAccess(ctx, actor.ID, workflowID, permissions.ActionEdit, actor.IsAdmin)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrForbidden
	}

	if err := s.engine.SetActive(ctx, workflowID, active); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     "workflow.set_active",
		Resource:   "workflow",
		ResourceID: workflowID,
		Details:    map[string]any{"active": active},
	})
	return nil
}

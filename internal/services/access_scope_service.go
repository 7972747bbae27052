package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/cascadehq/flowdeck/internal/permissions"
	"github.com/cascadehq/flowdeck/internal/stores"
	apperrors "github.com/cascadehq/flowdeck/pkg/errors"
)

// WorkflowAccess is the result of an accessible-workflow query. All=true means
// every workflow including unassigned ones; callers must branch on it rather
// than inspect IDs.
type WorkflowAccess struct {
	All bool     `json:"all"`
	IDs []string `json:"ids"`
}

// AccessScopeService computes which folders and workflows a user can reach.
type AccessScopeService struct {
	stores   stores.Stores
	tree     *FolderTreeService
	resolver *permissions.Resolver
}

// NewAccessScopeService constructs the access scope service.
func NewAccessScopeService(st stores.Stores, tree *FolderTreeService, resolver *permissions.Resolver) (*AccessScopeService, error) {
	if st == nil {
		return nil, errors.New("access scope service: stores are required")
	}
	if tree == nil {
		return nil, errors.New("access scope service: folder tree service is required")
	}
	if resolver == nil {
		return nil, errors.New("access scope service: resolver is required")
	}
	return &AccessScopeService{stores: st, tree: tree, resolver: resolver}, nil
}

// AccessibleFolderIDs returns the folders the user holds a direct grant on,
// plus every descendant of those folders. Permission flows downward only; a
// grant never opens the folder's ancestors.
func (s *AccessScopeService) AccessibleFolderIDs(ctx context.Context, userID string) ([]string, error) {
	ctx = ensureContext(ctx)

	grants, err := s.stores.Permissions().FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	accessible := make(map[string]struct{}, len(grants))
	for _, grant := range grants {
		if _, seen := accessible[grant.FolderID]; seen {
			continue
		}
		accessible[grant.FolderID] = struct{}{}

		descendants, err := s.tree.DescendantIDs(ctx, grant.FolderID)
		if err != nil {
			return nil, err
		}
		for _, id := range descendants {
			accessible[id] = struct{}{}
		}
	}

	return setKeys(accessible), nil
}

// AccessibleWorkflows returns the workflows the user may see. Admins get the
// tagged "all" result, which includes unassigned workflows.
func (s *AccessScopeService) AccessibleWorkflows(ctx context.Context, userID string, isAdmin bool) (WorkflowAccess, error) {
	ctx = ensureContext(ctx)

	if isAdmin {
		return WorkflowAccess{All: true}, nil
	}

	folderIDs, err := s.AccessibleFolderIDs(ctx, userID)
	if err != nil {
		return WorkflowAccess{}, err
	}

	bindings, err := s.stores.Bindings().FindByFolders(ctx, folderIDs)
	if err != nil {
		return WorkflowAccess{}, err
	}

	ids := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		ids = append(ids, binding.WorkflowID)
	}
	return WorkflowAccess{IDs: ids}, nil
}

// CheckWorkflowAccess authorizes an action on a workflow through its bound
// folder. Unassigned workflows are reachable by admins only.
func (s *AccessScopeService) CheckWorkflowAccess(ctx context.Context, userID, workflowID string, action permissions.Action, isAdmin bool) (bool, error) {
	ctx = ensureContext(ctx)

	if isAdmin {
		return true, nil
	}

	binding, err := s.stores.Bindings().FindByWorkflow(ctx, workflowID)
	if err != nil {
		return false, err
	}
	if binding == nil {
		return false, nil
	}

	return s.resolver.Check(ctx, userID, binding.FolderID, action)
}

// VisibleFolderTree builds the display tree for the actor. Admins see the full
// forest; everyone else sees their accessible set, with reachable folders whose
// parent is hidden surfacing as roots.
func (s *AccessScopeService) VisibleFolderTree(ctx context.Context, actor Actor) ([]FolderNode, error) {
	ctx = ensureContext(ctx)

	folders, err := s.stores.Folders().FindAll(ctx)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin {
		accessibleIDs, err := s.AccessibleFolderIDs(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		accessible := make(map[string]struct{}, len(accessibleIDs))
		for _, id := range accessibleIDs {
			accessible[id] = struct{}{}
		}

		visible := folders[:0]
		for _, folder := range folders {
			if _, ok := accessible[folder.ID]; ok {
				visible = append(visible, folder)
			}
		}
		folders = visible
	}

	counts, err := s.stores.Bindings().CountByFolder(ctx)
	if err != nil {
		return nil, err
	}

	return s.tree.BuildTree(folders, counts), nil
}

// UserPermissionsReport lists the user's standing on every folder that grants
// them anything, direct or inherited. Provenance is nearest-ancestor: the
// first granted ancestor is reported, even when a farther one holds a higher
// level (enforcement in the resolver stays max-wins regardless).
func (s *AccessScopeService) UserPermissionsReport(ctx context.Context, userID string) ([]permissions.EffectivePermission, error) {
	ctx = ensureContext(ctx)

	folders, err := s.stores.Folders().FindAll(ctx)
	if err != nil {
		return nil, err
	}

	grants, err := s.stores.Permissions().FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	levels := make(map[string]permissions.Level, len(grants))
	for _, grant := range grants {
		level, err := permissions.ParseLevel(grant.Level)
		if err != nil {
			return nil, fmt.Errorf("access scope service: corrupt grant on folder %s: %w", grant.FolderID, err)
		}
		levels[grant.FolderID] = level
	}

	parents := make(map[string]*string, len(folders))
	for _, folder := range folders {
		parents[folder.ID] = folder.ParentID
	}

	var report []permissions.EffectivePermission
	for _, folder := range folders {
		if level, ok := levels[folder.ID]; ok {
			report = append(report, permissions.EffectivePermission{
				FolderID: folder.ID,
				UserID:   userID,
				Level:    level,
			})
			continue
		}

		ancestorID, level, err := nearestGrantedAncestor(folder.ID, parents, levels)
		if err != nil {
			return nil, err
		}
		if ancestorID == "" {
			continue
		}

		from := ancestorID
		report = append(report, permissions.EffectivePermission{
			FolderID:      folder.ID,
			UserID:        userID,
			Level:         level,
			Inherited:     true,
			InheritedFrom: &from,
		})
	}

	return report, nil
}

// nearestGrantedAncestor walks parent links nearest-first and returns the
// first ancestor carrying a grant, or "" when none does.
func nearestGrantedAncestor(folderID string, parents map[string]*string, levels map[string]permissions.Level) (string, permissions.Level, error) {
	visited := map[string]struct{}{folderID: {}}

	current := parents[folderID]
	for depth := 0; current != nil; depth++ {
		if depth >= maxTreeDepth {
			return "", 0, apperrors.NewInvalidOperation("folder tree exceeds maximum depth")
		}
		if _, seen := visited[*current]; seen {
			return "", 0, apperrors.NewInvalidOperation("cycle detected in folder tree")
		}
		visited[*current] = struct{}{}

		if level, ok := levels[*current]; ok {
			return *current, level, nil
		}
		current = parents[*current]
	}

	return "", 0, nil
}

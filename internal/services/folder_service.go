package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/cascadehq/flowdeck/internal/models"
	"github.com/cascadehq/flowdeck/internal/stores"
	apperrors "github.com/cascadehq/flowdeck/pkg/errors"
	"github.com/cascadehq/flowdeck/pkg/metrics"
)

const (
	maxFolderNameLen        = 100
	maxFolderDescriptionLen = 500

	// maxTreeDepth bounds ancestor/descendant walks. The creation-time
	// invariants forbid cycles, but a corrupted store must not hang a request.
	maxTreeDepth = 128
)

// FolderTreeService owns folder CRUD and tree traversal. It is stateless;
// every call is a function of current store contents.
type FolderTreeService struct {
	stores stores.Stores
	audit  *AuditService
}

// NewFolderTreeService constructs the folder tree service. The audit service
// is optional.
func NewFolderTreeService(st stores.Stores, audit *AuditService) (*FolderTreeService, error) {
	if st == nil {
		return nil, errors.New("folder service: stores are required")
	}
	return &FolderTreeService{stores: st, audit: audit}, nil
}

// CreateFolderInput describes a folder creation payload.
type CreateFolderInput struct {
	Name        string
	Description string
	ParentID    *string
	CreatedBy   string
}

// UpdateFolderInput describes a folder patch. Nil fields are left unchanged;
// MoveToRoot clears the parent.
type UpdateFolderInput struct {
	Name        *string
	Description *string
	ParentID    *string
	MoveToRoot  bool
}

// Create registers a new folder under the given parent (nil = root).
func (s *FolderTreeService) Create(ctx context.Context, input CreateFolderInput) (*models.Folder, error) {
	ctx = ensureContext(ctx)

	name, err := validateFolderName(input.Name)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	if len(description) > maxFolderDescriptionLen {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("folder description exceeds %d characters", maxFolderDescriptionLen))
	}

	if input.ParentID != nil {
		exists, err := s.stores.Folders().Exists(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.ErrNotFound.WithMessage("parent folder not found")
		}
	}

	if err := s.ensureSiblingNameFree(ctx, input.ParentID, name, ""); err != nil {
		return nil, err
	}

	folder := models.Folder{
		Name:        name,
		Description: description,
		ParentID:    input.ParentID,
		CreatedBy:   input.CreatedBy,
	}
	if err := s.stores.Folders().Create(ctx, &folder); err != nil {
		return nil, err
	}

	metrics.FolderMutations.WithLabelValues("create").Inc()
	s.audit.Record(ctx, AuditEntry{
		ActorID:    input.CreatedBy,
		Action:     "folder.create",
		Resource:   "folder",
		ResourceID: folder.ID,
		Details:    map[string]any{"name": folder.Name, "parent_id": folder.ParentID},
	})
	return &folder, nil
}

// Update renames, re-describes, or moves a folder. Moves that would make a
// folder its own ancestor are rejected.
func (s *FolderTreeService) Update(ctx context.Context, actorID, id string, input UpdateFolderInput) (*models.Folder, error) {
	ctx = ensureContext(ctx)

	folder, err := s.stores.Folders().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, apperrors.ErrNotFound.WithMessage("folder not found")
	}

	newParent := folder.ParentID
	parentChanged := false
	switch {
	case input.MoveToRoot:
		newParent = nil
		parentChanged = folder.ParentID != nil
	case input.ParentID != nil:
		newParent = input.ParentID
		parentChanged = folder.ParentID == nil || *folder.ParentID != *input.ParentID
	}

	if parentChanged && newParent != nil {
		if *newParent == id {
			return nil, apperrors.NewInvalidOperation("a folder cannot be its own parent")
		}

		exists, err := s.stores.Folders().Exists(ctx, *newParent)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.ErrNotFound.WithMessage("parent folder not found")
		}

		descendants, err := s.DescendantIDs(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, descendantID := range descendants {
			if descendantID == *newParent {
				return nil, apperrors.NewInvalidOperation("cannot move a folder into its own subtree")
			}
		}
	}

	patch := map[string]any{}

	name := folder.Name
	if input.Name != nil {
		name, err = validateFolderName(*input.Name)
		if err != nil {
			return nil, err
		}
		if name != folder.Name {
			patch["name"] = name
		}
	}

	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if len(description) > maxFolderDescriptionLen {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("folder description exceeds %d characters", maxFolderDescriptionLen))
		}
		if description != folder.Description {
			patch["description"] = description
		}
	}

	if parentChanged {
		patch["parent_id"] = newParent
	}

	// Uniqueness is checked at the destination parent whenever the name or the
	// location changes.
	if _, renamed := patch["name"]; renamed || parentChanged {
		if err := s.ensureSiblingNameFree(ctx, newParent, name, id); err != nil {
			return nil, err
		}
	}

	if len(patch) == 0 {
		return folder, nil
	}

	if err := s.stores.Folders().Update(ctx, id, patch); err != nil {
		return nil, err
	}

	updated, err := s.stores.Folders().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.FolderMutations.WithLabelValues("update").Inc()
	s.audit.Record(ctx, AuditEntry{
		ActorID:    actorID,
		Action:     "folder.update",
		Resource:   "folder",
		ResourceID: id,
		Details:    map[string]any{"patch": patchKeys(patch)},
	})
	return updated, nil
}

// Delete removes a folder. Without cascade a folder with children is refused;
// with cascade the whole subtree goes, together with every grant and workflow
// binding on it, inside one transaction so a mid-cascade failure leaves
// nothing orphaned. Workflows themselves are merely unassigned, not deleted.
func (s *FolderTreeService) Delete(ctx context.Context, actorID, id string, cascade bool) error {
	ctx = ensureContext(ctx)

	folder, err := s.stores.Folders().Get(ctx, id)
	if err != nil {
		return err
	}
	if folder == nil {
		return apperrors.ErrNotFound.WithMessage("folder not found")
	}

	doomed := []string{id}
	if cascade {
		descendants, err := s.DescendantIDs(ctx, id)
		if err != nil {
			return err
		}
		doomed = append(doomed, descendants...)
	} else {
		children, err := s.stores.Folders().FindByParent(ctx, &id)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return apperrors.NewConflict("folder has child folders; delete them first or use cascade")
		}
	}

	err = s.stores.Transaction(ctx, func(tx stores.Stores) error {
		// Children before parents so foreign keys on parent_id stay satisfied.
		for i := len(doomed) - 1; i >= 0; i-- {
			folderID := doomed[i]
			if err := tx.Permissions().RevokeAllForFolder(ctx, folderID); err != nil {
				return err
			}
			if err := tx.Bindings().UnassignAllForFolder(ctx, folderID); err != nil {
				return err
			}
			if err := tx.Folders().Delete(ctx, folderID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.FolderMutations.WithLabelValues("delete").Inc()
	s.audit.Record(ctx, AuditEntry{
		ActorID:    actorID,
		Action:     "folder.delete",
		Resource:   "folder",
		ResourceID: id,
		Details:    map[string]any{"cascade": cascade, "folders_removed": len(doomed)},
	})
	return nil
}

// AncestorIDs returns the folder's ancestor chain, nearest parent first, root
// last. A runtime cycle (store corruption) surfaces as an invalid operation
// instead of an endless walk.
func (s *FolderTreeService) AncestorIDs(ctx context.Context, folderID string) ([]string, error) {
	ctx = ensureContext(ctx)

	folder, err := s.stores.Folders().Get(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, apperrors.ErrNotFound.WithMessage("folder not found")
	}

	visited := map[string]struct{}{folderID: {}}
	var ancestors []string

	current := folder.ParentID
	for depth := 0; current != nil; depth++ {
		if depth >= maxTreeDepth {
			return nil, apperrors.NewInvalidOperation("folder tree exceeds maximum depth")
		}
		if _, seen := visited[*current]; seen {
			return nil, apperrors.NewInvalidOperation("cycle detected in folder tree")
		}
		visited[*current] = struct{}{}
		ancestors = append(ancestors, *current)

		parent, err := s.stores.Folders().Get(ctx, *current)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			// Dangling parent reference; treat the chain as ending here.
			break
		}
		current = parent.ParentID
	}

	return ancestors, nil
}

// DescendantIDs returns every folder underneath folderID, excluding folderID
// itself. Breadth-first, order insignificant.
func (s *FolderTreeService) DescendantIDs(ctx context.Context, folderID string) ([]string, error) {
	ctx = ensureContext(ctx)

	visited := map[string]struct{}{folderID: {}}
	var descendants []string

	queue := []string{folderID}
	for depth := 0; len(queue) > 0; depth++ {
		if depth >= maxTreeDepth {
			return nil, apperrors.NewInvalidOperation("folder tree exceeds maximum depth")
		}

		var next []string
		for _, id := range queue {
			children, err := s.stores.Folders().FindByParent(ctx, &id)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				if _, seen := visited[child.ID]; seen {
					return nil, apperrors.NewInvalidOperation("cycle detected in folder tree")
				}
				visited[child.ID] = struct{}{}
				descendants = append(descendants, child.ID)
				next = append(next, child.ID)
			}
		}
		queue = next
	}

	return descendants, nil
}

// FolderNode is one entry of the display tree.
type FolderNode struct {
	Folder        models.Folder `json:"folder"`
	WorkflowCount int64         `json:"workflow_count"`
	Children      []FolderNode  `json:"children,omitempty"`
}

// BuildTree assembles display nodes from a folder set. Counts are per folder,
// not aggregated over subtrees. Folders whose parent is outside the given set
// surface as roots. Siblings are ordered by name using locale-aware collation.
func (s *FolderTreeService) BuildTree(folders []models.Folder, workflowCounts map[string]int64) []FolderNode {
	byID := make(map[string]models.Folder, len(folders))
	for _, folder := range folders {
		byID[folder.ID] = folder
	}

	childIDs := make(map[string][]string, len(folders))
	var rootIDs []string
	for _, folder := range folders {
		if folder.ParentID != nil {
			if _, visible := byID[*folder.ParentID]; visible {
				childIDs[*folder.ParentID] = append(childIDs[*folder.ParentID], folder.ID)
				continue
			}
		}
		rootIDs = append(rootIDs, folder.ID)
	}

	collator := collate.New(language.English, collate.IgnoreCase)
	var build func(ids []string) []FolderNode
	build = func(ids []string) []FolderNode {
		if len(ids) == 0 {
			return nil
		}
		collator.Sort(byNameSorter{ids: ids, byID: byID})

		nodes := make([]FolderNode, 0, len(ids))
		for _, id := range ids {
			nodes = append(nodes, FolderNode{
				Folder:        byID[id],
				WorkflowCount: workflowCounts[id],
				Children:      build(childIDs[id]),
			})
		}
		return nodes
	}

	return build(rootIDs)
}

// byNameSorter adapts a folder id slice to collate.Sort by folder name.
type byNameSorter struct {
	ids  []string
	byID map[string]models.Folder
}

func (s byNameSorter) Len() int           { return len(s.ids) }
func (s byNameSorter) Swap(i, j int)      { s.ids[i], s.ids[j] = s.ids[j], s.ids[i] }
func (s byNameSorter) Bytes(i int) []byte { return []byte(s.byID[s.ids[i]].Name) }

func (s *FolderTreeService) ensureSiblingNameFree(ctx context.Context, parentID *string, name, excludeID string) error {
	siblings, err := s.stores.Folders().FindByParent(ctx, parentID)
	if err != nil {
		return err
	}
	for _, sibling := range siblings {
		if sibling.ID == excludeID {
			continue
		}
		if strings.EqualFold(sibling.Name, name) {
			return apperrors.NewConflict(fmt.Sprintf("a folder named %q already exists here", name))
		}
	}
	return nil
}

func validateFolderName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperrors.NewBadRequest("folder name is required")
	}
	if len(name) > maxFolderNameLen {
		return "", apperrors.NewBadRequest(fmt.Sprintf("folder name exceeds %d characters", maxFolderNameLen))
	}
	return name, nil
}

func patchKeys(patch map[string]any) []string {
	keys := make([]string, 0, len(patch))
	for key := range patch {
		keys = append(keys, key)
	}
	return keys
}

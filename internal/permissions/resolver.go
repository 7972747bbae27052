package permissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/cascadehq/flowdeck/internal/stores"
	"github.com/cascadehq/flowdeck/pkg/metrics"
)

// AncestorWalker yields a folder's ancestor ids nearest-parent first, root
// last. The folder tree service implements it.
type AncestorWalker interface {
	AncestorIDs(ctx context.Context, folderID string) ([]string, error)
}

// EffectivePermission is the level a user actually holds on a folder after
// combining direct and inherited grants. It is derived, never persisted.
type EffectivePermission struct {
	FolderID      string  `json:"folder_id"`
	UserID        string  `json:"user_id"`
	Level         Level   `json:"level"`
	Inherited     bool    `json:"inherited"`
	InheritedFrom *string `json:"inherited_from,omitempty"`
}

// Resolver computes effective permissions from the grant store and the folder
// tree. It holds no state of its own; every call reads current store contents.
type Resolver struct {
	walker AncestorWalker
	perms  stores.PermissionStore
}

// NewResolver constructs a permission resolver.
func NewResolver(walker AncestorWalker, perms stores.PermissionStore) (*Resolver, error) {
	if walker == nil {
		return nil, errors.New("permission resolver: ancestor walker is required")
	}
	if perms == nil {
		return nil, errors.New("permission resolver: permission store is required")
	}
	return &Resolver{walker: walker, perms: perms}, nil
}

// Effective returns the user's effective permission on the folder, or nil when
// neither the folder nor any ancestor carries a grant.
//
// The tie-break is max-wins: when several ancestors carry grants, the highest
// level among them counts, and a stronger ancestor grant beats a weaker direct
// grant. This is a deliberate contract, not nearest-ancestor-wins.
func (r *Resolver) Effective(ctx context.Context, userID, folderID string) (*EffectivePermission, error) {
	direct, err := r.perms.Find(ctx, folderID, userID)
	if err != nil {
		return nil, err
	}

	ancestors, err := r.walker.AncestorIDs(ctx, folderID)
	if err != nil {
		return nil, err
	}

	grants, err := r.perms.FindForFolders(ctx, ancestors, userID)
	if err != nil {
		return nil, err
	}

	byFolder := make(map[string]Level, len(grants))
	for _, grant := range grants {
		level, err := ParseLevel(grant.Level)
		if err != nil {
			return nil, fmt.Errorf("permission resolver: corrupt grant on folder %s: %w", grant.FolderID, err)
		}
		byFolder[grant.FolderID] = level
	}

	inheritedLevel := Level(-1)
	var inheritedFrom string
	// Walk nearest-first so ties between ancestors resolve to the closest one.
	for _, ancestorID := range ancestors {
		level, ok := byFolder[ancestorID]
		if !ok {
			continue
		}
		if level > inheritedLevel {
			inheritedLevel = level
			inheritedFrom = ancestorID
		}
	}

	if direct == nil && inheritedLevel < 0 {
		return nil, nil
	}

	directLevel := Level(-1)
	if direct != nil {
		directLevel, err = ParseLevel(direct.Level)
		if err != nil {
			return nil, fmt.Errorf("permission resolver: corrupt grant on folder %s: %w", folderID, err)
		}
	}

	effective := &EffectivePermission{
		FolderID: folderID,
		UserID:   userID,
	}
	if inheritedLevel > directLevel {
		effective.Level = inheritedLevel
		effective.Inherited = true
		effective.InheritedFrom = &inheritedFrom
	} else {
		effective.Level = directLevel
	}
	return effective, nil
}

// Check reports whether the user may perform the action on the folder.
func (r *Resolver) Check(ctx context.Context, userID, folderID string, action Action) (bool, error) {
	min, err := MinLevelFor(action)
	if err != nil {
		return false, err
	}

	allowed, err := r.HasMinimum(ctx, userID, folderID, min)
	switch {
	case err != nil:
		metrics.PermissionChecks.WithLabelValues(string(action), "error").Inc()
	case allowed:
		metrics.PermissionChecks.WithLabelValues(string(action), "allow").Inc()
	default:
		metrics.PermissionChecks.WithLabelValues(string(action), "deny").Inc()
	}
	return allowed, err
}

// HasMinimum reports whether the user's effective permission reaches minLevel.
func (r *Resolver) HasMinimum(ctx context.Context, userID, folderID string, minLevel Level) (bool, error) {
	effective, err := r.Effective(ctx, userID, folderID)
	if err != nil {
		return false, err
	}
	if effective == nil {
		return false, nil
	}
	return effective.Level >= minLevel, nil
}

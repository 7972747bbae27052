package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cascadehq/flowdeck/internal/models"
	apperrors "github.com/cascadehq/flowdeck/pkg/errors"
)

func requireAppError(t *testing.T, err error, want *apperrors.AppError) {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	require.Equal(t, want.Code, appErr.Code, "unexpected error code: %v", err)
}

func TestCreateFolderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tree.Create(ctx, CreateFolderInput{Name: "   ", CreatedBy: "admin-1"})
	requireAppError(t, err, apperrors.ErrBadRequest)

	_, err = f.tree.Create(ctx, CreateFolderInput{Name: strings.Repeat("x", 101), CreatedBy: "admin-1"})
	requireAppError(t, err, apperrors.ErrBadRequest)

	_, err = f.tree.Create(ctx, CreateFolderInput{
		Name:        "Operations",
		Description: strings.Repeat("d", 501),
		CreatedBy:   "admin-1",
	})
	requireAppError(t, err, apperrors.ErrBadRequest)
}

func TestCreateFolderMissingParent(t *testing.T) {
	f := newFixture(t)

	missing := "no-such-folder"
	_, err := f.tree.Create(context.Background(), CreateFolderInput{
		Name:      "Orphan",
		ParentID:  &missing,
		CreatedBy: "admin-1",
	})
	requireAppError(t, err, apperrors.ErrNotFound)
}

func TestCreateFolderDuplicateSiblingName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.mustCreateFolder(t, "Operations", nil)

	_, err := f.tree.Create(ctx, CreateFolderInput{Name: "Operations", CreatedBy: "admin-1"})
	requireAppError(t, err, apperrors.ErrConflict)

	// Same name under a different parent is fine.
	_, err = f.tree.Create(ctx, CreateFolderInput{Name: "Operations", ParentID: &root.ID, CreatedBy: "admin-1"})
	require.NoError(t, err)

	// Case-insensitive collision among siblings.
	_, err = f.tree.Create(ctx, CreateFolderInput{Name: "operations", CreatedBy: "admin-1"})
	requireAppError(t, err, apperrors.ErrConflict)
}

func TestUpdateFolderRejectsSelfParent(t *testing.T) {
	f := newFixture(t)

	folder := f.mustCreateFolder(t, "A", nil)
	_, err := f.tree.Update(context.Background(), "admin-1", folder.ID, UpdateFolderInput{ParentID: &folder.ID})
	requireAppError(t, err, apperrors.ErrInvalidOperation)
}

func TestUpdateFolderRejectsCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.mustCreateFolder(t, "A", nil)
	b := f.mustCreateFolder(t, "B", &a.ID)
	c := f.mustCreateFolder(t, "C", &b.ID)

	// Moving A under its grandchild C would create a cycle.
	_, err := f.tree.Update(ctx, "admin-1", a.ID, UpdateFolderInput{ParentID: &c.ID})
	requireAppError(t, err, apperrors.ErrInvalidOperation)

	// Moving C to the root is legal.
	updated, err := f.tree.Update(ctx, "admin-1", c.ID, UpdateFolderInput{MoveToRoot: true})
	require.NoError(t, err)
	require.Nil(t, updated.ParentID)
}

func TestUpdateFolderMoveChecksDestinationNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.mustCreateFolder(t, "A", nil)
	f.mustCreateFolder(t, "Reports", &a.ID)
	clash := f.mustCreateFolder(t, "Reports", nil)

	_, err := f.tree.Update(ctx, "admin-1", clash.ID, UpdateFolderInput{ParentID: &a.ID})
	requireAppError(t, err, apperrors.ErrConflict)
}

func TestUpdateFolderNotFound(t *testing.T) {
	f := newFixture(t)

	name := "New name"
	_, err := f.tree.Update(context.Background(), "admin-1", "missing", UpdateFolderInput{Name: &name})
	requireAppError(t, err, apperrors.ErrNotFound)
}

func TestDeleteFolderWithChildrenNeedsCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.mustCreateFolder(t, "A", nil)
	f.mustCreateFolder(t, "B", &a.ID)

	err := f.tree.Delete(ctx, "admin-1", a.ID, false)
	requireAppError(t, err, apperrors.ErrConflict)
	require.True(t, f.folderExists(t, a.ID))
}

func TestCascadeDeleteIsExhaustive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.mustCreateFolder(t, "A", nil)
	b := f.mustCreateFolder(t, "B", &a.ID)
	c := f.mustCreateFolder(t, "C", &b.ID)

	for i, folder := range []string{a.ID, b.ID, c.ID} {
		f.mustGrant(t, folder, "user-1", "viewer")
		require.NoError(t, f.stores.Bindings().Assign(ctx, "wf-"+string(rune('a'+i)), folder, "admin-1"))
	}

	require.NoError(t, f.tree.Delete(ctx, "admin-1", a.ID, true))

	for _, folder := range []string{a.ID, b.ID, c.ID} {
		require.False(t, f.folderExists(t, folder))

		bindings, err := f.stores.Bindings().FindByFolder(ctx, folder)
		require.NoError(t, err)
		require.Empty(t, bindings)
	}

	grants, err := f.stores.Permissions().FindByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, grants)
}

func TestDeleteFolderNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.tree.Delete(context.Background(), "admin-1", "missing", true)
	requireAppError(t, err, apperrors.ErrNotFound)
}

func TestAncestorIDsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.mustCreateFolder(t, "A", nil)
	b := f.mustCreateFolder(t, "B", &a.ID)
	c := f.mustCreateFolder(t, "C", &b.ID)

	ancestors, err := f.tree.AncestorIDs(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, []string{b.ID, a.ID}, ancestors)

	ancestors, err = f.tree.AncestorIDs(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, ancestors)
}

func TestAncestorIDsDetectsCorruptCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.mustCreateFolder(t, "A", nil)
	b := f.mustCreateFolder(t, "B", &a.ID)

	// Corrupt the store directly: point A back at B.
	require.NoError(t, f.stores.Folders().Update(ctx, a.ID, map[string]any{"parent_id": b.ID}))

	_, err := f.tree.AncestorIDs(ctx, b.ID)
	requireAppError(t, err, apperrors.ErrInvalidOperation)
}

func TestDescendantIDsIsExhaustive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.mustCreateFolder(t, "A", nil)
	b := f.mustCreateFolder(t, "B", &a.ID)
	c := f.mustCreateFolder(t, "C", &a.ID)
	d := f.mustCreateFolder(t, "D", &b.ID)

	descendants, err := f.tree.DescendantIDs(ctx, a.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{b.ID, c.ID, d.ID}, descendants)
	require.NotContains(t, descendants, a.ID)
}

func TestBuildTreeShapeAndOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ops := f.mustCreateFolder(t, "Operations", nil)
	f.mustCreateFolder(t, "zeta", &ops.ID)
	f.mustCreateFolder(t, "Alpha", &ops.ID)
	f.mustCreateFolder(t, "beta", &ops.ID)
	f.mustCreateFolder(t, "Archive", nil)

	folders, err := f.stores.Folders().FindAll(ctx)
	require.NoError(t, err)

	tree := f.tree.BuildTree(folders, map[string]int64{ops.ID: 3})
	require.Len(t, tree, 2)
	require.Equal(t, "Archive", tree[0].Folder.Name)
	require.Equal(t, "Operations", tree[1].Folder.Name)
	require.Equal(t, int64(3), tree[1].WorkflowCount)

	children := tree[1].Children
	require.Len(t, children, 3)
	require.Equal(t, "Alpha", children[0].Folder.Name)
	require.Equal(t, "beta", children[1].Folder.Name)
	require.Equal(t, "zeta", children[2].Folder.Name)
}

func TestBuildTreeOrphanedParentBecomesRoot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.mustCreateFolder(t, "A", nil)
	b := f.mustCreateFolder(t, "B", &a.ID)

	// Only pass B: its parent is outside the visible set.
	folder, err := f.stores.Folders().Get(ctx, b.ID)
	require.NoError(t, err)

	tree := f.tree.BuildTree([]models.Folder{*folder}, nil)
	require.Len(t, tree, 1)
	require.Equal(t, b.ID, tree[0].Folder.ID)
}

package stores

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cascadehq/flowdeck/internal/database/testutil"
	"github.com/cascadehq/flowdeck/internal/models"
)

func newTestStores(t *testing.T) Stores {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	s, err := New(db)
	require.NoError(t, err)
	return s
}

func TestFolderStoreRoundTrip(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	root := models.Folder{Name: "Operations", CreatedBy: "user-1"}
	require.NoError(t, s.Folders().Create(ctx, &root))
	require.NotEmpty(t, root.ID)

	child := models.Folder{Name: "Billing", ParentID: &root.ID, CreatedBy: "user-1"}
	require.NoError(t, s.Folders().Create(ctx, &child))

	got, err := s.Folders().Get(ctx, root.ID)
	require.NoError(t, err)
	require.Equal(t, "Operations", got.Name)

	missing, err := s.Folders().Get(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	roots, err := s.Folders().FindByParent(ctx, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)

	children, err := s.Folders().FindByParent(ctx, &root.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, "Billing", children[0].Name)

	exists, err := s.Folders().Exists(ctx, child.ID)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, s.Folders().Update(ctx, child.ID, map[string]any{"name": "Invoicing"}))
	updated, err := s.Folders().Get(ctx, child.ID)
	require.NoError(t, err)
	require.Equal(t, "Invoicing", updated.Name)

	require.NoError(t, s.Folders().Delete(ctx, child.ID))
	exists, err = s.Folders().Exists(ctx, child.ID)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestPermissionStoreUpsertKeepsOneRow(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	folder := models.Folder{Name: "Operations", CreatedBy: "admin"}
	require.NoError(t, s.Folders().Create(ctx, &folder))

	require.NoError(t, s.Permissions().Upsert(ctx, folder.ID, "user-1", "viewer", "admin"))
	require.NoError(t, s.Permissions().Upsert(ctx, folder.ID, "user-1", "admin", "admin"))

	grants, err := s.Permissions().FindByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, "admin", grants[0].Level)
}

func TestPermissionStoreUpdateAndRevokeMissing(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	err := s.Permissions().Update(ctx, "folder-x", "user-x", "editor")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	err = s.Permissions().Revoke(ctx, "folder-x", "user-x")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestPermissionStoreFindForFolders(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	a := models.Folder{Name: "A", CreatedBy: "admin"}
	b := models.Folder{Name: "B", CreatedBy: "admin"}
	require.NoError(t, s.Folders().Create(ctx, &a))
	require.NoError(t, s.Folders().Create(ctx, &b))

	require.NoError(t, s.Permissions().Upsert(ctx, a.ID, "user-1", "editor", "admin"))
	require.NoError(t, s.Permissions().Upsert(ctx, b.ID, "user-1", "viewer", "admin"))
	require.NoError(t, s.Permissions().Upsert(ctx, b.ID, "user-2", "admin", "admin"))

	grants, err := s.Permissions().FindForFolders(ctx, []string{a.ID, b.ID}, "user-1")
	require.NoError(t, err)
	require.Len(t, grants, 2)

	none, err := s.Permissions().FindForFolders(ctx, nil, "user-1")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestWorkflowBindingStoreAssignMovesBinding(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	a := models.Folder{Name: "A", CreatedBy: "admin"}
	b := models.Folder{Name: "B", CreatedBy: "admin"}
	require.NoError(t, s.Folders().Create(ctx, &a))
	require.NoError(t, s.Folders().Create(ctx, &b))

	require.NoError(t, s.Bindings().Assign(ctx, "wf-1", a.ID, "admin"))
	require.NoError(t, s.Bindings().Assign(ctx, "wf-1", b.ID, "admin"))

	binding, err := s.Bindings().FindByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.NotNil(t, binding)
	require.Equal(t, b.ID, binding.FolderID)

	inA, err := s.Bindings().FindByFolder(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, inA)

	counts, err := s.Bindings().CountByFolder(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[b.ID])

	require.NoError(t, s.Bindings().Unassign(ctx, "wf-1"))
	binding, err = s.Bindings().FindByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Nil(t, binding)
}

func TestTransactionRollsBack(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	folder := models.Folder{Name: "Operations", CreatedBy: "admin"}
	require.NoError(t, s.Folders().Create(ctx, &folder))

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx Stores) error {
		if err := tx.Permissions().Upsert(ctx, folder.ID, "user-1", "viewer", "admin"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	grants, err := s.Permissions().FindByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, grants)
}

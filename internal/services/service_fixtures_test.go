package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cascadehq/flowdeck/internal/database/testutil"
	"github.com/cascadehq/flowdeck/internal/models"
	"github.com/cascadehq/flowdeck/internal/permissions"
	"github.com/cascadehq/flowdeck/internal/stores"
)

type fixture struct {
	db       *gorm.DB
	stores   stores.Stores
	tree     *FolderTreeService
	resolver *permissions.Resolver
	scope    *AccessScopeService
	perms    *PermissionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	st, err := stores.New(db)
	require.NoError(t, err)

	tree, err := NewFolderTreeService(st, nil)
	require.NoError(t, err)

	resolver, err := permissions.NewResolver(tree, st.Permissions())
	require.NoError(t, err)

	scope, err := NewAccessScopeService(st, tree, resolver)
	require.NoError(t, err)

	perms, err := NewPermissionService(st, resolver, nil)
	require.NoError(t, err)

	return &fixture{db: db, stores: st, tree: tree, resolver: resolver, scope: scope, perms: perms}
}

func (f *fixture) mustCreateUser(t *testing.T, user *models.User) {
	t.Helper()
	require.NoError(t, f.db.Create(user).Error)
}

func (f *fixture) mustCreateFolder(t *testing.T, name string, parentID *string) *models.Folder {
	t.Helper()

	folder, err := f.tree.Create(context.Background(), CreateFolderInput{
		Name:      name,
		ParentID:  parentID,
		CreatedBy: "admin-1",
	})
	require.NoError(t, err)
	return folder
}

func (f *fixture) mustGrant(t *testing.T, folderID, userID, level string) {
	t.Helper()
	require.NoError(t, f.stores.Permissions().Upsert(context.Background(), folderID, userID, level, "admin-1"))
}

func (f *fixture) folderExists(t *testing.T, id string) bool {
	t.Helper()
	exists, err := f.stores.Folders().Exists(context.Background(), id)
	require.NoError(t, err)
	return exists
}

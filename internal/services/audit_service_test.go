package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cascadehq/flowdeck/internal/database/testutil"
	"github.com/cascadehq/flowdeck/internal/models"
)

func TestAuditRecordAndPrune(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := context.Background()
	svc.Record(ctx, AuditEntry{
		ActorID:    "admin-1",
		Action:     "folder.create",
		Resource:   "folder",
		ResourceID: "folder-1",
		Details:    map[string]any{"name": "Operations"},
	})

	var rows []models.AuditLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "folder.create", rows[0].Action)
	require.Contains(t, string(rows[0].Details), "Operations")

	// Nothing is old enough to prune yet.
	pruned, err := svc.Prune(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, pruned)

	pruned, err = svc.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), pruned)
}

func TestAuditListFiltersAndPaginates(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := context.Background()
	svc.Record(ctx, AuditEntry{ActorID: "admin-1", Action: "folder.create", Resource: "folder"})
	svc.Record(ctx, AuditEntry{ActorID: "admin-1", Action: "folder.delete", Resource: "folder"})
	svc.Record(ctx, AuditEntry{ActorID: "user-1", Action: "workflow.run", Resource: "workflow"})

	entries, total, err := svc.List(ctx, AuditListOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, entries, 3)

	entries, total, err = svc.List(ctx, AuditListOptions{ActorID: "admin-1"})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, entries, 2)

	entries, total, err = svc.List(ctx, AuditListOptions{Resource: "workflow"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "workflow.run", entries[0].Action)

	entries, total, err = svc.List(ctx, AuditListOptions{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, entries, 1)
}

func TestAuditNilReceiverIsSafe(t *testing.T) {
	var svc *AuditService
	svc.Record(context.Background(), AuditEntry{Action: "noop"})
}

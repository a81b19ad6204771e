//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludplena/claims-engine/internal/domain/notification"
	"github.com/saludplena/claims-engine/pkg/errors"
)

func TestNotificationRepo_CreateDeduplicated(t *testing.T) {
	db := setupDB(t)
	repo := NewNotificationRepository(db, testLogger(t))
	ctx := context.Background()

	first, err := notification.ForInternment("provider-1", "int-1",
		notification.KindInternmentNearingDeadline, "coverage window closes soon")
	require.NoError(t, err)

	inserted, err := repo.CreateDeduplicated(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same target and kind while the first is unread: suppressed.
	dup, err := notification.ForInternment("provider-1", "int-1",
		notification.KindInternmentNearingDeadline, "coverage window closes soon")
	require.NoError(t, err)

	inserted, err = repo.CreateDeduplicated(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	// Different kind for the same target: allowed.
	other, err := notification.ForInternment("provider-1", "int-1",
		notification.KindInternmentInactivated, "internment was deactivated")
	require.NoError(t, err)

	inserted, err = repo.CreateDeduplicated(ctx, other)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestNotificationRepo_DedupReleasedAfterRead(t *testing.T) {
	db := setupDB(t)
	repo := NewNotificationRepository(db, testLogger(t))
	ctx := context.Background()

	first, err := notification.ForInternment("provider-1", "int-1",
		notification.KindInternmentNearingDeadline, "coverage window closes soon")
	require.NoError(t, err)

	inserted, err := repo.CreateDeduplicated(ctx, first)
	require.NoError(t, err)
	require.True(t, inserted)

	require.NoError(t, repo.MarkRead(ctx, first.ID))

	// Reading the first notification frees the dedup slot.
	second, err := notification.ForInternment("provider-1", "int-1",
		notification.KindInternmentNearingDeadline, "coverage window closes soon")
	require.NoError(t, err)

	inserted, err = repo.CreateDeduplicated(ctx, second)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestNotificationRepo_MarkRead(t *testing.T) {
	db := setupDB(t)
	repo := NewNotificationRepository(db, testLogger(t))
	ctx := context.Background()

	n, err := notification.New("provider-1", notification.KindExtensionResolved, "extension approved")
	require.NoError(t, err)
	_, err = repo.CreateDeduplicated(ctx, n)
	require.NoError(t, err)

	require.NoError(t, repo.MarkRead(ctx, n.ID))
	// Idempotent for an already-read notification.
	require.NoError(t, repo.MarkRead(ctx, n.ID))

	loaded, err := repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsRead)
	require.NotNil(t, loaded.ReadAt)

	err = repo.MarkRead(ctx, "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotificationNotFound))
}

func TestNotificationRepo_ListUnreadByProvider(t *testing.T) {
	db := setupDB(t)
	repo := NewNotificationRepository(db, testLogger(t))
	ctx := context.Background()

	kinds := []notification.Kind{
		notification.KindInternmentNearingDeadline,
		notification.KindInternmentInactivated,
		notification.KindInternmentAutoFinalized,
	}
	var firstID string
	for i, kind := range kinds {
		n, err := notification.ForInternment("provider-list", "int-1", kind, "message")
		require.NoError(t, err)
		_, err = repo.CreateDeduplicated(ctx, n)
		require.NoError(t, err)
		if i == 0 {
			firstID = n.ID
		}
	}

	other, err := notification.New("provider-other", notification.KindExtensionResolved, "not yours")
	require.NoError(t, err)
	_, err = repo.CreateDeduplicated(ctx, other)
	require.NoError(t, err)

	list, err := repo.ListUnreadByProvider(ctx, "provider-list", 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	require.NoError(t, repo.MarkRead(ctx, firstID))
	list, err = repo.ListUnreadByProvider(ctx, "provider-list", 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/feestatement/internal/db"
)

func openTestDB(t *testing.T) *sql.DB {
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestVersionStoreCreate(t *testing.T) {
	store := NewVersionStore(openTestDB(t))
	ctx := context.Background()

	v, err := store.Create(ctx, "p1", "Initial bid", json.RawMessage(`{"profitMargin":20}`))
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.NotZero(t, v.ID)
	assert.Equal(t, "p1", v.ProjectID)
	assert.Equal(t, "Initial bid", v.DisplayName)
	assert.JSONEq(t, `{"profitMargin":20}`, string(v.Data))
	assert.False(t, v.CreatedAt.IsZero())
	assert.False(t, v.UpdatedAt.IsZero())
}

func TestVersionStoreGetByIDNotFound(t *testing.T) {
	store := NewVersionStore(openTestDB(t))

	v, err := store.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestVersionStoreUpdate(t *testing.T) {
	store := NewVersionStore(openTestDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, "p1", "Draft", json.RawMessage(`{"profitMargin":20}`))
	require.NoError(t, err)

	updated, err := store.Update(ctx, created.ID, "Final", json.RawMessage(`{"profitMargin":25}`))
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Final", updated.DisplayName)
	assert.JSONEq(t, `{"profitMargin":25}`, string(updated.Data))
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestVersionStoreUpdateNotFound(t *testing.T) {
	store := NewVersionStore(openTestDB(t))

	_, err := store.Update(context.Background(), 42, "x", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestVersionStoreListByProject(t *testing.T) {
	store := NewVersionStore(openTestDB(t))
	ctx := context.Background()

	first, err := store.Create(ctx, "p1", "v1", json.RawMessage(`{}`))
	require.NoError(t, err)
	second, err := store.Create(ctx, "p1", "v2", json.RawMessage(`{}`))
	require.NoError(t, err)
	_, err = store.Create(ctx, "p2", "other", json.RawMessage(`{}`))
	require.NoError(t, err)

	versions, err := store.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, second.ID, versions[0].ID)
	assert.Equal(t, first.ID, versions[1].ID)

	none, err := store.ListByProject(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestVersionStoreDelete(t *testing.T) {
	store := NewVersionStore(openTestDB(t))
	ctx := context.Background()

	v, err := store.Create(ctx, "p1", "v1", json.RawMessage(`{}`))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, v.ID))

	got, err := store.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, store.Delete(ctx, v.ID), ErrVersionNotFound)
}

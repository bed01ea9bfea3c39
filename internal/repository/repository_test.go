package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/feestatement/internal/catalog"
	"github.com/vbonduro/feestatement/internal/db"
	"github.com/vbonduro/feestatement/internal/domain"
	"github.com/vbonduro/feestatement/internal/snapshotstore"
	"github.com/vbonduro/feestatement/internal/snapshotstore/local"
	"github.com/vbonduro/feestatement/internal/store"
)

func newTestRepository(t *testing.T) (*Repository, string) {
	t.Helper()
	dir := t.TempDir()
	snapshots, err := local.NewLocalSnapshotStore(dir)
	require.NoError(t, err)

	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	repo := New(snapshots, store.NewVersionStore(d))
	repo.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	return repo, dir
}

func sampleData() domain.StatementData {
	items := catalog.ForProjectType(domain.ProjectTypeGarage)
	items[0].Quantity = 2400
	items[0].Total = 1800
	return domain.StatementData{
		Items: items,
		ProjectDetails: domain.ProjectDetails{
			ProjectType: domain.ProjectTypeGarage,
			Width:       40,
			Length:      60,
			Sqft:        2400,
			Doors:       2,
		},
		ProfitMargin: 22.5,
	}
}

func TestSaveAndLoadLocalSnapshot(t *testing.T) {
	repo, dir := newTestRepository(t)
	ctx := context.Background()

	saved, err := repo.SaveLocalSnapshot(ctx, domain.Snapshot{ProjectID: "p1", StatementData: sampleData()})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC), saved.LastSaved)

	raw, err := os.ReadFile(filepath.Join(dir, "statement-p1.json"))
	require.NoError(t, err)
	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &keys))
	for _, k := range []string{"projectId", "items", "projectDetails", "profitMargin", "lastSaved"} {
		assert.Contains(t, keys, k)
	}

	loaded, err := repo.LoadLocalSnapshot(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, saved, *loaded)
}

func TestLoadLocalSnapshotMissing(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.LoadLocalSnapshot(context.Background(), "p1")
	assert.ErrorIs(t, err, snapshotstore.ErrNotFound)
}

func TestLoadLocalSnapshotCorrupt(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{{{"},
		{"truncated", `{"projectId":"p1","items":[`},
		{"missing items", `{"projectId":"p1","projectDetails":{},"profitMargin":20}`},
		{"wrong shape", `{"projectId":"p1","items":"lots","projectDetails":{},"profitMargin":20}`},
		{"other project", `{"projectId":"p2","items":[],"projectDetails":{},"profitMargin":20}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, dir := newTestRepository(t)
			require.NoError(t, os.WriteFile(filepath.Join(dir, "statement-p1.json"), []byte(tt.body), 0644))

			_, err := repo.LoadLocalSnapshot(context.Background(), "p1")
			assert.ErrorIs(t, err, ErrCorruptSnapshot)
		})
	}
}

func TestRemoteVersionRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	data := sampleData()

	v, err := repo.SaveRemoteVersion(ctx, "p1", data, "Bid A")
	require.NoError(t, err)
	assert.Equal(t, "Bid A", v.DisplayName)

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(v.Data, &keys))
	assert.Len(t, keys, 3)

	got, loaded, err := repo.LoadRemoteVersion(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	assert.Equal(t, data, loaded)
}

func TestUpdateRemoteVersion(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	v, err := repo.SaveRemoteVersion(ctx, "p1", sampleData(), "Bid A")
	require.NoError(t, err)

	changed := sampleData()
	changed.ProfitMargin = 30
	updated, err := repo.UpdateRemoteVersion(ctx, v.ID, changed, "Bid A (rev)")
	require.NoError(t, err)
	assert.Equal(t, v.ID, updated.ID)

	_, loaded, err := repo.LoadRemoteVersion(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, loaded.ProfitMargin)

	_, err = repo.UpdateRemoteVersion(ctx, 999, changed, "x")
	assert.ErrorIs(t, err, store.ErrVersionNotFound)
}

func TestListRemoteVersions(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.SaveRemoteVersion(ctx, "p1", sampleData(), "one")
	require.NoError(t, err)
	_, err = repo.SaveRemoteVersion(ctx, "p1", sampleData(), "two")
	require.NoError(t, err)

	versions, err := repo.ListRemoteVersions(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestLoadRemoteVersionNotFound(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, _, err := repo.LoadRemoteVersion(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrVersionNotFound)
}

// fakeVersions serves fixed payloads so malformed data can reach the decoder.
type fakeVersions struct {
	versionRepository
	byID map[int64]*domain.StatementVersion
}

func (f *fakeVersions) GetByID(_ context.Context, id int64) (*domain.StatementVersion, error) {
	return f.byID[id], nil
}

func TestLoadRemoteVersionMalformed(t *testing.T) {
	payloads := map[int64]string{
		1: `not json`,
		2: `{"items":[]}`,
		3: `{"items":{},"projectDetails":{},"profitMargin":1}`,
		4: `[]`,
	}
	fake := &fakeVersions{byID: make(map[int64]*domain.StatementVersion)}
	for id, p := range payloads {
		fake.byID[id] = &domain.StatementVersion{ID: id, ProjectID: "p1", Data: json.RawMessage(p)}
	}
	snapshots, err := local.NewLocalSnapshotStore(t.TempDir())
	require.NoError(t, err)
	repo := New(snapshots, fake)

	for id := range payloads {
		v, _, err := repo.LoadRemoteVersion(context.Background(), id)
		assert.ErrorIs(t, err, ErrMalformedVersion, "version %d", id)
		require.NotNil(t, v)
		assert.Equal(t, id, v.ID)
	}
}

func TestSaveLocalSnapshotRejectsBadProjectID(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.SaveLocalSnapshot(context.Background(), domain.Snapshot{ProjectID: "../escape", StatementData: sampleData()})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid snapshot key"))
}

func TestDeleteLocalSnapshot(t *testing.T) {
	repo, dir := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.SaveLocalSnapshot(ctx, domain.Snapshot{ProjectID: "p1", StatementData: sampleData()})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteLocalSnapshot(ctx, "p1"))
	_, err = os.Stat(filepath.Join(dir, "statement-p1.json"))
	assert.True(t, os.IsNotExist(err))

	_, err = repo.LoadLocalSnapshot(ctx, "p1")
	assert.ErrorIs(t, err, snapshotstore.ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, repo.DeleteLocalSnapshot(ctx, "p1"))
}

func TestDeleteRemoteVersion(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	v, err := repo.SaveRemoteVersion(ctx, "p1", sampleData(), "Bid A")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteRemoteVersion(ctx, v.ID))
	_, _, err = repo.LoadRemoteVersion(ctx, v.ID)
	assert.ErrorIs(t, err, store.ErrVersionNotFound)
	assert.ErrorIs(t, repo.DeleteRemoteVersion(ctx, v.ID), store.ErrVersionNotFound)
}

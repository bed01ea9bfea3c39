package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/feestatement/internal/catalog"
	"github.com/vbonduro/feestatement/internal/db"
	"github.com/vbonduro/feestatement/internal/domain"
	"github.com/vbonduro/feestatement/internal/repository"
	"github.com/vbonduro/feestatement/internal/snapshotstore/local"
	"github.com/vbonduro/feestatement/internal/statement"
	"github.com/vbonduro/feestatement/internal/store"
)

var testOptions = Options{
	DefaultProjectType:  domain.ProjectTypeBarndominium,
	DefaultProfitMargin: 20,
	SessionTTL:          time.Hour,
}

// newTestService wires the service to real stores: a temp dir cache and an
// in-memory sqlite version store.
func newTestService(t *testing.T) (*StatementService, string, *store.VersionStore) {
	t.Helper()
	dir := t.TempDir()
	snapshots, err := local.NewLocalSnapshotStore(dir)
	require.NoError(t, err)

	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	versions := store.NewVersionStore(d)
	svc := NewStatementService(repository.New(snapshots, versions), testOptions, slog.Default())
	return svc, dir, versions
}

func updateTarget(e *statement.Editor) (int64, bool) {
	pending := e.PendingVersionSave()
	return pending.VersionID, pending.Update
}

// failingRemote wraps a working repository but fails every remote call.
type failingRemote struct {
	repository.StatementRepository
	err error
}

func (f *failingRemote) SaveRemoteVersion(context.Context, string, domain.StatementData, string) (*domain.StatementVersion, error) {
	return nil, f.err
}

func (f *failingRemote) UpdateRemoteVersion(context.Context, int64, domain.StatementData, string) (*domain.StatementVersion, error) {
	return nil, f.err
}

func (f *failingRemote) ListRemoteVersions(context.Context, string) ([]*domain.StatementVersion, error) {
	return nil, f.err
}

func (f *failingRemote) LoadRemoteVersion(context.Context, int64) (*domain.StatementVersion, domain.StatementData, error) {
	return nil, domain.StatementData{}, f.err
}

func TestOpenWithoutCacheUsesDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	e := svc.Open(ctx, "p1", domain.ProjectTypeGarage)

	assert.Equal(t, catalog.ForProjectType(domain.ProjectTypeGarage), e.Items())
	assert.Equal(t, 20.0, e.ProfitMargin())

	other := svc.Open(ctx, "p2", "")
	assert.Equal(t, domain.ProjectTypeBarndominium, other.ProjectDetails().ProjectType)
}

func TestOpenReturnsSameSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first := svc.Open(ctx, "p1", domain.ProjectTypeGarage)
	second := svc.Open(ctx, "p1", domain.ProjectTypeCommercial)

	assert.Same(t, first, second)
	assert.Equal(t, domain.ProjectTypeGarage, second.ProjectDetails().ProjectType)
}

func TestSaveStatementThenReopenFromCache(t *testing.T) {
	svc, dir, _ := newTestService(t)
	ctx := context.Background()

	e := svc.Open(ctx, "p1", domain.ProjectTypeGarage)
	_, err := e.UpdateProjectDetails("width", 40)
	require.NoError(t, err)
	_, err = e.UpdateProjectDetails("length", 60)
	require.NoError(t, err)
	_, err = e.AutoCalculateQuantities()
	require.NoError(t, err)
	_, err = e.SetProfitMargin(15)
	require.NoError(t, err)

	snap, err := svc.SaveStatement(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, snap.LastSaved.IsZero())
	assert.FileExists(t, filepath.Join(dir, "statement-p1.json"))

	want := e.Data()
	svc.Close("p1")

	reopened := svc.Open(ctx, "p1", domain.ProjectTypeCommercial)
	assert.NotSame(t, e, reopened)
	assert.Equal(t, want, reopened.Data())
}

func TestOpenCorruptCacheFallsBackToDefaults(t *testing.T) {
	svc, dir, _ := newTestService(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "statement-p1.json"), []byte("{not json"), 0644))

	e := svc.Open(context.Background(), "p1", domain.ProjectTypeCommercial)

	assert.Equal(t, catalog.ForProjectType(domain.ProjectTypeCommercial), e.Items())
	_, err := os.Stat(filepath.Join(dir, "statement-p1.json"))
	assert.True(t, os.IsNotExist(err), "corrupt cache entry should be discarded")
}

func TestSaveVersionCreatesThenUpdates(t *testing.T) {
	svc, _, versions := newTestService(t)
	ctx := context.Background()

	first, err := svc.SaveVersion(ctx, "p1", "Bid A")
	require.NoError(t, err)

	e := svc.Open(ctx, "p1", "")
	_, err = e.SetProfitMargin(30)
	require.NoError(t, err)

	second, err := svc.SaveVersion(ctx, "p1", "Bid A (rev)")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, err := versions.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Bid A (rev)", list[0].DisplayName)

	var data domain.StatementData
	require.NoError(t, json.Unmarshal(list[0].Data, &data))
	assert.Equal(t, 30.0, data.ProfitMargin)
}

func TestSaveVersionAfterStartNewVersionCreates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.SaveVersion(ctx, "p1", "Bid A")
	require.NoError(t, err)

	svc.StartNewVersion(ctx, "p1")
	second, err := svc.SaveVersion(ctx, "p1", "Bid B")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	list, err := svc.ListVersions(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	id, isNew := svc.Open(ctx, "p1", "").EditingVersion()
	assert.Equal(t, second.ID, id)
	assert.False(t, isNew)
}

func TestSaveVersionDefaultName(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 8, 15, 0, 0, time.UTC) }

	v, err := svc.SaveVersion(context.Background(), "p1", "")
	require.NoError(t, err)
	assert.Equal(t, "Statement 2026-05-01 08:15", v.DisplayName)
}

func TestLoadVersionReplacesStateAndEntersEditing(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	e := svc.Open(ctx, "p1", domain.ProjectTypeGarage)
	_, err := e.UpdateProjectDetails("width", 20)
	require.NoError(t, err)
	v, err := svc.SaveVersion(ctx, "p1", "Garage bid")
	require.NoError(t, err)
	saved := e.Data()

	require.NoError(t, e.ChangeProjectType(domain.ProjectTypeCommercial))
	svc.StartNewVersion(ctx, "p1")

	loaded, err := svc.LoadVersion(ctx, "p1", v.ID)
	require.NoError(t, err)
	assert.Same(t, e, loaded)
	assert.Equal(t, saved, loaded.Data())

	id, update := updateTarget(loaded)
	assert.Equal(t, v.ID, id)
	assert.True(t, update)
}

func TestLoadVersionNotFound(t *testing.T) {
	svc, _, versions := newTestService(t)
	ctx := context.Background()

	_, err := svc.LoadVersion(ctx, "p1", 12345)
	assert.ErrorIs(t, err, store.ErrVersionNotFound)

	other, err := versions.Create(ctx, "p2", "theirs", json.RawMessage(`{"items":[],"projectDetails":{},"profitMargin":0}`))
	require.NoError(t, err)
	_, err = svc.LoadVersion(ctx, "p1", other.ID)
	assert.ErrorIs(t, err, store.ErrVersionNotFound)
}

func TestLoadMalformedVersionResetsToDefaults(t *testing.T) {
	svc, _, versions := newTestService(t)
	ctx := context.Background()

	e := svc.Open(ctx, "p1", domain.ProjectTypeGarage)
	_, err := e.UpdateItem(e.Items()[0].ID, "quantity", 9)
	require.NoError(t, err)

	bad, err := versions.Create(ctx, "p1", "broken", json.RawMessage(`{"items":"nope"}`))
	require.NoError(t, err)

	loaded, err := svc.LoadVersion(ctx, "p1", bad.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.ForProjectType(domain.ProjectTypeGarage), loaded.Items())
}

func TestRemoteFailureLeavesStateUntouched(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.repo = &failingRemote{StatementRepository: svc.repo, err: errors.New("connection refused")}
	ctx := context.Background()

	e := svc.Open(ctx, "p1", domain.ProjectTypeGarage)
	e.MarkVersionSaved(5)
	before := e.View()

	_, err := svc.SaveVersion(ctx, "p1", "x")
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	_, err = svc.LoadVersion(ctx, "p1", 5)
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	_, err = svc.ListVersions(ctx, "p1")
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	assert.Equal(t, before, e.View())
}

func TestSessionsExpire(t *testing.T) {
	dir := t.TempDir()
	snapshots, err := local.NewLocalSnapshotStore(dir)
	require.NoError(t, err)
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	opts := testOptions
	opts.SessionTTL = 20 * time.Millisecond
	svc := NewStatementService(repository.New(snapshots, store.NewVersionStore(d)), opts, slog.Default())
	ctx := context.Background()

	first := svc.Open(ctx, "p1", "")
	time.Sleep(50 * time.Millisecond)
	second := svc.Open(ctx, "p1", "")

	assert.NotSame(t, first, second)
}

func newServiceWithOptions(t *testing.T, opts Options, logger *slog.Logger) *StatementService {
	t.Helper()
	snapshots, err := local.NewLocalSnapshotStore(t.TempDir())
	require.NoError(t, err)
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return NewStatementService(repository.New(snapshots, store.NewVersionStore(d)), opts, logger)
}

func TestUnknownProjectTypeUsesConfiguredDefault(t *testing.T) {
	opts := testOptions
	opts.DefaultProjectType = domain.ProjectTypeGarage
	svc := newServiceWithOptions(t, opts, slog.Default())
	ctx := context.Background()

	assert.Equal(t, domain.ProjectTypeGarage, svc.ResolveProjectType("warehouse"))
	assert.Equal(t, domain.ProjectTypeGarage, svc.ResolveProjectType(""))
	assert.Equal(t, domain.ProjectTypeCommercial, svc.ResolveProjectType(" Commercial "))

	pt, _ := domain.ParseProjectType("warehouse")
	e := svc.Open(ctx, "p1", pt)
	assert.Equal(t, domain.ProjectTypeGarage, e.ProjectDetails().ProjectType)
	assert.Equal(t, catalog.ForProjectType(domain.ProjectTypeGarage), e.Items())

	require.NoError(t, e.ChangeProjectType(domain.ProjectTypeCommercial))
	require.NoError(t, e.ChangeProjectType("warehouse"))
	assert.Equal(t, domain.ProjectTypeGarage, e.ProjectDetails().ProjectType)

	require.NoError(t, e.ChangeProjectType(domain.ProjectTypeCommercial))
	_, err := e.UpdateProjectDetails("projectType", "warehouse")
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectTypeGarage, e.ProjectDetails().ProjectType)
}

func TestDeleteVersion(t *testing.T) {
	svc, _, versions := newTestService(t)
	ctx := context.Background()

	v, err := svc.SaveVersion(ctx, "p1", "Bid A")
	require.NoError(t, err)
	e := svc.Open(ctx, "p1", "")
	id, update := updateTarget(e)
	require.Equal(t, v.ID, id)
	require.True(t, update)

	require.NoError(t, svc.DeleteVersion(ctx, "p1", v.ID))

	got, err := versions.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	_, update = updateTarget(e)
	assert.False(t, update, "next save should create a new version")

	assert.ErrorIs(t, svc.DeleteVersion(ctx, "p1", v.ID), store.ErrVersionNotFound)

	other, err := versions.Create(ctx, "p2", "theirs", json.RawMessage(`{"items":[],"projectDetails":{},"profitMargin":0}`))
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteVersion(ctx, "p1", other.ID), store.ErrVersionNotFound)
	still, err := versions.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestCloseLogsSessionEnd(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	svc := newServiceWithOptions(t, testOptions, logger)
	ctx := context.Background()

	first := svc.Open(ctx, "p1", "")
	first.MarkVersionSaved(3)
	svc.Close("p1")

	assert.Contains(t, buf.String(), `"msg":"statement session closed"`)
	assert.Contains(t, buf.String(), `"editing_version_id":3`)
	assert.NotSame(t, first, svc.Open(ctx, "p1", ""))
}

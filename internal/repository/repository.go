// Package repository composes the local snapshot cache and the remote version
// store behind one StatementRepository.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vbonduro/feestatement/internal/domain"
	"github.com/vbonduro/feestatement/internal/snapshotstore"
	"github.com/vbonduro/feestatement/internal/store"
)

var (
	ErrCorruptSnapshot  = errors.New("corrupt statement snapshot")
	ErrMalformedVersion = errors.New("malformed statement version")
)

type StatementRepository interface {
	SaveLocalSnapshot(ctx context.Context, snap domain.Snapshot) (domain.Snapshot, error)
	LoadLocalSnapshot(ctx context.Context, projectID string) (*domain.Snapshot, error)
	DeleteLocalSnapshot(ctx context.Context, projectID string) error
	SaveRemoteVersion(ctx context.Context, projectID string, data domain.StatementData, displayName string) (*domain.StatementVersion, error)
	UpdateRemoteVersion(ctx context.Context, versionID int64, data domain.StatementData, displayName string) (*domain.StatementVersion, error)
	ListRemoteVersions(ctx context.Context, projectID string) ([]*domain.StatementVersion, error)
	LoadRemoteVersion(ctx context.Context, versionID int64) (*domain.StatementVersion, domain.StatementData, error)
	DeleteRemoteVersion(ctx context.Context, versionID int64) error
}

// versionRepository is the subset of store.VersionStore the repository requires.
type versionRepository interface {
	Create(ctx context.Context, projectID, displayName string, data json.RawMessage) (*domain.StatementVersion, error)
	Update(ctx context.Context, id int64, displayName string, data json.RawMessage) (*domain.StatementVersion, error)
	GetByID(ctx context.Context, id int64) (*domain.StatementVersion, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.StatementVersion, error)
	Delete(ctx context.Context, id int64) error
}

type Repository struct {
	snapshots snapshotstore.SnapshotStore
	versions  versionRepository
	now       func() time.Time
}

var _ StatementRepository = (*Repository)(nil)

func New(snapshots snapshotstore.SnapshotStore, versions versionRepository) *Repository {
	return &Repository{snapshots: snapshots, versions: versions, now: time.Now}
}

// SaveLocalSnapshot stamps LastSaved and writes the snapshot under
// statement-{projectId}.
func (r *Repository) SaveLocalSnapshot(ctx context.Context, snap domain.Snapshot) (domain.Snapshot, error) {
	snap.LastSaved = r.now().UTC()
	body, err := json.Marshal(snap)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := r.snapshots.Put(ctx, snapshotstore.StatementKey(snap.ProjectID), bytes.NewReader(body)); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return snap, nil
}

type wireSnapshot struct {
	ProjectID string `json:"projectId"`
	wireStatement
	LastSaved time.Time `json:"lastSaved"`
}

// wireStatement uses pointers so missing keys can be told apart from zero values.
type wireStatement struct {
	Items          *[]domain.FeeItem      `json:"items"`
	ProjectDetails *domain.ProjectDetails `json:"projectDetails"`
	ProfitMargin   *float64               `json:"profitMargin"`
}

func (w wireStatement) data() (domain.StatementData, bool) {
	if w.Items == nil || w.ProjectDetails == nil || w.ProfitMargin == nil {
		return domain.StatementData{}, false
	}
	return domain.StatementData{
		Items:          *w.Items,
		ProjectDetails: *w.ProjectDetails,
		ProfitMargin:   *w.ProfitMargin,
	}, true
}

// LoadLocalSnapshot returns snapshotstore.ErrNotFound when nothing is cached
// and ErrCorruptSnapshot when the cached entry cannot be used.
func (r *Repository) LoadLocalSnapshot(ctx context.Context, projectID string) (*domain.Snapshot, error) {
	rc, err := r.snapshots.Get(ctx, snapshotstore.StatementKey(projectID))
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var w wireSnapshot
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	data, ok := w.data()
	if !ok {
		return nil, fmt.Errorf("%w: missing statement fields", ErrCorruptSnapshot)
	}
	if w.ProjectID != projectID {
		return nil, fmt.Errorf("%w: snapshot belongs to project %q", ErrCorruptSnapshot, w.ProjectID)
	}

	return &domain.Snapshot{ProjectID: w.ProjectID, StatementData: data, LastSaved: w.LastSaved}, nil
}

// DeleteLocalSnapshot removes the cached statement. A missing entry is not an error.
func (r *Repository) DeleteLocalSnapshot(ctx context.Context, projectID string) error {
	err := r.snapshots.Delete(ctx, snapshotstore.StatementKey(projectID))
	if err != nil && !errors.Is(err, snapshotstore.ErrNotFound) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (r *Repository) SaveRemoteVersion(ctx context.Context, projectID string, data domain.StatementData, displayName string) (*domain.StatementVersion, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode statement: %w", err)
	}
	return r.versions.Create(ctx, projectID, displayName, body)
}

func (r *Repository) UpdateRemoteVersion(ctx context.Context, versionID int64, data domain.StatementData, displayName string) (*domain.StatementVersion, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode statement: %w", err)
	}
	return r.versions.Update(ctx, versionID, displayName, body)
}

func (r *Repository) ListRemoteVersions(ctx context.Context, projectID string) ([]*domain.StatementVersion, error) {
	return r.versions.ListByProject(ctx, projectID)
}

// LoadRemoteVersion fetches a version and decodes its payload. When the payload
// is unusable the version is still returned alongside ErrMalformedVersion.
func (r *Repository) LoadRemoteVersion(ctx context.Context, versionID int64) (*domain.StatementVersion, domain.StatementData, error) {
	v, err := r.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, domain.StatementData{}, err
	}
	if v == nil {
		return nil, domain.StatementData{}, fmt.Errorf("%w: %d", store.ErrVersionNotFound, versionID)
	}

	var w wireStatement
	if err := json.Unmarshal(v.Data, &w); err != nil {
		return v, domain.StatementData{}, fmt.Errorf("%w: version %d: %v", ErrMalformedVersion, versionID, err)
	}
	data, ok := w.data()
	if !ok {
		return v, domain.StatementData{}, fmt.Errorf("%w: version %d: missing statement fields", ErrMalformedVersion, versionID)
	}
	return v, data, nil
}

func (r *Repository) DeleteRemoteVersion(ctx context.Context, versionID int64) error {
	return r.versions.Delete(ctx, versionID)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/vbonduro/feestatement/internal/catalog"
	"github.com/vbonduro/feestatement/internal/domain"
	"github.com/vbonduro/feestatement/internal/repository"
	"github.com/vbonduro/feestatement/internal/snapshotstore"
	"github.com/vbonduro/feestatement/internal/statement"
	"github.com/vbonduro/feestatement/internal/store"
)

// ErrRemoteUnavailable wraps any failure of the remote version store.
var ErrRemoteUnavailable = errors.New("remote version store unavailable")

type Options struct {
	DefaultProjectType  domain.ProjectType
	DefaultProfitMargin float64
	SessionTTL          time.Duration
	// EditorOptions are passed to every editor the service creates.
	EditorOptions []statement.Option
}

// StatementService keeps one open editor per project and moves statements
// between the editors and the two persistence tiers.
type StatementService struct {
	repo     repository.StatementRepository
	sessions *cache.Cache
	opening  sync.Mutex
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

func NewStatementService(repo repository.StatementRepository, opts Options, logger *slog.Logger) *StatementService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 2 * time.Hour
	}
	opts.DefaultProjectType = catalog.Resolve(opts.DefaultProjectType)
	opts.EditorOptions = append([]statement.Option{statement.WithDefaultProjectType(opts.DefaultProjectType)}, opts.EditorOptions...)

	s := &StatementService{
		repo:     repo,
		sessions: cache.New(opts.SessionTTL, opts.SessionTTL/2),
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
	s.sessions.OnEvicted(s.sessionEvicted)
	return s
}

// sessionEvicted runs when a session expires or is closed. Edits that were
// not saved to the cache are gone; a later version save creates a new version.
func (s *StatementService) sessionEvicted(projectID string, v any) {
	e, ok := v.(*statement.Editor)
	if !ok {
		return
	}
	versionID, _ := e.EditingVersion()
	s.logger.Info("statement session closed", "project_id", projectID, "editing_version_id", versionID)
}

// ResolveProjectType parses raw, using the configured default for missing or
// unknown types.
func (s *StatementService) ResolveProjectType(raw string) domain.ProjectType {
	if pt, ok := domain.ParseProjectType(raw); ok {
		return pt
	}
	return s.opts.DefaultProjectType
}

// Open returns the project's editor, creating it on first access from the
// local cache or, when nothing usable is cached, from catalog defaults.
// projectType only matters when defaults are used; empty or unknown means the
// configured default type.
func (s *StatementService) Open(ctx context.Context, projectID string, projectType domain.ProjectType) *statement.Editor {
	s.opening.Lock()
	defer s.opening.Unlock()

	if v, ok := s.sessions.Get(projectID); ok {
		e := v.(*statement.Editor)
		s.sessions.Set(projectID, e, cache.DefaultExpiration)
		return e
	}

	e, source := s.restore(ctx, projectID, projectType)
	s.sessions.Set(projectID, e, cache.DefaultExpiration)
	s.logger.Info("statement session opened", "project_id", projectID, "source", source)
	return e
}

func (s *StatementService) restore(ctx context.Context, projectID string, projectType domain.ProjectType) (*statement.Editor, string) {
	snap, err := s.repo.LoadLocalSnapshot(ctx, projectID)
	switch {
	case err == nil:
		return statement.Restore(*snap, s.opts.DefaultProfitMargin, s.opts.EditorOptions...), "cache"
	case errors.Is(err, snapshotstore.ErrNotFound):
	case errors.Is(err, repository.ErrCorruptSnapshot):
		s.logger.Warn("discarding corrupt cached statement", "project_id", projectID, "error", err)
		if err := s.repo.DeleteLocalSnapshot(ctx, projectID); err != nil {
			s.logger.Error("failed to delete corrupt cached statement", "project_id", projectID, "error", err)
		}
	default:
		s.logger.Error("failed to read cached statement", "project_id", projectID, "error", err)
	}

	if _, ok := domain.ParseProjectType(string(projectType)); !ok {
		projectType = s.opts.DefaultProjectType
	}
	return statement.New(projectID, projectType, s.opts.DefaultProfitMargin, s.opts.EditorOptions...), "defaults"
}

// Close drops the project's session without saving it.
func (s *StatementService) Close(projectID string) {
	s.sessions.Delete(projectID)
}

// SaveStatement writes the current statement to the local cache.
func (s *StatementService) SaveStatement(ctx context.Context, projectID string) (domain.Snapshot, error) {
	e := s.Open(ctx, projectID, "")
	snap, err := s.repo.SaveLocalSnapshot(ctx, e.Snapshot())
	if err != nil {
		s.logger.Error("failed to save statement", "project_id", projectID, "error", err)
		return domain.Snapshot{}, fmt.Errorf("failed to save statement: %w", err)
	}
	s.logger.Info("statement saved", "project_id", projectID, "items", len(snap.Items))
	return snap, nil
}

// SaveVersion updates the version being edited, or creates a new one when
// there is none or the session was flagged as a new version.
func (s *StatementService) SaveVersion(ctx context.Context, projectID, displayName string) (*domain.StatementVersion, error) {
	e := s.Open(ctx, projectID, "")
	if displayName == "" {
		displayName = fmt.Sprintf("Statement %s", s.now().Format("2006-01-02 15:04"))
	}

	pending := e.PendingVersionSave()
	update := pending.Update

	var (
		v   *domain.StatementVersion
		err error
	)
	if update {
		v, err = s.repo.UpdateRemoteVersion(ctx, pending.VersionID, pending.Data, displayName)
	} else {
		v, err = s.repo.SaveRemoteVersion(ctx, projectID, pending.Data, displayName)
	}
	if err != nil {
		return nil, s.remoteError(projectID, "save version", err)
	}

	e.MarkVersionSaved(v.ID)
	if update {
		s.logger.Info("statement version updated", "project_id", projectID, "version_id", v.ID)
	} else {
		s.logger.Info("statement version created", "project_id", projectID, "version_id", v.ID)
	}
	return v, nil
}

func (s *StatementService) ListVersions(ctx context.Context, projectID string) ([]*domain.StatementVersion, error) {
	versions, err := s.repo.ListRemoteVersions(ctx, projectID)
	if err != nil {
		return nil, s.remoteError(projectID, "list versions", err)
	}
	return versions, nil
}

// LoadVersion replaces the project's statement with a stored version and
// enters editing mode for it. A version with an unusable payload resets the
// statement to catalog defaults instead.
func (s *StatementService) LoadVersion(ctx context.Context, projectID string, versionID int64) (*statement.Editor, error) {
	e := s.Open(ctx, projectID, "")

	v, data, err := s.repo.LoadRemoteVersion(ctx, versionID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrMalformedVersion) && v != nil && v.ProjectID == projectID:
		s.logger.Warn("malformed statement version, resetting to defaults", "project_id", projectID, "version_id", versionID, "error", err)
		e.Reset()
		return e, nil
	case errors.Is(err, repository.ErrMalformedVersion):
		return nil, fmt.Errorf("%w: %d", store.ErrVersionNotFound, versionID)
	default:
		return nil, s.remoteError(projectID, "load version", err)
	}
	if v.ProjectID != projectID {
		return nil, fmt.Errorf("%w: %d", store.ErrVersionNotFound, versionID)
	}

	e.EnterVersion(v.ID, data)
	s.logger.Info("statement version loaded", "project_id", projectID, "version_id", v.ID)
	return e, nil
}

// DeleteVersion removes one of the project's versions. An editor that was
// editing it leaves editing mode.
func (s *StatementService) DeleteVersion(ctx context.Context, projectID string, versionID int64) error {
	v, _, err := s.repo.LoadRemoteVersion(ctx, versionID)
	if err != nil && !errors.Is(err, repository.ErrMalformedVersion) {
		return s.remoteError(projectID, "delete version", err)
	}
	if v == nil || v.ProjectID != projectID {
		return fmt.Errorf("%w: %d", store.ErrVersionNotFound, versionID)
	}
	if err := s.repo.DeleteRemoteVersion(ctx, versionID); err != nil {
		return s.remoteError(projectID, "delete version", err)
	}

	if cached, ok := s.sessions.Get(projectID); ok {
		cached.(*statement.Editor).ForgetVersion(versionID)
	}
	s.logger.Info("statement version deleted", "project_id", projectID, "version_id", versionID)
	return nil
}

// StartNewVersion makes the next version save create a new version.
func (s *StatementService) StartNewVersion(ctx context.Context, projectID string) *statement.Editor {
	e := s.Open(ctx, projectID, "")
	e.StartNewVersion()
	return e
}

// remoteError logs a remote failure and maps it for the caller. Missing
// versions stay distinguishable; everything else is ErrRemoteUnavailable.
func (s *StatementService) remoteError(projectID, op string, err error) error {
	if errors.Is(err, store.ErrVersionNotFound) {
		return err
	}
	s.logger.Error("remote version store failed", "project_id", projectID, "op", op, "error", err)
	return fmt.Errorf("%w: %s: %v", ErrRemoteUnavailable, op, err)
}

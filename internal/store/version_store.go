package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vbonduro/feestatement/internal/domain"
)

var ErrVersionNotFound = errors.New("statement version not found")

// VersionStore is the remote tier: named statement versions per project.
type VersionStore struct {
	db *sql.DB
}

func NewVersionStore(db *sql.DB) *VersionStore {
	return &VersionStore{db: db}
}

const versionColumns = `id, project_id, display_name, statement_data, created_at, updated_at`

func (s *VersionStore) Create(ctx context.Context, projectID, displayName string, data json.RawMessage) (*domain.StatementVersion, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO statement_versions (project_id, display_name, statement_data) VALUES (?, ?, ?)
	`, projectID, displayName, string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create statement version: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Update overwrites the payload and name of an existing version.
func (s *VersionStore) Update(ctx context.Context, id int64, displayName string, data json.RawMessage) (*domain.StatementVersion, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE statement_versions
		SET display_name = ?, statement_data = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, displayName, string(data), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update statement version: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: %d", ErrVersionNotFound, id)
	}

	return s.GetByID(ctx, id)
}

func (s *VersionStore) GetByID(ctx context.Context, id int64) (*domain.StatementVersion, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+` FROM statement_versions WHERE id = ?
	`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get statement version: %w", err)
	}

	return v, nil
}

// ListByProject returns a project's versions, newest first.
func (s *VersionStore) ListByProject(ctx context.Context, projectID string) ([]*domain.StatementVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+` FROM statement_versions
		WHERE project_id = ?
		ORDER BY created_at DESC, id DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statement versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.StatementVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan statement version: %w", err)
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statement versions: %w", err)
	}

	return versions, nil
}

func (s *VersionStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM statement_versions WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete statement version: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrVersionNotFound, id)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (*domain.StatementVersion, error) {
	v := &domain.StatementVersion{}
	var data string
	if err := row.Scan(&v.ID, &v.ProjectID, &v.DisplayName, &data, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.Data = json.RawMessage(data)
	return v, nil
}

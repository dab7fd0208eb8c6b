// Package versions implements file version persistence over a dbx.DBTX.
package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

const versionColumns = `id, file_id, version_number, size, checksum, storage_key, created_by, created_at, comment`

// SQLRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLRepository struct {
	db dbx.DBTX
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(s scanner) (*models.FileVersion, error) {
	v := &models.FileVersion{}
	if err := s.Scan(&v.ID, &v.FileID, &v.VersionNumber, &v.Size, &v.Checksum, &v.StorageKey, &v.CreatedBy, &v.CreatedAt, &v.Comment); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *SQLRepository) NextNumber(ctx context.Context, fileID string) (int, error) {
	query := `SELECT CAST(COALESCE(MAX(version_number), 0) + 1 AS INTEGER) FROM file_versions WHERE file_id = $1`
	var next int
	if err := r.db.QueryRowContext(ctx, query, fileID).Scan(&next); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return next, nil
}

func (r *SQLRepository) Create(ctx context.Context, v *models.FileVersion) error {
	query := `
		INSERT INTO file_versions (id, file_id, version_number, size, checksum, storage_key, created_by, created_at, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, v.ID, v.FileID, v.VersionNumber, v.Size, v.Checksum, v.StorageKey, v.CreatedBy, v.CreatedAt, v.Comment)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) ListByFile(ctx context.Context, fileID string) ([]*models.FileVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM file_versions WHERE file_id = $1 ORDER BY version_number DESC`
	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.FileVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) Get(ctx context.Context, fileID string, number int) (*models.FileVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM file_versions WHERE file_id = $1 AND version_number = $2`
	v, err := scanVersion(r.db.QueryRowContext(ctx, query, fileID, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

// DeleteByOwner hard-deletes the versions of every file of the owner.
func (r *SQLRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	query := `DELETE FROM file_versions WHERE file_id IN (SELECT id FROM files WHERE owner_id = $1)`
	res, err := r.db.ExecContext(ctx, query, ownerID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

// Package files implements file metadata persistence over a dbx.DBTX.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

const fileColumns = `id, name, extension, content_type, size, checksum, storage_key, folder_id, owner_id,
	created_at, updated_at, is_deleted, deleted_at, is_favorite`

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

func scanFile(s scanner) (*models.File, error) {
	f := &models.File{}
	err := s.Scan(&f.ID, &f.Name, &f.Extension, &f.ContentType, &f.Size, &f.Checksum, &f.StorageKey, &f.FolderID,
		&f.OwnerID, &f.CreatedAt, &f.UpdatedAt, &f.IsDeleted, &f.DeletedAt, &f.IsFavorite)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *SQLRepository) queryOne(ctx context.Context, query string, args ...any) (*models.File, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *SQLRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.File, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) sum(ctx context.Context, query string, args ...any) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return total, nil
}

func exactlyOne(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *SQLRepository) Create(ctx context.Context, f *models.File) error {
	query := `
		INSERT INTO files (id, name, extension, content_type, size, checksum, storage_key, folder_id, owner_id,
			created_at, updated_at, is_deleted, is_favorite)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE, $12)`
	_, err := r.db.ExecContext(ctx, query, f.ID, f.Name, f.Extension, f.ContentType, f.Size, f.Checksum, f.StorageKey,
		f.FolderID, f.OwnerID, f.CreatedAt, f.UpdatedAt, f.IsFavorite)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetByID(ctx context.Context, ownerID, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 AND id = $2`
	return r.queryOne(ctx, query, ownerID, id)
}

func (r *SQLRepository) FindActiveByName(ctx context.Context, ownerID, folderID, name string) (*models.File, error) {
	query := `
		SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND folder_id = $2 AND name = $3 AND is_deleted = FALSE
		ORDER BY created_at, id
		LIMIT 1`
	return r.queryOne(ctx, query, ownerID, folderID, name)
}

func (r *SQLRepository) ListByFolder(ctx context.Context, ownerID, folderID string, includeDeleted bool) ([]*models.File, error) {
	query := `
		SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND folder_id = $2 AND ($3 OR is_deleted = FALSE)
		ORDER BY name, created_at`
	return r.queryMany(ctx, query, ownerID, folderID, includeDeleted)
}

func (r *SQLRepository) UpdateContent(ctx context.Context, f *models.File) error {
	query := `
		UPDATE files SET size = $3, checksum = $4, storage_key = $5, content_type = $6, updated_at = $7
		WHERE owner_id = $1 AND id = $2`
	return exactlyOne(r.db.ExecContext(ctx, query, f.OwnerID, f.ID, f.Size, f.Checksum, f.StorageKey, f.ContentType, f.UpdatedAt))
}

func (r *SQLRepository) Rename(ctx context.Context, ownerID, id, name, extension string, now time.Time) error {
	query := `UPDATE files SET name = $3, extension = $4, updated_at = $5 WHERE owner_id = $1 AND id = $2`
	return exactlyOne(r.db.ExecContext(ctx, query, ownerID, id, name, extension, now))
}

func (r *SQLRepository) Move(ctx context.Context, ownerID, id, folderID string, now time.Time) error {
	query := `UPDATE files SET folder_id = $3, updated_at = $4 WHERE owner_id = $1 AND id = $2`
	return exactlyOne(r.db.ExecContext(ctx, query, ownerID, id, folderID, now))
}

func (r *SQLRepository) MarkDeleted(ctx context.Context, ownerID, id string, now time.Time) error {
	query := `
		UPDATE files SET is_deleted = TRUE, deleted_at = $3, updated_at = $3
		WHERE owner_id = $1 AND id = $2 AND is_deleted = FALSE`
	if _, err := r.db.ExecContext(ctx, query, ownerID, id, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) SetFavorite(ctx context.Context, ownerID, id string, favorite bool, now time.Time) error {
	query := `UPDATE files SET is_favorite = $3, updated_at = $4 WHERE owner_id = $1 AND id = $2`
	return exactlyOne(r.db.ExecContext(ctx, query, ownerID, id, favorite, now))
}

// SumActiveSize is the committed storage usage of the owner.
func (r *SQLRepository) SumActiveSize(ctx context.Context, ownerID string) (int64, error) {
	query := `SELECT CAST(COALESCE(SUM(size), 0) AS BIGINT) FROM files WHERE owner_id = $1 AND is_deleted = FALSE`
	return r.sum(ctx, query, ownerID)
}

func (r *SQLRepository) SumActiveSizeInFolder(ctx context.Context, ownerID, folderID string) (int64, error) {
	query := `SELECT CAST(COALESCE(SUM(size), 0) AS BIGINT) FROM files WHERE owner_id = $1 AND folder_id = $2 AND is_deleted = FALSE`
	return r.sum(ctx, query, ownerID, folderID)
}

func (r *SQLRepository) SearchByName(ctx context.Context, ownerID, pattern string, includeDeleted bool) ([]*models.File, error) {
	query := `
		SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND LOWER(name) LIKE $2 ESCAPE '\' AND ($3 OR is_deleted = FALSE)
		ORDER BY name, created_at`
	return r.queryMany(ctx, query, ownerID, pattern, includeDeleted)
}

func (r *SQLRepository) ListFavorites(ctx context.Context, ownerID string) ([]*models.File, error) {
	query := `
		SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND is_favorite = TRUE AND is_deleted = FALSE
		ORDER BY name, created_at`
	return r.queryMany(ctx, query, ownerID)
}

// DeleteByOwner hard-deletes every file of the owner; versions follow by
// cascade.
func (r *SQLRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

// Package folders implements folder persistence over a dbx.DBTX. The SQL is
// portable between PostgreSQL and SQLite.
package folders

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

const folderColumns = `id, name, parent_id, owner_id, created_at, updated_at, is_deleted, deleted_at`

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

func scanFolder(s scanner) (*models.Folder, error) {
	f := &models.Folder{}
	if err := s.Scan(&f.ID, &f.Name, &f.ParentID, &f.OwnerID, &f.CreatedAt, &f.UpdatedAt, &f.IsDeleted, &f.DeletedAt); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *SQLRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Folder, error) {
	f, err := scanFolder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *SQLRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.Folder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
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

// exactlyOne turns an update result into ErrorNotFound when no row matched.
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

// InsertRoot relies on the partial unique index over (owner_id) where
// parent_id is null; a concurrent insert for the same owner is a no-op.
func (r *SQLRepository) InsertRoot(ctx context.Context, f *models.Folder) (bool, error) {
	query := `
		INSERT INTO folders (id, name, parent_id, owner_id, created_at, updated_at, is_deleted)
		VALUES ($1, $2, NULL, $3, $4, $5, FALSE)
		ON CONFLICT DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, f.ID, f.Name, f.OwnerID, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *SQLRepository) GetRoot(ctx context.Context, ownerID string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE owner_id = $1 AND parent_id IS NULL`
	return r.queryOne(ctx, query, ownerID)
}

func (r *SQLRepository) Create(ctx context.Context, f *models.Folder) error {
	query := `
		INSERT INTO folders (id, name, parent_id, owner_id, created_at, updated_at, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)`
	if _, err := r.db.ExecContext(ctx, query, f.ID, f.Name, f.ParentID, f.OwnerID, f.CreatedAt, f.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the folder regardless of its deletion state.
func (r *SQLRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE owner_id = $1 AND id = $2`
	return r.queryOne(ctx, query, ownerID, id)
}

func (r *SQLRepository) ListChildren(ctx context.Context, ownerID, parentID string, includeDeleted bool) ([]*models.Folder, error) {
	query := `
		SELECT ` + folderColumns + ` FROM folders
		WHERE owner_id = $1 AND parent_id = $2 AND ($3 OR is_deleted = FALSE)
		ORDER BY name, created_at`
	return r.queryMany(ctx, query, ownerID, parentID, includeDeleted)
}

// FindChildByName picks the oldest active child named name.
func (r *SQLRepository) FindChildByName(ctx context.Context, ownerID, parentID, name string) (*models.Folder, error) {
	query := `
		SELECT ` + folderColumns + ` FROM folders
		WHERE owner_id = $1 AND parent_id = $2 AND name = $3 AND is_deleted = FALSE
		ORDER BY created_at, id
		LIMIT 1`
	return r.queryOne(ctx, query, ownerID, parentID, name)
}

func (r *SQLRepository) Rename(ctx context.Context, ownerID, id, name string, now time.Time) error {
	query := `UPDATE folders SET name = $3, updated_at = $4 WHERE owner_id = $1 AND id = $2`
	return exactlyOne(r.db.ExecContext(ctx, query, ownerID, id, name, now))
}

func (r *SQLRepository) Move(ctx context.Context, ownerID, id, parentID string, now time.Time) error {
	query := `UPDATE folders SET parent_id = $3, updated_at = $4 WHERE owner_id = $1 AND id = $2`
	return exactlyOne(r.db.ExecContext(ctx, query, ownerID, id, parentID, now))
}

// MarkDeleted soft-deletes a single folder; already deleted rows keep
// their original deletion time.
func (r *SQLRepository) MarkDeleted(ctx context.Context, ownerID, id string, now time.Time) error {
	query := `
		UPDATE folders SET is_deleted = TRUE, deleted_at = $3, updated_at = $3
		WHERE owner_id = $1 AND id = $2 AND is_deleted = FALSE`
	if _, err := r.db.ExecContext(ctx, query, ownerID, id, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// SearchByName matches pattern, a LIKE pattern using '\' as escape
// character, against lower-cased names.
func (r *SQLRepository) SearchByName(ctx context.Context, ownerID, pattern string, includeDeleted bool) ([]*models.Folder, error) {
	query := `
		SELECT ` + folderColumns + ` FROM folders
		WHERE owner_id = $1 AND LOWER(name) LIKE $2 ESCAPE '\' AND ($3 OR is_deleted = FALSE)
		ORDER BY name, created_at`
	return r.queryMany(ctx, query, ownerID, pattern, includeDeleted)
}

// DeleteByOwner hard-deletes every folder of the owner. Files must be
// removed first.
func (r *SQLRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

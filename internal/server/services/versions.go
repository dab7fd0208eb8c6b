package services

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophdrive/internal/server/storage"
	"github.com/google/uuid"
)

// VersionManager keeps immutable snapshots of file content. The previous
// storage key of an overwritten file stays alive as a version.
type VersionManager struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       *storage.Store
	now         func() time.Time
}

func NewVersionManager(db *sql.DB, repomanager repomanager.RepositoryManager, store *storage.Store) *VersionManager {
	return &VersionManager{
		db:          db,
		repomanager: repomanager,
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SnapshotCurrent records file's current content as the next version
// number. It must run inside the caller's transaction.
func (m *VersionManager) SnapshotCurrent(ctx context.Context, tx dbx.DBTX, file *models.File, creator, comment string) (*models.FileVersion, error) {
	repo := m.repomanager.Versions(tx)

	next, err := repo.NextNumber(ctx, file.ID)
	if err != nil {
		return nil, err
	}

	v := &models.FileVersion{
		ID:            uuid.NewString(),
		FileID:        file.ID,
		VersionNumber: next,
		Size:          file.Size,
		Checksum:      file.Checksum,
		StorageKey:    file.StorageKey,
		CreatedBy:     creator,
		CreatedAt:     m.now(),
		Comment:       comment,
	}
	if err := repo.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// activeFile loads an owned, non-deleted file.
func (m *VersionManager) activeFile(ctx context.Context, owner, fileID string) (*models.File, error) {
	f, err := m.repomanager.Files(m.db).GetByID(ctx, owner, fileID)
	if err != nil {
		return nil, err
	}
	if f.IsDeleted {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

// ListVersions returns the snapshots of an owned file, newest first.
func (m *VersionManager) ListVersions(ctx context.Context, owner, fileID string) ([]*models.FileVersion, error) {
	if _, err := m.activeFile(ctx, owner, fileID); err != nil {
		return nil, err
	}
	return m.repomanager.Versions(m.db).ListByFile(ctx, fileID)
}

// OpenVersion returns a historical version and its content.
func (m *VersionManager) OpenVersion(ctx context.Context, owner, fileID string, number int) (*models.FileVersion, io.ReadCloser, error) {
	if _, err := m.activeFile(ctx, owner, fileID); err != nil {
		return nil, nil, err
	}
	v, err := m.repomanager.Versions(m.db).Get(ctx, fileID, number)
	if err != nil {
		return nil, nil, err
	}
	rc, err := m.store.Open(ctx, v.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return v, rc, nil
}

// versionKeys lists the storage keys held by the versions of fileID.
func (m *VersionManager) versionKeys(ctx context.Context, db dbx.DBTX, fileID string) ([]string, error) {
	list, err := m.repomanager.Versions(db).ListByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(list))
	for _, v := range list {
		keys = append(keys, v.StorageKey)
	}
	return keys, nil
}

package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// Repository persists file metadata. Lookups are scoped to an owner.
type Repository interface {
	Create(ctx context.Context, f *models.File) error
	// GetByID returns the file regardless of its deletion state.
	GetByID(ctx context.Context, ownerID, id string) (*models.File, error)
	FindActiveByName(ctx context.Context, ownerID, folderID, name string) (*models.File, error)
	ListByFolder(ctx context.Context, ownerID, folderID string, includeDeleted bool) ([]*models.File, error)
	// UpdateContent replaces size, checksum, storage key and content type.
	UpdateContent(ctx context.Context, f *models.File) error
	Rename(ctx context.Context, ownerID, id, name, extension string, now time.Time) error
	Move(ctx context.Context, ownerID, id, folderID string, now time.Time) error
	MarkDeleted(ctx context.Context, ownerID, id string, now time.Time) error
	SetFavorite(ctx context.Context, ownerID, id string, favorite bool, now time.Time) error
	SumActiveSize(ctx context.Context, ownerID string) (int64, error)
	SumActiveSizeInFolder(ctx context.Context, ownerID, folderID string) (int64, error)
	SearchByName(ctx context.Context, ownerID, pattern string, includeDeleted bool) ([]*models.File, error)
	ListFavorites(ctx context.Context, ownerID string) ([]*models.File, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

package folders

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// Repository persists folders. Every lookup is scoped to an owner; rows of
// other owners behave as if they did not exist.
type Repository interface {
	// InsertRoot inserts f as the owner's root unless one already exists and
	// reports whether the insert took place.
	InsertRoot(ctx context.Context, f *models.Folder) (bool, error)
	GetRoot(ctx context.Context, ownerID string) (*models.Folder, error)
	Create(ctx context.Context, f *models.Folder) error
	GetByID(ctx context.Context, ownerID, id string) (*models.Folder, error)
	ListChildren(ctx context.Context, ownerID, parentID string, includeDeleted bool) ([]*models.Folder, error)
	FindChildByName(ctx context.Context, ownerID, parentID, name string) (*models.Folder, error)
	Rename(ctx context.Context, ownerID, id, name string, now time.Time) error
	Move(ctx context.Context, ownerID, id, parentID string, now time.Time) error
	MarkDeleted(ctx context.Context, ownerID, id string, now time.Time) error
	SearchByName(ctx context.Context, ownerID, pattern string, includeDeleted bool) ([]*models.Folder, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

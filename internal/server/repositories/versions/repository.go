package versions

import (
	"context"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// Repository persists file version snapshots.
type Repository interface {
	// NextNumber returns max(version_number)+1 for the file, or 1.
	NextNumber(ctx context.Context, fileID string) (int, error)
	Create(ctx context.Context, v *models.FileVersion) error
	// ListByFile returns versions newest first.
	ListByFile(ctx context.Context, fileID string) ([]*models.FileVersion, error)
	Get(ctx context.Context, fileID string, number int) (*models.FileVersion, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

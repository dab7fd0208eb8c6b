package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/repomanager"
)

// PathResolver derives logical paths and sizes from the flat folder and
// file tables. Every walk is bounded by maxDepth hops.
type PathResolver struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	maxDepth    int
}

func NewPathResolver(db dbx.DBTX, repomanager repomanager.RepositoryManager, maxDepth int) *PathResolver {
	return &PathResolver{db: db, repomanager: repomanager, maxDepth: maxDepth}
}

// With returns a resolver reading through db, typically an open transaction.
func (p *PathResolver) With(db dbx.DBTX) *PathResolver {
	return &PathResolver{db: db, repomanager: p.repomanager, maxDepth: p.maxDepth}
}

// ResolvePath returns folder names from the owner's root down to folder.
func (p *PathResolver) ResolvePath(ctx context.Context, folder *models.Folder) ([]string, error) {
	repo := p.repomanager.Folders(p.db)

	names := []string{folder.Name}
	visited := map[string]bool{folder.ID: true}
	cur := folder
	for hops := 0; cur.ParentID != nil; hops++ {
		parentID := *cur.ParentID
		if hops >= p.maxDepth || visited[parentID] {
			return nil, fmt.Errorf("%w: resolving folder %s", common.ErrCycleDetected, folder.ID)
		}
		visited[parentID] = true

		parent, err := repo.GetByID(ctx, folder.OwnerID, parentID)
		if err != nil {
			return nil, err
		}
		names = append(names, parent.Name)
		cur = parent
	}

	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names, nil
}

// FormatPath renders resolved names as "/root/a/b".
func FormatPath(names []string) string {
	return "/" + strings.Join(names, "/")
}

// RelativeDir is the resolved path without the root element; it places
// physical content below the owner's directory.
func (p *PathResolver) RelativeDir(ctx context.Context, folder *models.Folder) ([]string, error) {
	names, err := p.ResolvePath(ctx, folder)
	if err != nil {
		return nil, err
	}
	return names[1:], nil
}

// IsDescendant reports whether folder lies in the subtree rooted at
// ancestorID (folder itself included).
func (p *PathResolver) IsDescendant(ctx context.Context, folder *models.Folder, ancestorID string) (bool, error) {
	repo := p.repomanager.Folders(p.db)

	visited := map[string]bool{}
	cur := folder
	for hops := 0; ; hops++ {
		if cur.ID == ancestorID {
			return true, nil
		}
		if cur.ParentID == nil {
			return false, nil
		}
		if hops >= p.maxDepth || visited[cur.ID] {
			return false, fmt.Errorf("%w: walking ancestors of %s", common.ErrCycleDetected, folder.ID)
		}
		visited[cur.ID] = true

		parent, err := repo.GetByID(ctx, folder.OwnerID, *cur.ParentID)
		if err != nil {
			return false, err
		}
		cur = parent
	}
}

// levels walks the subtree below folder breadth-first and returns it one
// depth level per entry, folder itself first.
func (p *PathResolver) levels(ctx context.Context, folder *models.Folder, includeDeleted bool) ([][]*models.Folder, error) {
	repo := p.repomanager.Folders(p.db)

	var result [][]*models.Folder
	visited := map[string]bool{folder.ID: true}
	level := []*models.Folder{folder}

	for depth := 0; len(level) > 0; depth++ {
		if depth > p.maxDepth {
			return nil, fmt.Errorf("%w: subtree of %s deeper than %d", common.ErrCycleDetected, folder.ID, p.maxDepth)
		}
		result = append(result, level)
		var next []*models.Folder
		for _, f := range level {
			children, err := repo.ListChildren(ctx, folder.OwnerID, f.ID, includeDeleted)
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				if visited[c.ID] {
					return nil, fmt.Errorf("%w: folder %s reached twice", common.ErrCycleDetected, c.ID)
				}
				visited[c.ID] = true
				next = append(next, c)
			}
		}
		level = next
	}
	return result, nil
}

// Subtree returns folder and its descendants in breadth-first order.
func (p *PathResolver) Subtree(ctx context.Context, folder *models.Folder, includeDeleted bool) ([]*models.Folder, error) {
	levels, err := p.levels(ctx, folder, includeDeleted)
	if err != nil {
		return nil, err
	}
	var result []*models.Folder
	for _, l := range levels {
		result = append(result, l...)
	}
	return result, nil
}

// Depth is the number of parent links between folder and the owner's root.
func (p *PathResolver) Depth(ctx context.Context, folder *models.Folder) (int, error) {
	names, err := p.ResolvePath(ctx, folder)
	if err != nil {
		return 0, err
	}
	return len(names) - 1, nil
}

// Height is the number of folder levels below folder, deleted folders
// included. A folder without subfolders has height 0.
func (p *PathResolver) Height(ctx context.Context, folder *models.Folder) (int, error) {
	levels, err := p.levels(ctx, folder, true)
	if err != nil {
		return 0, err
	}
	return len(levels) - 1, nil
}

// CheckDepth fails with ErrInvalidTarget when a folder placed at depth
// would be out of reach of the bounded walks.
func (p *PathResolver) CheckDepth(depth int) error {
	if depth > p.maxDepth {
		return fmt.Errorf("%w: folder would be %d levels deep, limit is %d", common.ErrInvalidTarget, depth, p.maxDepth)
	}
	return nil
}

// ComputeSize sums the active files of folder's active subtree.
func (p *PathResolver) ComputeSize(ctx context.Context, folder *models.Folder) (int64, error) {
	subtree, err := p.Subtree(ctx, folder, false)
	if err != nil {
		return 0, err
	}

	repo := p.repomanager.Files(p.db)
	var total int64
	for _, f := range subtree {
		n, err := repo.SumActiveSizeInFolder(ctx, folder.OwnerID, f.ID)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

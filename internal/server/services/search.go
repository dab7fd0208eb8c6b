package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/repomanager"
)

// SearchIndex answers name lookups over an owner's folders and files.
type SearchIndex struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSearchIndex(db *sql.DB, repomanager repomanager.RepositoryManager) *SearchIndex {
	return &SearchIndex{db: db, repomanager: repomanager}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive substring LIKE pattern in which the
// wildcard characters of query match literally.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
}

// SearchByName returns folders and files whose name contains substring,
// ignoring case.
func (s *SearchIndex) SearchByName(ctx context.Context, owner, substring string, includeDeleted bool) (*models.Listing, error) {
	pattern := likePattern(substring)

	folders, err := s.repomanager.Folders(s.db).SearchByName(ctx, owner, pattern, includeDeleted)
	if err != nil {
		return nil, err
	}
	files, err := s.repomanager.Files(s.db).SearchByName(ctx, owner, pattern, includeDeleted)
	if err != nil {
		return nil, err
	}
	return &models.Listing{Folders: folders, Files: files}, nil
}

// Favorites lists the owner's active favorite files.
func (s *SearchIndex) Favorites(ctx context.Context, owner string) ([]*models.File, error) {
	return s.repomanager.Files(s.db).ListFavorites(ctx, owner)
}

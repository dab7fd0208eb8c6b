package models

import (
	"path"
	"strings"
	"time"
)

// File describes the current content of a logical file. The bytes live in
// physical storage under StorageKey; Size and Checksum describe them as of
// the last committed upload.
type File struct {
	ID          string
	Name        string
	Extension   string
	ContentType string
	Size        int64
	// Checksum is "<algorithm>:<hex digest>".
	Checksum   string
	StorageKey string
	FolderID   *string
	OwnerID    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	IsDeleted  bool
	DeletedAt  *time.Time
	IsFavorite bool
}

// ExtensionOf returns the lower-case extension of name without the dot.
func ExtensionOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

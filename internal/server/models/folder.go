// Package models defines server-side data models persisted in the database.
package models

import "time"

// Folder is a node of an owner's logical tree. A nil ParentID marks the
// owner's root folder.
type Folder struct {
	ID        string
	Name      string
	ParentID  *string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool
	DeletedAt *time.Time
}

// IsRoot reports whether f is the owner's tree root.
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}

package models

import "time"

// FileVersion is an immutable snapshot of a file's content taken before
// the file was overwritten.
type FileVersion struct {
	ID            string
	FileID        string
	VersionNumber int
	Size          int64
	Checksum      string
	StorageKey    string
	CreatedBy     string
	CreatedAt     time.Time
	Comment       string
}

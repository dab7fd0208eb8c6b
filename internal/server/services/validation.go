package services

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/storage"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// maxNameBytes is the longest accepted folder or file name.
const maxNameBytes = 255

const forbiddenNameChars = `\/:*?"<>|`

var nameRule = validation.By(func(value any) error {
	name, _ := value.(string)
	switch {
	case name == "":
		return errors.New("must not be empty")
	case name == "." || name == "..":
		return errors.New("is reserved")
	case len(name) > maxNameBytes:
		return fmt.Errorf("must be at most %d bytes", maxNameBytes)
	case strings.ContainsAny(name, forbiddenNameChars):
		return fmt.Errorf("must not contain any of %s", forbiddenNameChars)
	case strings.IndexFunc(name, unicode.IsControl) >= 0:
		return errors.New("must not contain control characters")
	}
	if _, err := storage.SanitizeName(name); err != nil {
		return errors.New("must contain a character other than dots and spaces")
	}
	return nil
})

// validateName checks a folder, file or owner name.
func validateName(name string) error {
	if err := validation.Validate(name, nameRule); err != nil {
		return fmt.Errorf("%w: %q %v", common.ErrInvalidName, name, err)
	}
	return nil
}

// CreateFolderRequest asks for a new folder under ParentID (the owner's
// root when nil or not usable).
type CreateFolderRequest struct {
	Owner    string
	Name     string
	ParentID *string
}

// Validate implements validation.Validatable.
func (r CreateFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Owner, nameRule),
		validation.Field(&r.Name, nameRule),
	)
}

// UploadRequest carries new file content. Size is the declared content
// length; -1 means unknown.
type UploadRequest struct {
	Owner    string
	Name     string
	ParentID *string
	Content  io.Reader
	Size     int64
	Comment  string
}

// Validate implements validation.Validatable.
func (r UploadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Owner, nameRule),
		validation.Field(&r.Name, nameRule),
		validation.Field(&r.Content, validation.NotNil),
		validation.Field(&r.Size, validation.Min(int64(-1))),
	)
}

// checkRequest runs v.Validate and reports failures as ErrInvalidName.
func checkRequest(v validation.Validatable) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidName, err)
	}
	return nil
}

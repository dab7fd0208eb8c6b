package storage

import (
	"fmt"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/google/uuid"
)

// maxNameBytes bounds the sanitized part of an object name so that
// "<uuid>_<name>" still fits into a single filesystem path component.
const maxNameBytes = 200

// SanitizeName turns a user supplied name into a safe key component.
// Path separators, NUL and other control characters are removed together
// with leading dots and surrounding spaces; a name that ends up empty is
// rejected.
func SanitizeName(name string) (string, error) {
	clean := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	clean = strings.TrimLeftFunc(clean, func(r rune) bool { return r == '.' || unicode.IsSpace(r) })
	clean = strings.TrimRightFunc(clean, unicode.IsSpace)
	if clean == "" {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidName, name)
	}
	return truncateName(clean, maxNameBytes), nil
}

// truncateName cuts name to at most limit bytes on a rune boundary,
// keeping the extension when there is room for it.
func truncateName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	ext := path.Ext(name)
	if len(ext) >= limit/2 {
		ext = ""
	}
	base := name[:len(name)-len(ext)]
	cut := limit - len(ext)
	for cut > 0 && !utf8.RuneStart(base[cut]) {
		cut--
	}
	return base[:cut] + ext
}

// UniqueName prefixes a sanitized name with a random token so that
// repeated uploads of the same name never collide physically.
func UniqueName(name string) (string, error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	return uuid.NewString() + "_" + clean, nil
}

// DirKey returns the key prefix "<owner>/<dir...>" for a logical directory.
func DirKey(owner string, dir []string) (string, error) {
	parts := make([]string, 0, len(dir)+1)
	for _, p := range append([]string{owner}, dir...) {
		clean, err := SanitizeName(p)
		if err != nil {
			return "", err
		}
		parts = append(parts, clean)
	}
	return strings.Join(parts, "/"), nil
}

// ObjectKey returns "<owner>/<dir...>/<uuid>_<name>".
func ObjectKey(owner string, dir []string, name string) (string, error) {
	prefix, err := DirKey(owner, dir)
	if err != nil {
		return "", err
	}
	unique, err := UniqueName(name)
	if err != nil {
		return "", err
	}
	return prefix + "/" + unique, nil
}

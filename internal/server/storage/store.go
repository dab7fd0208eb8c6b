// Package storage maps logical file content to physical objects. A Store
// derives keys, sanitizes names and checksums content on top of a pluggable
// Backend (local filesystem, S3-compatible object storage or Backblaze B2).
package storage

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
)

// Backend is the minimal set of operations a physical store provides.
// Keys are slash separated.
type Backend interface {
	// Save writes exactly the bytes of r under key, creating intermediate
	// directories where the backend has them. size is -1 when unknown.
	Save(ctx context.Context, key string, r io.Reader, size int64) error
	// Open returns the content under key. Missing keys yield an error
	// matching fs.ErrNotExist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key and everything below it, reporting whether
	// anything existed.
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	MakeDir(ctx context.Context, key string) error
}

// DirPruner is implemented by backends with real directories. RemoveEmptyDir
// removes the directory key only when nothing is left inside it.
type DirPruner interface {
	RemoveEmptyDir(ctx context.Context, key string) (bool, error)
}

// URLSigner is implemented by backends able to issue time-limited
// download URLs.
type URLSigner interface {
	SignURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Destination names where new content goes: the owner, the folder path
// below the owner's root and the user visible file name.
type Destination struct {
	Owner string
	Dir   []string
	Name  string
}

// Object describes stored content.
type Object struct {
	Key      string
	Size     int64
	Checksum string
}

// Store is the content layer used by the services.
type Store struct {
	backend   Backend
	algorithm string
}

// NewStore binds a Store to backend using the given checksum algorithm.
func NewStore(backend Backend, algorithm string) (*Store, error) {
	if _, err := NewHasher(algorithm); err != nil {
		return nil, err
	}
	return &Store{backend: backend, algorithm: algorithm}, nil
}

// Algorithm reports the checksum algorithm of newly saved objects.
func (s *Store) Algorithm() string {
	return s.algorithm
}

// Save streams r into a fresh key under dst. The checksum and byte count
// are computed on the fly. When size is not negative the content must be
// exactly size bytes long, otherwise the object is removed and
// common.ErrSizeMismatch is returned.
func (s *Store) Save(ctx context.Context, dst Destination, r io.Reader, size int64) (*Object, error) {
	key, err := ObjectKey(dst.Owner, dst.Dir, dst.Name)
	if err != nil {
		return nil, err
	}

	h, err := NewHasher(s.algorithm)
	if err != nil {
		return nil, err
	}

	cr := &countingReader{r: r, h: h, declared: size}
	if err := s.backend.Save(ctx, key, cr, size); err != nil {
		if cr.mismatch {
			s.discard(ctx, key)
			return nil, fmt.Errorf("%w: declared %d bytes", common.ErrSizeMismatch, size)
		}
		return nil, fmt.Errorf("%w: %s: %w", common.ErrStorageWrite, key, err)
	}
	if size >= 0 && cr.n == size {
		// backends that stop at the declared length leave the tail unread
		var extra [1]byte
		_, _ = cr.Read(extra[:])
	}
	if cr.mismatch || (size >= 0 && cr.n != size) {
		s.discard(ctx, key)
		return nil, fmt.Errorf("%w: declared %d bytes, got %d", common.ErrSizeMismatch, size, cr.n)
	}

	return &Object{
		Key:      key,
		Size:     cr.n,
		Checksum: FormatChecksum(s.algorithm, h.Sum(nil)),
	}, nil
}

func (s *Store) discard(ctx context.Context, key string) {
	_, _ = s.backend.Delete(context.WithoutCancel(ctx), key)
}

// Open returns the content stored under key.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.backend.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrStorageRead, key, err)
	}
	return rc, nil
}

// Delete removes key (or the directory / prefix it names). It reports
// false when nothing was there.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if strings.Trim(key, "/") == "" {
		return false, fmt.Errorf("%w: empty key", common.ErrInvalidName)
	}
	ok, err := s.backend.Delete(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: delete %s: %w", common.ErrStorageWrite, key, err)
	}
	return ok, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.backend.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", common.ErrStorageRead, key, err)
	}
	return ok, nil
}

// CreateDir makes the physical directory of a logical folder and returns
// its key. Object stores have no directories; the call is a no-op there.
func (s *Store) CreateDir(ctx context.Context, owner string, dir []string) (string, error) {
	key, err := DirKey(owner, dir)
	if err != nil {
		return "", err
	}
	if err := s.backend.MakeDir(ctx, key); err != nil {
		return "", fmt.Errorf("%w: mkdir %s: %w", common.ErrStorageWrite, key, err)
	}
	return key, nil
}

// PruneDir removes the physical directory of a logical folder if it is
// empty. Directories shared with other content are left alone.
func (s *Store) PruneDir(ctx context.Context, owner string, dir []string) (bool, error) {
	key, err := DirKey(owner, dir)
	if err != nil {
		return false, err
	}
	return s.PruneKeyDir(ctx, key)
}

// PruneKeyDir is PruneDir for a directory key such as "<owner>/a/b".
func (s *Store) PruneKeyDir(ctx context.Context, key string) (bool, error) {
	pruner, ok := s.backend.(DirPruner)
	if !ok {
		return false, nil
	}
	removed, err := pruner.RemoveEmptyDir(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: rmdir %s: %w", common.ErrStorageWrite, key, err)
	}
	return removed, nil
}

// Verify re-reads the content under key and compares it with checksum.
func (s *Store) Verify(ctx context.Context, key, checksum string) error {
	algorithm, want, err := ParseChecksum(checksum)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrChecksumMismatch, err)
	}
	h, err := NewHasher(algorithm)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrChecksumMismatch, err)
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	if _, err := io.Copy(h, rc); err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrStorageRead, key, err)
	}
	if got := FormatChecksum(algorithm, h.Sum(nil)); got != algorithm+":"+want {
		return fmt.Errorf("%w: %s has %s", common.ErrChecksumMismatch, key, got)
	}
	return nil
}

// URL returns a time-limited download URL for key.
func (s *Store) URL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	signer, ok := s.backend.(URLSigner)
	if !ok {
		return "", fmt.Errorf("%w: backend cannot sign urls", common.ErrNotSupported)
	}
	u, err := signer.SignURL(ctx, key, expiry)
	if err != nil {
		return "", fmt.Errorf("%w: sign %s: %w", common.ErrStorageRead, key, err)
	}
	return u, nil
}

var errSizeMismatch = errors.New("content size differs from declared size")

// countingReader hashes and counts what the backend consumes and refuses
// to yield more than the declared number of bytes.
type countingReader struct {
	r        io.Reader
	h        hash.Hash
	n        int64
	declared int64
	mismatch bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	if c.declared >= 0 {
		remaining := c.declared - c.n
		if remaining <= 0 {
			// anything past the declared size is an error
			var one [1]byte
			n, err := io.ReadFull(c.r, one[:])
			if n > 0 {
				c.mismatch = true
				return 0, errSizeMismatch
			}
			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			return 0, err
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}

	n, err := c.r.Read(p)
	c.n += int64(n)
	_, _ = c.h.Write(p[:n])
	if err == io.EOF && c.declared >= 0 && c.n < c.declared {
		c.mismatch = true
		return n, errSizeMismatch
	}
	return n, err
}

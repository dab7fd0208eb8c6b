package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/kurin/blazer/b2"
)

// b2Bucket is what B2Backend needs from a bucket; blazerBucket adapts
// *b2.Bucket to it.
type b2Bucket interface {
	NewWriter(ctx context.Context, key string) io.WriteCloser
	NewReader(ctx context.Context, key string) io.ReadCloser
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
	AuthURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// B2Options configures a Backblaze B2 store.
type B2Options struct {
	KeyID          string
	ApplicationKey string
	Bucket         string
}

// B2Backend stores objects in a Backblaze B2 bucket.
type B2Backend struct {
	bucket b2Bucket
}

// NewB2Backend authorizes against B2 and opens the configured bucket.
func NewB2Backend(ctx context.Context, opts B2Options) (*B2Backend, error) {
	client, err := b2.NewClient(ctx, opts.KeyID, opts.ApplicationKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create B2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", opts.Bucket, err)
	}
	return &B2Backend{bucket: blazerBucket{bucket}}, nil
}

func (b *B2Backend) Save(ctx context.Context, key string, r io.Reader, size int64) error {
	w := b.bucket.NewWriter(ctx, key)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b *B2Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	ok, err := b.bucket.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, fs.ErrNotExist)
	}
	return b.bucket.NewReader(ctx, key), nil
}

// Delete removes key and every object below "key/".
func (b *B2Backend) Delete(ctx context.Context, key string) (bool, error) {
	deleted := false

	ok, err := b.bucket.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if ok {
		if err := b.bucket.Delete(ctx, key); err != nil {
			return false, err
		}
		deleted = true
	}

	names, err := b.bucket.List(ctx, strings.TrimSuffix(key, "/")+"/")
	if err != nil {
		return deleted, err
	}
	for _, name := range names {
		if err := b.bucket.Delete(ctx, name); err != nil {
			return deleted, err
		}
		deleted = true
	}
	return deleted, nil
}

func (b *B2Backend) Exists(ctx context.Context, key string) (bool, error) {
	return b.bucket.Exists(ctx, key)
}

// MakeDir is a no-op; B2 has a flat namespace.
func (b *B2Backend) MakeDir(ctx context.Context, key string) error {
	return nil
}

// SignURL returns an authorized download URL.
func (b *B2Backend) SignURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return b.bucket.AuthURL(ctx, key, expiry)
}

type blazerBucket struct {
	b *b2.Bucket
}

func (bb blazerBucket) NewWriter(ctx context.Context, key string) io.WriteCloser {
	return bb.b.Object(key).NewWriter(ctx)
}

func (bb blazerBucket) NewReader(ctx context.Context, key string) io.ReadCloser {
	return bb.b.Object(key).NewReader(ctx)
}

func (bb blazerBucket) Delete(ctx context.Context, key string) error {
	return bb.b.Object(key).Delete(ctx)
}

func (bb blazerBucket) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := bb.b.Object(key).Attrs(ctx); err != nil {
		if b2.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (bb blazerBucket) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	iter := bb.b.List(ctx, b2.ListPrefix(prefix))
	for iter.Next() {
		names = append(names, iter.Object().Name())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

func (bb blazerBucket) AuthURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := bb.b.Object(key).AuthURL(ctx, expiry, "")
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory bucket. List pages hold at most pageSize keys.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	pageSize int
	putErr   error
	lastPut  *s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, pageSize: 2}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.lastPut = in
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if len(keys) > f.pageSize {
		keys = keys[:f.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &v4.PresignedHTTPRequest{
		URL: "https://s3.example/" + aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key) + "?X-Amz-Expires=" + opts.Expires.String(),
	}, nil
}

func TestS3Backend_StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store, err := NewStore(newS3Backend(fake, fakePresigner{}, "drive"), ChecksumSHA256)
	require.NoError(t, err)

	obj, err := store.Save(ctx, Destination{Owner: "alice", Dir: []string{"docs"}, Name: "a.txt"}, strings.NewReader("hello"), 5)
	require.NoError(t, err)
	require.NotNil(t, fake.lastPut)
	assert.Equal(t, "drive", aws.ToString(fake.lastPut.Bucket))
	assert.Equal(t, int64(5), aws.ToInt64(fake.lastPut.ContentLength))

	rc, err := store.Open(ctx, obj.Key)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Verify(ctx, obj.Key, obj.Checksum))

	url, err := store.URL(ctx, obj.Key, 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "drive/"+obj.Key)
	assert.Contains(t, url, "X-Amz-Expires=15m0s")
}

func TestS3Backend_OpenMissing(t *testing.T) {
	b := newS3Backend(newFakeS3(), fakePresigner{}, "drive")

	_, err := b.Open(context.Background(), "alice/none")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestS3Backend_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	b := newS3Backend(fake, fakePresigner{}, "drive")

	for _, k := range []string{"alice/a/1", "alice/a/2", "alice/a/b/3", "alice/ab/4", "bob/a/1"} {
		fake.objects[k] = []byte("x")
	}

	ok, err := b.Delete(ctx, "alice/a")
	require.NoError(t, err)
	assert.True(t, ok)

	var left []string
	for k := range fake.objects {
		left = append(left, k)
	}
	sort.Strings(left)
	assert.Equal(t, []string{"alice/ab/4", "bob/a/1"}, left)

	ok, err = b.Delete(ctx, "alice/a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3Backend_Exists(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects["k"] = nil
	b := newS3Backend(fake, fakePresigner{}, "drive")

	ok, err := b.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Exists(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.MakeDir(ctx, "whatever"))
}

func TestS3Backend_PutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("network down")
	store, err := NewStore(newS3Backend(fake, fakePresigner{}, "drive"), ChecksumSHA256)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), Destination{Owner: "alice", Name: "a"}, strings.NewReader("a"), 1)
	require.ErrorIs(t, err, common.ErrStorageWrite)
}

func TestNewS3Backend(t *testing.T) {
	origLoad, origNew := loadAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() { loadAWSConfig, newS3ClientFromConfig = origLoad, origNew })

	var gotOpts s3.Options
	loadAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		var lo config.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{Region: lo.Region}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&gotOpts)
		}
		return s3.NewFromConfig(cfg, optFns...)
	}

	b, err := NewS3Backend(context.Background(), S3Options{
		AccessKey:    "admin",
		SecretKey:    "secret",
		Region:       "eu-central-1",
		Bucket:       "drive",
		BaseEndpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	assert.Equal(t, "drive", b.bucket)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(gotOpts.BaseEndpoint))
	assert.True(t, gotOpts.UsePathStyle)

	loadAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	_, err = NewS3Backend(context.Background(), S3Options{Region: "x"})
	require.Error(t, err)
}

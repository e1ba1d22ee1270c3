package pmtiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

func TestFileFetcherFetchRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.pmtiles")
	if err := os.WriteFile(path, []byte("0123456789"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	f := &FileFetcher{}
	data, tag, err := f.FetchRange(context.Background(), path, 3, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "3456" {
		t.Fatalf("got %q, want %q", data, "3456")
	}
	if tag == "" {
		t.Fatalf("expected a non-empty version tag")
	}
}

func TestFileFetcherFetchAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.pmtiles")
	if err := os.WriteFile(path, []byte("hello world"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	f := &FileFetcher{}
	data, _, err := f.FetchAll(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("got %q", data)
	}
}

func TestFileFetcherNotFound(t *testing.T) {
	f := &FileFetcher{}
	_, _, err := f.FetchRange(context.Background(), filepath.Join(t.TempDir(), "missing.pmtiles"), 0, 4)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileFetcherBaseDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.pmtiles"), []byte("abcdef"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	f := &FileFetcher{BaseDir: dir}
	data, _, err := f.FetchRange(context.Background(), "a.pmtiles", 0, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "abc" {
		t.Fatalf("got %q", data)
	}
}

func TestBucketAndKeyFromPath(t *testing.T) {
	bucket, key, err := bucketAndKeyFromPath("s3://my-bucket/folder/archive.pmtiles")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bucket != "my-bucket" || key != "folder/archive.pmtiles" {
		t.Fatalf("got bucket=%q key=%q", bucket, key)
	}

	if _, _, err := bucketAndKeyFromPath("s3://bucket-only"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

type mockS3Client struct {
	objects map[string][]byte
}

func (m *mockS3Client) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	data, ok := m.objects[key]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "not found"}
	}

	body := data
	if in.Range != nil {
		var start, end int
		if _, err := fmt.Sscanf(*in.Range, "bytes=%d-%d", &start, &end); err != nil {
			return nil, err
		}
		if end >= len(data) {
			end = len(data) - 1
		}
		body = data[start : end+1]
	}

	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(body)),
		ETag: aws.String(`"abc123"`),
	}, nil
}

func TestS3FetcherFetchRange(t *testing.T) {
	client := &mockS3Client{objects: map[string][]byte{
		"my-bucket/archive.pmtiles": []byte("0123456789"),
	}}
	f := &S3Fetcher{client: client}

	data, tag, err := f.FetchRange(context.Background(), "s3://my-bucket/archive.pmtiles", 2, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "234" {
		t.Fatalf("got %q, want %q", data, "234")
	}
	if tag != `"abc123"` {
		t.Fatalf("got tag %q", tag)
	}
}

func TestDispatchFetcherRoutesByScheme(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "local.pmtiles"), []byte("localbytes"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	client := &mockS3Client{objects: map[string][]byte{
		"bucket/remote.pmtiles": []byte("remotebytes"),
	}}

	d := NewDispatchFetcher(&FileFetcher{}, &S3Fetcher{client: client})

	data, _, err := d.FetchRange(context.Background(), filepath.Join(dir, "local.pmtiles"), 0, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "local" {
		t.Fatalf("got %q", data)
	}

	data, _, err = d.FetchRange(context.Background(), "s3://bucket/remote.pmtiles", 0, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "remote" {
		t.Fatalf("got %q", data)
	}
}

func TestDispatchFetcherMissingBackend(t *testing.T) {
	d := NewDispatchFetcher(&FileFetcher{}, nil)
	if _, _, err := d.FetchRange(context.Background(), "s3://bucket/key", 0, 1); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

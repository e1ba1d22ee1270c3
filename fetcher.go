package pmtiles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Fetcher is the blob-fetching capability the archive access state
// machine consumes. Both operations return the object's version tag when
// the backend supplies one (an S3 ETag, say) and "" otherwise; the tag is
// never required for correctness, only surfaced for callers that want it.
type Fetcher interface {
	FetchRange(ctx context.Context, path string, offset, length uint64) ([]byte, string, error)
	FetchAll(ctx context.Context, path string) ([]byte, string, error)
}

// FileFetcher reads archives from the local filesystem. Per call it
// opens, reads, and closes the file — no descriptor is held between
// calls, so a FileFetcher can be shared across goroutines and across
// many distinct archive paths without bound.
type FileFetcher struct {
	// BaseDir, when non-empty, is joined with every path before opening
	// it, so callers can pass archive-relative paths instead of having
	// the server's directory layout leak into request handling.
	BaseDir string
}

func (f *FileFetcher) resolve(path string) string {
	if f.BaseDir == "" {
		return path
	}
	return f.BaseDir + string(os.PathSeparator) + path
}

func (f *FileFetcher) FetchRange(_ context.Context, path string, offset, length uint64) ([]byte, string, error) {
	file, err := os.Open(f.resolve(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, "", fmt.Errorf("%w: opening %s: %v", ErrIO, path, err)
	}
	defer file.Close()

	buf := make([]byte, length)
	if _, err := file.ReadAt(buf, int64(offset)); err != nil { //nolint:gosec
		return nil, "", fmt.Errorf("%w: reading %s at %d: %v", ErrIO, path, offset, err)
	}

	info, err := file.Stat()
	tag := ""
	if err == nil {
		tag = fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano())
	}
	return buf, tag, nil
}

func (f *FileFetcher) FetchAll(_ context.Context, path string) ([]byte, string, error) {
	file, err := os.Open(f.resolve(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, "", fmt.Errorf("%w: opening %s: %v", ErrIO, path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
	}

	info, err := file.Stat()
	tag := ""
	if err == nil {
		tag = fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano())
	}
	return data, tag, nil
}

// s3API is the subset of *s3.Client used by S3Fetcher, narrowed to an
// interface so tests can substitute a mock.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads archives out of an S3-compatible object store. path is
// expected in "s3://bucket/key" form (or bare "bucket/key"); see
// bucketAndKeyFromPath.
type S3Fetcher struct {
	client s3API
}

// NewS3Fetcher builds an S3Fetcher using the default AWS credential chain
// (environment, shared config, instance role — whatever
// config.LoadDefaultConfig resolves).
func NewS3Fetcher(ctx context.Context) (*S3Fetcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", ErrIO, err)
	}
	return &S3Fetcher{client: s3.NewFromConfig(cfg)}, nil
}

func bucketAndKeyFromPath(path string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(path, "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: invalid s3 path %q", ErrMalformed, path)
	}
	return parts[0], parts[1], nil
}

func (f *S3Fetcher) FetchRange(ctx context.Context, path string, offset, length uint64) ([]byte, string, error) {
	bucket, key, err := bucketAndKeyFromPath(path)
	if err != nil {
		return nil, "", err
	}

	// Inclusive byte range per RFC 7233, matching the end offset an HTTP
	// server expects — not offset+length, which would request one byte
	// too many.
	rng := fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(rng),
	})
	if err != nil {
		return nil, "", classifyS3Error(path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading s3://%s/%s: %v", ErrIO, bucket, key, err)
	}
	return data, aws.ToString(out.ETag), nil
}

func (f *S3Fetcher) FetchAll(ctx context.Context, path string) ([]byte, string, error) {
	bucket, key, err := bucketAndKeyFromPath(path)
	if err != nil {
		return nil, "", err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", classifyS3Error(path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading s3://%s/%s: %v", ErrIO, bucket, key, err)
	}
	return data, aws.ToString(out.ETag), nil
}

func classifyS3Error(path string, err error) error {
	var nf *s3.NoSuchKey
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return fmt.Errorf("%w: fetching %s: %v", ErrIO, path, err)
}

// dispatchFetcher routes a fetch to FileFetcher or S3Fetcher by the
// path's URI scheme, so a single Archive can serve a mix of local and
// object-store archives. This is the concrete shape of "the
// implementation dispatches on path scheme" — the archive access state
// machine only ever sees the Fetcher interface.
type dispatchFetcher struct {
	file *FileFetcher
	s3   *S3Fetcher
}

// NewDispatchFetcher builds a Fetcher that sends "s3://..." paths to s3f
// and everything else to file. Either may be nil; a nil backend makes
// paths of that scheme fail with ErrUnsupported instead of panicking.
func NewDispatchFetcher(file *FileFetcher, s3f *S3Fetcher) Fetcher {
	return &dispatchFetcher{file: file, s3: s3f}
}

func (d *dispatchFetcher) backendFor(path string) (Fetcher, error) {
	u, err := ParseURI(path)
	if err != nil {
		return nil, err
	}
	switch u.scheme {
	case S3Scheme:
		if d.s3 == nil {
			return nil, fmt.Errorf("%w: no S3 backend configured for %s", ErrUnsupported, path)
		}
		return d.s3, nil
	default:
		if d.file == nil {
			return nil, fmt.Errorf("%w: no file backend configured for %s", ErrUnsupported, path)
		}
		return d.file, nil
	}
}

func (d *dispatchFetcher) FetchRange(ctx context.Context, path string, offset, length uint64) ([]byte, string, error) {
	backend, err := d.backendFor(path)
	if err != nil {
		return nil, "", err
	}
	return backend.FetchRange(ctx, path, offset, length)
}

func (d *dispatchFetcher) FetchAll(ctx context.Context, path string) ([]byte, string, error) {
	backend, err := d.backendFor(path)
	if err != nil {
		return nil, "", err
	}
	return backend.FetchAll(ctx, path)
}

package loader

import (
	"context"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// A Source opens raw loan files by name.
type Source interface {
	// Open returns the file contents and its size in bytes, or -1 if unknown.
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)

	// List returns the names of files ending in suffix, sorted.
	List(ctx context.Context, suffix string) ([]string, error)
}

// Dir is a local directory of loan files.
type Dir string

func (d Dir) Open(_ context.Context, name string) (io.ReadCloser, int64, error) {
	filePath := filepath.Join(string(d), name)
	file, err := os.Open(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %q: %w", filePath, err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, fmt.Errorf("getting stat for %q: %w", filePath, err)
	}
	return file, stat.Size(), nil
}

func (d Dir) List(_ context.Context, suffix string) ([]string, error) {
	entries, err := os.ReadDir(string(d))
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", string(d), err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// S3API is the subset of the S3 client the loader calls.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3 reads loan files stored under Prefix in Bucket.
type S3 struct {
	Client S3API
	Bucket string
	Prefix string
}

// NewS3 builds an S3 source using the default credential chain.
func NewS3(ctx context.Context, region, bucket, prefix string) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3{Client: s3.NewFromConfig(cfg), Bucket: bucket, Prefix: prefix}, nil
}

func (s *S3) key(name string) string {
	return path.Join(s.Prefix, name)
}

func (s *S3) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	key := s.key(name)
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("getting s3://%s/%s: %w", s.Bucket, key, err)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

// List returns object names relative to Prefix. Objects in nested prefixes are
// skipped.
func (s *S3) List(ctx context.Context, suffix string) ([]string, error) {
	prefix := s.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	paginator := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", s.Bucket, prefix, err)
		}
		for _, object := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(object.Key), prefix)
			if name == "" || strings.Contains(name, "/") || !strings.HasSuffix(name, suffix) {
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

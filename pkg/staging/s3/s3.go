package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/influence/pkg/staging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectAPI is the part of *s3.Client the file store needs.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// BucketFileStore reads staged files from an S3 bucket below an optional
// key prefix. It works with S3 compatible stores such as MinIO.
type BucketFileStore struct {
	bucket string
	prefix string
	client ObjectAPI
}

// NewBucketFileStoreWithClient creates a file store using an existing client.
func NewBucketFileStoreWithClient(bucket, prefix string, client ObjectAPI) *BucketFileStore {
	return &BucketFileStore{
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		client: client,
	}
}

// NewBucketFileStoreParams configures a bucket file store.
//
// Endpoint allows overriding the S3 endpoint for S3 compatible storage.
// Prefix is prepended to every staged path.
type NewBucketFileStoreParams struct {
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewBucketFileStore creates a file store with static credentials.
func NewBucketFileStore(ctx context.Context, params NewBucketFileStoreParams) (*BucketFileStore, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(params.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	}
	if params.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(params.Endpoint))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return NewBucketFileStoreWithClient(params.Bucket, params.Prefix, client), nil
}

// NewSource is a staging source over the bucket.
func NewSource(ctx context.Context, params NewBucketFileStoreParams) (*staging.FileSource, error) {
	files, err := NewBucketFileStore(ctx, params)
	if err != nil {
		return nil, err
	}
	return staging.NewFileSource(files), nil
}

func (s *BucketFileStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// List returns the object names directly below prefix, relative to the
// store prefix.
func (s *BucketFileStore) List(ctx context.Context, prefix string) ([]string, error) {
	dir := s.key(prefix) + "/"
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(dir),
	}

	var names []string
	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list objects with prefix %s: %w", dir, err)
		}

		for _, obj := range out.Contents {
			if obj.Key == nil {
				continue
			}
			rest := strings.TrimPrefix(*obj.Key, dir)
			if rest == "" || strings.Contains(rest, "/") {
				continue
			}
			names = append(names, path.Join(prefix, rest))
		}

		if out.IsTruncated != nil && *out.IsTruncated {
			input.ContinuationToken = out.NextContinuationToken
		} else {
			break
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *BucketFileStore) Get(ctx context.Context, name string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", name, err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, out.Body); err != nil {
		return nil, fmt.Errorf("read object %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

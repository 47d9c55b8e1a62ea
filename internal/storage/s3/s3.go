package s3store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dev-tams/dirkit/internal/storage"
)

// API is the subset of *s3.Client the backend calls.
type API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Backend treats "/"-separated key prefixes under one bucket as directories.
// Paths handed to it are relative to the configured prefix.
type Backend struct {
	name   string
	bucket string
	prefix string
	client API
}

type Options struct {
	Name      string
	Bucket    string
	Region    string
	Prefix    string
	AccessKey string
	SecretKey string
}

func New(ctx context.Context, opt Options) (*Backend, error) {
	if opt.Bucket == "" || opt.Region == "" {
		return nil, fmt.Errorf("s3: bucket and region are required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opt.Region)}
	if opt.AccessKey != "" || opt.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opt.AccessKey, opt.SecretKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewWithClient(opt.Name, opt.Bucket, opt.Prefix, s3.NewFromConfig(cfg)), nil
}

func NewWithClient(name, bucket, prefix string, client API) *Backend {
	return &Backend{
		name:   name,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		client: client,
	}
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) Join(elem ...string) string { return path.Join(elem...) }

func (b *Backend) key(p string) string {
	p = strings.Trim(p, "/")
	switch {
	case b.prefix == "":
		return p
	case p == "" || p == ".":
		return b.prefix
	default:
		return path.Join(b.prefix, p)
	}
}

// ReadDirNames returns the objects directly under dir. Deeper keys, which
// S3 reports as common prefixes, are not entries and are skipped.
func (b *Backend) ReadDirNames(ctx context.Context, dir string) ([]string, error) {
	prefix := b.key(dir)
	if prefix != "" && prefix != "." {
		prefix += "/"
	} else {
		prefix = ""
	}

	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var names []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, b.wrap("list", prefix, err)
		}
		for _, obj := range page.Contents {
			if name := strings.TrimPrefix(aws.ToString(obj.Key), prefix); name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func (b *Backend) Lstat(ctx context.Context, p string) (storage.EntryInfo, error) {
	key := b.key(p)
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return storage.EntryInfo{}, b.wrap("head", key, err)
	}

	return storage.EntryInfo{
		Size:    aws.ToInt64(out.ContentLength),
		ModTime: aws.ToTime(out.LastModified),
	}, nil
}

// Remove deletes the object. S3 reports success for keys that do not exist.
func (b *Backend) Remove(ctx context.Context, p string) error {
	key := b.key(p)
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return b.wrap("delete", key, err)
	}
	return nil
}

func (b *Backend) wrap(op, key string, err error) error {
	loc := fmt.Sprintf("s3://%s/%s", b.bucket, key)
	if isNotFound(err) {
		return fmt.Errorf("%s %s: %w: %w", op, loc, fs.ErrNotExist, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s %s: %s: %s: %w", op, loc, apiErr.ErrorCode(), apiErr.ErrorMessage(), err)
	}
	return fmt.Errorf("%s %s: %w", op, loc, err)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}

package app

import (
	"context"
	"fmt"

	"github.com/dev-tams/dirkit/internal/config"
	"github.com/dev-tams/dirkit/internal/storage"
	"github.com/dev-tams/dirkit/internal/storage/local"
	s3store "github.com/dev-tams/dirkit/internal/storage/s3"
)

// BackendFunc builds the storage a target is pruned through.
type BackendFunc func(ctx context.Context, tg config.TargetConfig) (storage.Backend, error)

// NewBackend builds a Backend named after the target.
func NewBackend(ctx context.Context, tg config.TargetConfig) (storage.Backend, error) {
	switch tg.Type {
	case "local":
		return local.New(tg.Name), nil

	case "s3":
		if tg.S3 == nil {
			return nil, fmt.Errorf("target %s: s3 config missing", tg.Name)
		}
		s, err := s3store.New(ctx, s3store.Options{
			Name:      tg.Name,
			Bucket:    tg.S3.Bucket,
			Region:    tg.S3.Region,
			Prefix:    tg.S3.Prefix,
			AccessKey: tg.S3.AccessKey,
			SecretKey: tg.S3.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", tg.Name, err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("target %s: unknown type %q", tg.Name, tg.Type)
	}
}

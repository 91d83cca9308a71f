// Package storage persists snapshot bundles as whole objects in a bucket,
// either on S3-compatible object storage or on local disk.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/stackvista/index-backup-cli/internal/config"
)

// ObjectInfo describes one stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is the minimal object storage contract used by the backup service
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns every object whose key starts with prefix, recursively
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// New builds the backend selected by cfg.Backend
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendS3:
		return NewS3Store(cfg)
	case config.BackendLocal:
		return NewLocalStore(cfg.LocalRoot, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// Package backup snapshots Elasticsearch indices to object storage and
// restores them into new indices.
package backup

import (
	"errors"
	"time"

	"github.com/stackvista/index-backup-cli/internal/elasticsearch"
	"github.com/stackvista/index-backup-cli/internal/logger"
	"github.com/stackvista/index-backup-cli/internal/storage"
)

var (
	ErrIndexNotFound    = errors.New("index does not exist")
	ErrIndexExists      = errors.New("index already exists")
	ErrUnknownFunction  = errors.New("unknown function")
	ErrMissingParameter = errors.New("missing parameter")
)

// keyTimeFormat is the UTC timestamp suffix of snapshot keys (YYYYMMDDHHMMSS)
const keyTimeFormat = "20060102150405"

// Options tunes export behaviour
type Options struct {
	// Environment is the first path segment of every snapshot key
	Environment string
	// PageSize > 0 exports the whole index with the scroll API; 0 keeps the
	// single default search page
	PageSize        int
	ScrollKeepAlive time.Duration
	// Now defaults to time.Now
	Now func() time.Time
}

// Service runs exports, imports and listings against one cluster and one bucket
type Service struct {
	es    elasticsearch.Interface
	store storage.Store
	log   *logger.Logger
	opts  Options
}

// New creates a Service
func New(es elasticsearch.Interface, store storage.Store, log *logger.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ScrollKeepAlive <= 0 {
		opts.ScrollKeepAlive = time.Minute
	}
	return &Service{
		es:    es,
		store: store,
		log:   log,
		opts:  opts,
	}
}

package elasticsearch

import (
	"context"
	"encoding/json"
	"time"
)

// Interface defines the contract for Elasticsearch client operations
// This interface allows for easy mocking in tests
type Interface interface {
	// Catalog
	ListIndices(ctx context.Context) ([]IndexInfo, error)

	// Export
	GetMapping(ctx context.Context, index string) (json.RawMessage, error)
	Search(ctx context.Context, index string) ([]Hit, error)
	ScrollAll(ctx context.Context, index string, size int, keepAlive time.Duration, fn func([]Hit) error) error

	// Import
	CreateIndex(ctx context.Context, index string, body []byte) error
	Bulk(ctx context.Context, body []byte) (*BulkResult, error)
}

// Ensure *Client implements Interface
var _ Interface = (*Client)(nil)

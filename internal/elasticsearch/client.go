// Package elasticsearch provides a client for the Elasticsearch REST calls
// used to snapshot and restore an index: cat indices, mappings, search,
// scroll, index creation and bulk loading.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/tidwall/gjson"
)

// ErrIndexAlreadyExists is returned when creating an index whose name is taken
var ErrIndexAlreadyExists = errors.New("index already exists")

// Client represents an Elasticsearch client
type Client struct {
	es *elasticsearch.Client
}

// IndexInfo is one row of the cat indices API
type IndexInfo struct {
	Index     string `json:"index"`
	DocsCount string `json:"docs.count"`
}

// Hit is a single search hit
type Hit struct {
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
}

type searchResponse struct {
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

// BulkFailure describes a bulk item the cluster rejected
type BulkFailure struct {
	ID     string
	Status int
	Type   string
	Reason string
}

// BulkResult summarizes a bulk response
type BulkResult struct {
	Took   int64
	Errors bool
	Items  int
	Failed []BulkFailure
}

// Option configures the client
type Option func(cfg *elasticsearch.Config)

// WithBasicAuth sets credentials sent with every request
func WithBasicAuth(username, password string) Option {
	return func(cfg *elasticsearch.Config) {
		cfg.Username = username
		cfg.Password = password
	}
}

// NewClient creates a new Elasticsearch client
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{baseURL},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	return &Client{
		es: es,
	}, nil
}

// ListIndices retrieves the name and document count of every index
func (c *Client) ListIndices(ctx context.Context) ([]IndexInfo, error) {
	res, err := c.es.Cat.Indices(
		c.es.Cat.Indices.WithContext(ctx),
		c.es.Cat.Indices.WithH("index,docs.count"),
		c.es.Cat.Indices.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list indices: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(res)
	}

	var indices []IndexInfo
	if err := json.NewDecoder(res.Body).Decode(&indices); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return indices, nil
}

// GetMapping returns the mapping object stored under the index name in
// the get mapping response, i.e. {"mappings": {...}}
func (c *Client) GetMapping(ctx context.Context, index string) (json.RawMessage, error) {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithContext(ctx),
		c.es.Indices.GetMapping.WithIndex(index),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(res)
	}

	var mappings map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&mappings); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	mapping, ok := mappings[index]
	if !ok {
		return nil, fmt.Errorf("mapping response does not contain index %s", index)
	}

	return mapping, nil
}

// Search runs one search against index with no query and no paging
// parameters, so only the cluster's default first page is returned
func (c *Client) Search(ctx context.Context, index string) ([]Hit, error) {
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(res)
	}

	var resp searchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return resp.Hits.Hits, nil
}

// ScrollAll walks every document of index in pages of size, calling fn
// once per non-empty page. The scroll context is cleared before returning.
func (c *Client) ScrollAll(ctx context.Context, index string, size int, keepAlive time.Duration, fn func([]Hit) error) error {
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithSize(size),
		c.es.Search.WithScroll(keepAlive),
		c.es.Search.WithSort("_doc"),
	)
	if err != nil {
		return fmt.Errorf("failed to start scroll: %w", err)
	}

	page, err := decodeSearch(res)
	if err != nil {
		return err
	}

	scrollID := page.ScrollID
	defer func() {
		if scrollID != "" {
			c.clearScroll(ctx, scrollID)
		}
	}()

	for len(page.Hits.Hits) > 0 {
		if err := fn(page.Hits.Hits); err != nil {
			return err
		}

		body, err := json.Marshal(map[string]string{
			"scroll":    formatKeepAlive(keepAlive),
			"scroll_id": scrollID,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal scroll request: %w", err)
		}

		res, err := c.es.Scroll(
			c.es.Scroll.WithContext(ctx),
			c.es.Scroll.WithBody(bytes.NewReader(body)),
		)
		if err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}

		page, err = decodeSearch(res)
		if err != nil {
			return err
		}
		if page.ScrollID != "" {
			scrollID = page.ScrollID
		}
	}

	return nil
}

// formatKeepAlive renders d in a unit Elasticsearch accepts
func formatKeepAlive(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}

func decodeSearch(res *esapi.Response) (*searchResponse, error) {
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(res)
	}

	var page searchResponse
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &page, nil
}

// clearScroll releases a scroll context; failures only leak the context until keep-alive expires
func (c *Client) clearScroll(ctx context.Context, scrollID string) {
	body, err := json.Marshal(map[string][]string{"scroll_id": {scrollID}})
	if err != nil {
		return
	}

	res, err := c.es.ClearScroll(
		c.es.ClearScroll.WithContext(ctx),
		c.es.ClearScroll.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return
	}
	_ = res.Body.Close()
}

// CreateIndex creates index with body (mappings and settings) as the request body
func (c *Client) CreateIndex(ctx context.Context, index string, body []byte) error {
	res, err := c.es.Indices.Create(
		index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		if gjson.GetBytes(data, "error.type").String() == "resource_already_exists_exception" {
			return fmt.Errorf("%w: %s", ErrIndexAlreadyExists, index)
		}
		return fmt.Errorf("elasticsearch returned error [%s]: %s", res.Status(), strings.TrimSpace(string(data)))
	}

	return nil
}

// Bulk sends a prepared bulk body in one request and reports per-item failures
func (c *Client) Bulk(ctx context.Context, body []byte) (*BulkResult, error) {
	res, err := c.es.Bulk(
		bytes.NewReader(body),
		c.es.Bulk.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(res)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return parseBulkResponse(data), nil
}

// parseBulkResponse extracts the summary and every failed item. Each item
// is an object keyed by its action name (create, index, ...).
func parseBulkResponse(data []byte) *BulkResult {
	parsed := gjson.ParseBytes(data)
	result := &BulkResult{
		Took:   parsed.Get("took").Int(),
		Errors: parsed.Get("errors").Bool(),
	}

	parsed.Get("items").ForEach(func(_, item gjson.Result) bool {
		result.Items++
		item.ForEach(func(_, action gjson.Result) bool {
			if action.Get("error").Exists() {
				result.Failed = append(result.Failed, BulkFailure{
					ID:     action.Get("_id").String(),
					Status: int(action.Get("status").Int()),
					Type:   action.Get("error.type").String(),
					Reason: action.Get("error.reason").String(),
				})
			}
			return true
		})
		return true
	})

	return result
}

// responseError turns an error response into an error carrying status and body
func responseError(res *esapi.Response) error {
	data, _ := io.ReadAll(res.Body)
	return fmt.Errorf("elasticsearch returned error [%s]: %s", res.Status(), strings.TrimSpace(string(data)))
}

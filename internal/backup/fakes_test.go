package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stackvista/index-backup-cli/internal/elasticsearch"
	"github.com/stackvista/index-backup-cli/internal/logger"
	"github.com/stackvista/index-backup-cli/internal/storage"
)

// fakeCluster is an in-memory elasticsearch.Interface. CreateIndex and Bulk
// mutate it so exports and imports can be chained.
type fakeCluster struct {
	indices  []elasticsearch.IndexInfo
	mappings map[string]json.RawMessage
	docs     map[string][]elasticsearch.Hit

	listErr  error
	bulkResp *elasticsearch.BulkResult
	// createErr is returned by CreateIndex when set
	createErr error

	created     map[string][]byte
	bulkBodies  [][]byte
	searchCalls int
	scrollSizes []int
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		mappings: map[string]json.RawMessage{},
		docs:     map[string][]elasticsearch.Hit{},
		created:  map[string][]byte{},
	}
}

func (f *fakeCluster) addIndex(name string, mapping string, docs ...elasticsearch.Hit) {
	f.indices = append(f.indices, elasticsearch.IndexInfo{Index: name, DocsCount: fmt.Sprint(len(docs))})
	f.mappings[name] = json.RawMessage(mapping)
	f.docs[name] = docs
}

func (f *fakeCluster) ListIndices(_ context.Context) ([]elasticsearch.IndexInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.indices, nil
}

func (f *fakeCluster) GetMapping(_ context.Context, index string) (json.RawMessage, error) {
	mapping, ok := f.mappings[index]
	if !ok {
		return nil, fmt.Errorf("no mapping for %s", index)
	}
	return mapping, nil
}

func (f *fakeCluster) Search(_ context.Context, index string) ([]elasticsearch.Hit, error) {
	f.searchCalls++
	docs := f.docs[index]
	// The cluster's default page size
	if len(docs) > 10 {
		docs = docs[:10]
	}
	return docs, nil
}

func (f *fakeCluster) ScrollAll(_ context.Context, index string, size int, _ time.Duration, fn func([]elasticsearch.Hit) error) error {
	f.scrollSizes = append(f.scrollSizes, size)
	docs := f.docs[index]
	for start := 0; start < len(docs); start += size {
		end := start + size
		if end > len(docs) {
			end = len(docs)
		}
		if err := fn(docs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeCluster) CreateIndex(_ context.Context, index string, body []byte) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, idx := range f.indices {
		if idx.Index == index {
			return fmt.Errorf("%w: %s", elasticsearch.ErrIndexAlreadyExists, index)
		}
	}
	f.created[index] = body
	f.indices = append(f.indices, elasticsearch.IndexInfo{Index: index, DocsCount: "0"})
	f.mappings[index] = json.RawMessage(body)
	return nil
}

// Bulk applies create actions from a CRLF-delimited body
func (f *fakeCluster) Bulk(_ context.Context, body []byte) (*elasticsearch.BulkResult, error) {
	f.bulkBodies = append(f.bulkBodies, body)
	if f.bulkResp != nil {
		return f.bulkResp, nil
	}

	lines := strings.Split(strings.TrimSuffix(string(body), "\r\n"), "\r\n")
	result := &elasticsearch.BulkResult{}
	for i := 0; i+1 < len(lines); i += 2 {
		var action bulkAction
		if err := json.Unmarshal([]byte(lines[i]), &action); err != nil {
			return nil, err
		}
		f.docs[action.Create.Index] = append(f.docs[action.Create.Index], elasticsearch.Hit{
			ID:     action.Create.ID,
			Source: json.RawMessage(lines[i+1]),
		})
		result.Items++
	}
	return result, nil
}

// memStore is an in-memory storage.Store
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = bytes.Clone(data)
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, &storage.Error{Code: storage.CodeObjectNotFound, Key: key}
	}
	return data, nil
}

func (m *memStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var objects []storage.ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	// Reverse order so callers have to sort
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key > objects[j].Key })
	return objects, nil
}

var fixedNow = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func newTestService(es elasticsearch.Interface, store storage.Store, buf *bytes.Buffer, opts Options) *Service {
	if opts.Environment == "" {
		opts.Environment = "dev"
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	return New(es, store, logger.NewWithWriter(buf, false, true), opts)
}

func hit(id, source string) elasticsearch.Hit {
	return elasticsearch.Hit{ID: id, Source: json.RawMessage(source)}
}

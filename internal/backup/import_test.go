package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stackvista/index-backup-cli/internal/elasticsearch"
	"github.com/stackvista/index-backup-cli/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storedBundle = `{
	"mapping": {"mappings": {"properties": {"name": {"type": "keyword"}}}},
	"data": [
		{"id": "a", "source": {"name": "apple", "tags": ["red", "fruit"]}},
		{"id": "b", "source": {"name": "pear"}}
	]
}`

func TestService_Import(t *testing.T) {
	es := newFakeCluster()
	store := newMemStore()
	store.objects["dev/products_20240305140709.json"] = []byte(storedBundle)
	var logs bytes.Buffer
	svc := newTestService(es, store, &logs, Options{})

	result, err := svc.Import(context.Background(), "products-restored", "dev/products_20240305140709.json")

	require.NoError(t, err)
	assert.Equal(t, "products-restored", result.Index)
	assert.Equal(t, 2, result.Documents)
	require.NotNil(t, result.Bulk)
	assert.Equal(t, 2, result.Bulk.Items)

	assert.JSONEq(t, `{"mappings": {"properties": {"name": {"type": "keyword"}}}}`, string(es.created["products-restored"]))
	require.Len(t, es.bulkBodies, 1)
	assert.Equal(t,
		"{\"create\":{\"_index\":\"products-restored\",\"_id\":\"a\"}}\r\n"+
			"{\"name\":\"apple\",\"tags\":[\"red\",\"fruit\"]}\r\n"+
			"{\"create\":{\"_index\":\"products-restored\",\"_id\":\"b\"}}\r\n"+
			"{\"name\":\"pear\"}\r\n",
		string(es.bulkBodies[0]))
}

func TestService_Import_ExistingIndex(t *testing.T) {
	es := newFakeCluster()
	es.addIndex("products", productsMapping)
	store := newMemStore()
	store.objects["dev/products.json"] = []byte(storedBundle)
	var logs bytes.Buffer
	svc := newTestService(es, store, &logs, Options{})

	result, err := svc.Import(context.Background(), "products", "dev/products.json")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexExists)
	assert.Nil(t, result)
	assert.Empty(t, es.created)
	assert.Empty(t, es.bulkBodies)
	assert.Contains(t, logs.String(), "Index products already exists")
}

func TestService_Import_CreateRace(t *testing.T) {
	es := newFakeCluster()
	// Another writer created the index between the catalog check and the create call
	es.createErr = fmt.Errorf("%w: products", elasticsearch.ErrIndexAlreadyExists)
	store := newMemStore()
	store.objects["dev/products.json"] = []byte(storedBundle)
	svc := newTestService(es, store, &bytes.Buffer{}, Options{})

	_, err := svc.Import(context.Background(), "products", "dev/products.json")

	assert.ErrorIs(t, err, ErrIndexExists)
	assert.Empty(t, es.bulkBodies)
}

func TestService_Import_MissingObject(t *testing.T) {
	es := newFakeCluster()
	svc := newTestService(es, newMemStore(), &bytes.Buffer{}, Options{})

	_, err := svc.Import(context.Background(), "restored", "dev/missing.json")

	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	assert.Empty(t, es.created)
}

func TestService_Import_Errors(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		key     string
		object  string
		wantErr error
		wantMsg string
	}{
		{
			name:    "missing target",
			key:     "dev/x.json",
			wantErr: ErrMissingParameter,
		},
		{
			name:    "missing key",
			target:  "restored",
			wantErr: ErrMissingParameter,
		},
		{
			name:    "malformed bundle",
			target:  "restored",
			key:     "dev/x.json",
			object:  `{"mapping": {`,
			wantMsg: "failed to parse snapshot dev/x.json",
		},
		{
			name:    "malformed document source",
			target:  "restored",
			key:     "dev/x.json",
			object:  `{"mapping": {}, "data": [{"id": "1"}]}`,
			wantMsg: "failed to prepare documents",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			es := newFakeCluster()
			store := newMemStore()
			if tt.object != "" {
				store.objects[tt.key] = []byte(tt.object)
			}
			svc := newTestService(es, store, &bytes.Buffer{}, Options{})

			_, err := svc.Import(context.Background(), tt.target, tt.key)

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			assert.Empty(t, es.created)
			assert.Empty(t, es.bulkBodies)
		})
	}
}

func TestService_Import_NoDocuments(t *testing.T) {
	es := newFakeCluster()
	store := newMemStore()
	store.objects["dev/empty.json"] = []byte(`{"mapping":{"mappings":{}},"data":[]}`)
	svc := newTestService(es, store, &bytes.Buffer{}, Options{})

	result, err := svc.Import(context.Background(), "restored", "dev/empty.json")

	require.NoError(t, err)
	assert.Zero(t, result.Documents)
	assert.Nil(t, result.Bulk)
	assert.Contains(t, es.created, "restored")
	assert.Empty(t, es.bulkBodies)
}

func TestService_Import_BulkFailuresAreReported(t *testing.T) {
	es := newFakeCluster()
	es.bulkResp = &elasticsearch.BulkResult{
		Errors: true,
		Items:  2,
		Failed: []elasticsearch.BulkFailure{
			{ID: "b", Status: 400, Type: "mapper_parsing_exception", Reason: "failed to parse field [name]"},
		},
	}
	store := newMemStore()
	store.objects["dev/products.json"] = []byte(storedBundle)
	var logs bytes.Buffer
	svc := newTestService(es, store, &logs, Options{})

	result, err := svc.Import(context.Background(), "restored", "dev/products.json")

	require.NoError(t, err)
	assert.True(t, result.Bulk.Errors)
	assert.Len(t, result.Bulk.Failed, 1)
	assert.Contains(t, logs.String(), "Warning: Document b rejected (400 mapper_parsing_exception)")
	assert.Contains(t, logs.String(), "Loaded 1 of 2 documents")
}

func TestBuildBulkPayload(t *testing.T) {
	tests := []struct {
		name    string
		records []DocumentRecord
	}{
		{name: "no records"},
		{
			name:    "one record",
			records: []DocumentRecord{{ID: "1", Source: json.RawMessage(`{"a": 1}`)}},
		},
		{
			name: "several records with multi-line sources",
			records: []DocumentRecord{
				{ID: "1", Source: json.RawMessage("{\n  \"a\": 1\n}")},
				{ID: "two", Source: json.RawMessage(`{"nested": {"b": [1, 2]}}`)},
				{ID: "3", Source: json.RawMessage(`{}`)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := BuildBulkPayload("target", tt.records)
			require.NoError(t, err)

			if len(tt.records) == 0 {
				assert.Empty(t, payload)
				return
			}

			body := string(payload)
			require.True(t, strings.HasSuffix(body, "\r\n"))
			lines := strings.Split(strings.TrimSuffix(body, "\r\n"), "\r\n")
			require.Len(t, lines, 2*len(tt.records))

			for i, rec := range tt.records {
				var action map[string]map[string]string
				require.NoError(t, json.Unmarshal([]byte(lines[2*i]), &action))
				assert.Equal(t, map[string]string{"_index": "target", "_id": rec.ID}, action["create"])

				assert.NotContains(t, lines[2*i+1], "\n")
				assert.JSONEq(t, string(rec.Source), lines[2*i+1])
			}
		})
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	es := newFakeCluster()
	es.addIndex("products", productsMapping,
		hit("a", `{"name":"apple","price":1.5}`),
		hit("b", `{"name":"pear","price":2}`),
		hit("c", `{"name":"plum","price":0.5}`),
	)
	store := newMemStore()
	svc := newTestService(es, store, &bytes.Buffer{}, Options{})
	ctx := context.Background()

	exported, err := svc.Export(ctx, "products")
	require.NoError(t, err)

	imported, err := svc.Import(ctx, "products-copy", exported.Key)
	require.NoError(t, err)

	assert.Equal(t, len(exported.Bundle.Data), imported.Documents)
	assert.JSONEq(t, string(exported.Bundle.Mapping), string(es.mappings["products-copy"]))
	require.Len(t, es.docs["products-copy"], 3)
	for i, doc := range es.docs["products-copy"] {
		assert.Equal(t, es.docs["products"][i].ID, doc.ID)
		assert.JSONEq(t, string(es.docs["products"][i].Source), string(doc.Source))
	}
}

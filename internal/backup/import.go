package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stackvista/index-backup-cli/internal/elasticsearch"
)

// bulkLineEnd terminates every line of the bulk body
const bulkLineEnd = "\r\n"

type bulkAction struct {
	Create bulkTarget `json:"create"`
}

type bulkTarget struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// Import restores the snapshot stored at key into a new index named target.
// An existing target is never touched.
func (s *Service) Import(ctx context.Context, target, key string) (*ImportResult, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: target index", ErrMissingParameter)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: snapshot path", ErrMissingParameter)
	}
	log := s.log.With("index", target)

	exists, err := s.HasIndex(ctx, target)
	if err != nil {
		return nil, err
	}
	if exists {
		log.Warningf("Index %s already exists", target)
		return nil, fmt.Errorf("%w: %s", ErrIndexExists, target)
	}

	payload, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}

	var bundle Bundle
	if err := json.Unmarshal(payload, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", key, err)
	}

	body, err := BuildBulkPayload(target, bundle.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare documents of %s: %w", key, err)
	}

	log.Infof("Restoring %s into index %s", key, target)

	if err := s.es.CreateIndex(ctx, target, mappingBody(bundle.Mapping)); err != nil {
		if errors.Is(err, elasticsearch.ErrIndexAlreadyExists) {
			log.Warningf("Index %s already exists", target)
			return nil, fmt.Errorf("%w: %s", ErrIndexExists, target)
		}
		return nil, fmt.Errorf("failed to create index %s: %w", target, err)
	}

	result := &ImportResult{Index: target, Documents: len(bundle.Data)}
	if len(bundle.Data) == 0 {
		log.Successf("Created index %s, snapshot has no documents", target)
		return result, nil
	}

	bulk, err := s.es.Bulk(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents into %s: %w", target, err)
	}
	result.Bulk = bulk

	for _, f := range bulk.Failed {
		log.Warningf("Document %s rejected (%d %s): %s", f.ID, f.Status, f.Type, f.Reason)
	}
	log.Successf("Loaded %d of %d documents", len(bundle.Data)-len(bulk.Failed), len(bundle.Data))

	return result, nil
}

// mappingBody returns nil for an absent mapping so the index is created
// with dynamic mapping
func mappingBody(mapping json.RawMessage) []byte {
	trimmed := bytes.TrimSpace(mapping)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}

// BuildBulkPayload renders records as bulk create actions: for each record
// an action line and the compacted source, every line ending in CRLF
func BuildBulkPayload(target string, records []DocumentRecord) ([]byte, error) {
	var buf bytes.Buffer
	for _, rec := range records {
		action, err := json.Marshal(bulkAction{Create: bulkTarget{Index: target, ID: rec.ID}})
		if err != nil {
			return nil, err
		}
		buf.Write(action)
		buf.WriteString(bulkLineEnd)

		if err := json.Compact(&buf, rec.Source); err != nil {
			return nil, fmt.Errorf("document %s: %w", rec.ID, err)
		}
		buf.WriteString(bulkLineEnd)
	}
	return buf.Bytes(), nil
}

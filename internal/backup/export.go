package backup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stackvista/index-backup-cli/internal/elasticsearch"
)

// Export writes the mapping and documents of index to
// <environment>/<index>_<YYYYMMDDHHMMSS>.json
func (s *Service) Export(ctx context.Context, index string) (*ExportResult, error) {
	if index == "" {
		return nil, fmt.Errorf("%w: source index", ErrMissingParameter)
	}
	log := s.log.With("index", index)

	exists, err := s.HasIndex(ctx, index)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Warningf("Index %s doesn't exist", index)
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}

	log.Infof("Saving index: %s", index)

	records, err := s.fetchDocuments(ctx, index)
	if err != nil {
		return nil, err
	}

	mapping, err := s.es.GetMapping(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping of %s: %w", index, err)
	}

	bundle := &Bundle{Mapping: mapping, Data: records}
	payload, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := s.snapshotKey(index)
	if err := s.store.Put(ctx, key, payload); err != nil {
		return nil, fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}

	log.With("key", key).Successf("Saved %d documents", len(records))
	return &ExportResult{Key: key, Bundle: bundle}, nil
}

// fetchDocuments reads the first search page, or scrolls the whole index
// when a page size is configured
func (s *Service) fetchDocuments(ctx context.Context, index string) ([]DocumentRecord, error) {
	records := []DocumentRecord{}

	if s.opts.PageSize <= 0 {
		hits, err := s.es.Search(ctx, index)
		if err != nil {
			return nil, fmt.Errorf("failed to read documents of %s: %w", index, err)
		}
		return appendHits(records, hits), nil
	}

	err := s.es.ScrollAll(ctx, index, s.opts.PageSize, s.opts.ScrollKeepAlive, func(hits []elasticsearch.Hit) error {
		records = appendHits(records, hits)
		s.log.Debugf("Fetched %d documents from %s", len(records), index)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read documents of %s: %w", index, err)
	}
	return records, nil
}

func appendHits(records []DocumentRecord, hits []elasticsearch.Hit) []DocumentRecord {
	for _, hit := range hits {
		records = append(records, DocumentRecord{ID: hit.ID, Source: hit.Source})
	}
	return records
}

func (s *Service) snapshotKey(index string) string {
	return fmt.Sprintf("%s/%s_%s.json", s.opts.Environment, index, s.opts.Now().UTC().Format(keyTimeFormat))
}

package backup

import (
	"context"
	"fmt"
)

// ListIndices returns every index of the cluster with its document count
func (s *Service) ListIndices(ctx context.Context) ([]IndexDescriptor, error) {
	indices, err := s.es.ListIndices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list indices: %w", err)
	}

	result := make([]IndexDescriptor, 0, len(indices))
	for _, idx := range indices {
		result = append(result, IndexDescriptor{
			Name:     idx.Index,
			DocCount: idx.DocsCount,
		})
	}
	return result, nil
}

// HasIndex reports whether name is in the catalog
func (s *Service) HasIndex(ctx context.Context, name string) (bool, error) {
	indices, err := s.ListIndices(ctx)
	if err != nil {
		return false, err
	}
	for _, idx := range indices {
		if idx.Name == name {
			return true, nil
		}
	}
	return false, nil
}

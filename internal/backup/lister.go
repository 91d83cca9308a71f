package backup

import (
	"context"
	"fmt"
	"sort"
)

// ListBackups returns every stored snapshot whose key starts with prefix,
// sorted by key. An empty prefix lists the whole bucket.
func (s *Service) ListBackups(ctx context.Context, prefix string) ([]BackupObject, error) {
	objects, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	backups := make([]BackupObject, 0, len(objects))
	for _, obj := range objects {
		s.log.Debugf("Found snapshot %s (%d bytes, modified %s)", obj.Key, obj.Size, obj.LastModified.Format("2006-01-02 15:04:05"))
		backups = append(backups, BackupObject{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].Key < backups[j].Key })
	return backups, nil
}

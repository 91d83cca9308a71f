package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStore keeps objects as files under <root>/<bucket>
type LocalStore struct {
	dir string
}

// NewLocalStore creates the bucket directory if needed
func NewLocalStore(root, bucket string) (*LocalStore, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "index-backup")
	}
	if bucket == "" {
		return nil, wrapError(CodeBucketNotFound, "", fmt.Errorf("bucket is required"))
	}

	dir := filepath.Join(root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, wrapError(CodePermissionDenied, "", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Put writes data to the file backing key, creating parent directories
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return wrapError(CodePermissionDenied, key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return wrapError(CodeStorageFailed, key, err)
	}
	return nil
}

// Get reads the file backing key
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, wrapError(CodeObjectNotFound, key, err)
		}
		return nil, wrapError(CodeStorageFailed, key, err)
	}
	return data, nil
}

// List returns files whose slash-separated key starts with prefix, sorted by key
func (s *LocalStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var objects []ObjectInfo
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, wrapError(CodeStorageFailed, prefix, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// path maps key inside the bucket directory, rejecting keys that escape it
func (s *LocalStore) path(key string) (string, error) {
	if key == "" {
		return "", wrapError(CodeObjectNotFound, key, fmt.Errorf("object key is required"))
	}
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(path, s.dir+string(filepath.Separator)) {
		return "", wrapError(CodePermissionDenied, key, fmt.Errorf("key escapes bucket"))
	}
	return path, nil
}

var _ Store = (*LocalStore)(nil)

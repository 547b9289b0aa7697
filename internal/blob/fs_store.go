package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"tenf/portal/internal/logging"
	"tenf/portal/internal/metrics"
)

// FileStore keeps each document at <root>/<store>/<escaped key>.json.
type FileStore struct {
	root    string
	metrics *metrics.MetricsRegistry
}

var _ Store = (*FileStore)(nil)

func NewFileStore(root string, m *metrics.MetricsRegistry) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob data dir: %w", err)
	}
	return &FileStore{root: root, metrics: m}, nil
}

func (s *FileStore) Backend() string { return "filesystem" }

func (s *FileStore) path(store, key string) string {
	return filepath.Join(s.root, url.PathEscape(store), url.PathEscape(key)+".json")
}

func (s *FileStore) Get(_ context.Context, store, key string, out any) bool {
	if store == "" || key == "" {
		return false
	}
	data, err := os.ReadFile(s.path(store, key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.readFailed(store, key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.readFailed(store, key, err)
		return false
	}
	return true
}

func (s *FileStore) Set(_ context.Context, store, key string, v any) error {
	if store == "" || key == "" {
		return ErrInvalidKey
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", store, key, err)
	}

	dir := filepath.Join(s.root, url.PathEscape(store))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store dir %s: %w", store, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", store, key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s/%s: %w", store, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s/%s: %w", store, key, err)
	}
	return os.Rename(tmp.Name(), s.path(store, key))
}

func (s *FileStore) Delete(_ context.Context, store, key string) error {
	err := os.Remove(s.path(store, key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s/%s: %w", store, key, err)
	}
	return nil
}

func (s *FileStore) Keys(_ context.Context, store string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, url.PathEscape(store)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list store %s: %w", store, err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *FileStore) readFailed(store, key string, err error) {
	logging.Warn("Blob read failed, treating as absent",
		"backend", "filesystem", "store", store, "key", key, "error", err.Error())
	if s.metrics != nil {
		s.metrics.BlobReadFailures.WithLabelValues(store).Inc()
	}
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"rental-insights/models"
)

// JSONFileSink writes the enriched batch as a JSON array, the same document
// the HTTP API serves. Each Write replaces the previous file.
type JSONFileSink struct {
	mu   sync.Mutex
	path string
}

func NewJSONFileSink(path string) *JSONFileSink {
	return &JSONFileSink{path: path}
}

func (s *JSONFileSink) Write(ctx context.Context, batch []models.EnrichedListing) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("json sink: %w", err)
	}
	if batch == nil {
		batch = []models.EnrichedListing{}
	}

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("json sink: marshal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("json sink: create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("json sink: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("json sink: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("json sink: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("json sink: replace %q: %w", s.path, err)
	}
	return nil
}

// Load reads the last written batch. A missing file is an empty batch.
func (s *JSONFileSink) Load() ([]models.EnrichedListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.EnrichedListing{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("json sink: read %q: %w", s.path, err)
	}

	var batch []models.EnrichedListing
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("json sink: decode %q: %w", s.path, err)
	}
	return batch, nil
}

func (s *JSONFileSink) Close() error { return nil }

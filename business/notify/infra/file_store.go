package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore persists dedup records as a flat JSON object of key -> unix
// seconds. Writes go to a temp file renamed over the target.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the target file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the records. A missing file is an empty set.
func (s *FileStore) Load(ctx context.Context) (map[string]int64, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return map[string]int64{}, nil
	}

	records := make(map[string]int64)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return records, nil
}

// Save writes the records atomically.
func (s *FileStore) Save(ctx context.Context, records map[string]int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename to %s: %w", s.path, err)
	}
	return nil
}

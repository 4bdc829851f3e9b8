package linkstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/linkharvest/internal/model"
)

// FileStore keeps the mapping in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore backed by path. The file and its parent
// directory are created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the mapping. A missing or empty file yields an empty mapping.
func (s *FileStore) Load(ctx context.Context) (model.Links, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.NewLinks(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read link store %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return model.NewLinks(), nil
	}

	var links model.Links
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptStore, s.path, err)
	}
	if links == nil {
		links = model.NewLinks()
	}
	return links, nil
}

// Save writes links to a temporary file in the same directory and renames it
// over the target, so readers see either the old or the new mapping.
// URLs are written deduplicated and sorted.
func (s *FileStore) Save(ctx context.Context, links model.Links) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	normalized := make(model.Links, len(links))
	for domain, urls := range links {
		normalized.Put(domain, model.NewLinkSet(urls...))
	}

	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode link store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create link store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary link store: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()        //nolint:errcheck
		_ = os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("failed to write link store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()        //nolint:errcheck
		_ = os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("failed to sync link store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("failed to close link store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck
		return fmt.Errorf("failed to replace link store %s: %w", s.path, err)
	}
	return nil
}

package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SummaryName is the artifact name used for run summaries.
const SummaryName = "summary.json"

// FileStore persists artifacts as flat files named <experiment>_<name> in a
// single directory, the same directory that holds the event logs.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file path for an artifact.
func (f *FileStore) Path(experimentID, name string) string {
	return filepath.Join(f.dir, experimentID+"_"+name)
}

// Save writes to a temp file in the same directory, syncs it and renames it
// over the target, so readers see either the old or the new document.
func (f *FileStore) Save(experimentID, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, "."+experimentID+"_"+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, f.Path(experimentID, name)); err != nil {
		cleanup()
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}

// Get reads an artifact or returns ErrNotFound.
func (f *FileStore) Get(experimentID, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path(experimentID, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// List returns the sorted artifact names of an experiment. Event logs
// (<experiment>.jsonl) are not artifacts and never match.
func (f *FileStore) List(experimentID string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(f.dir, experimentID+"_*"))
	if err != nil {
		return nil, err
	}
	prefix := experimentID + "_"
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimPrefix(filepath.Base(m), prefix))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes an artifact or returns ErrNotFound.
func (f *FileStore) Delete(experimentID, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := os.Remove(f.Path(experimentID, name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

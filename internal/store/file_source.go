package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSource keeps the ledger in a local semicolon separated file.
type FileSource struct {
	path string
}

// NewFileSource returns a source for the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the file location.
func (f *FileSource) Path() string { return f.path }

// LoadAll reads the file. A missing file is an empty ledger.
func (f *FileSource) LoadAll(ctx context.Context) (Contents, error) {
	if err := ctx.Err(); err != nil {
		return Contents{}, err
	}
	file, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Contents{}, nil
	}
	if err != nil {
		return Contents{}, fmt.Errorf("FileSource.LoadAll: %w", err)
	}
	defer file.Close()

	contents, err := DecodeLedger(file)
	if err != nil {
		return Contents{}, fmt.Errorf("FileSource.LoadAll: %s: %w", f.path, err)
	}
	return contents, nil
}

// ReplaceAll writes the ledger to a temporary file next to it and renames
// it into place.
func (f *FileSource) ReplaceAll(ctx context.Context, fl Flush) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := MarshalLedger(fl)
	if err != nil {
		return fmt.Errorf("FileSource.ReplaceAll: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("FileSource.ReplaceAll: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("FileSource.ReplaceAll: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("FileSource.ReplaceAll: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("FileSource.ReplaceAll: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("FileSource.ReplaceAll: close: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("FileSource.ReplaceAll: rename: %w", err)
	}
	return nil
}

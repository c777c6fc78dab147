package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// File writes reports into a local directory.
type File struct {
	dir string
}

// NewFile returns a sink writing into dir. An empty dir means the working
// directory.
func NewFile(dir string) *File {
	if dir == "" {
		dir = "."
	}
	return &File{dir: dir}
}

// Write creates the directory if needed and replaces the report atomically,
// so readers never see a half-written file.
func (f *File) Write(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	path := filepath.Join(f.dir, FileName(name))

	tmp, err := os.CreateTemp(f.dir, ".tablint-*.json")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	return path, nil
}

package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jpl-au/ldt"
)

// File reads ranges from files under one directory. Keys are paths relative
// to that directory and cannot escape it.
type File struct {
	root *os.Root
}

// NewFile opens dir as a file source.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		dir = "."
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}
	return &File{root: root}, nil
}

// ReadRange implements ldt.RangeReader.
func (s *File) ReadRange(ctx context.Context, key string, r ldt.ByteRange) (io.ReadCloser, error) {
	_, span := startFetch(ctx, ProviderFile, key, r)
	defer span.End()

	f, err := s.root.Open(key)
	if os.IsNotExist(err) {
		recordFetch(ctx, ProviderFile, r, "not_found")
		return nil, fmt.Errorf("%w: %s", ldt.ErrNotFound, key)
	}
	if err != nil {
		recordFetch(ctx, ProviderFile, r, "open_failed")
		return nil, err
	}
	recordFetch(ctx, ProviderFile, r, "")
	return readCloser{Reader: io.NewSectionReader(f, r.Start, r.Length), Closer: f}, nil
}

// Open returns the whole object, for scans and compaction.
func (s *File) Open(key string) (*os.File, error) {
	return s.root.Open(key)
}

// Close releases the directory handle.
func (s *File) Close() error {
	return s.root.Close()
}

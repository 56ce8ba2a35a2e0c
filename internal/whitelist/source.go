package whitelist

import (
	"context"
	"fmt"
	"os"
)

// Source supplies and persists the raw whitelist text. Local files and the
// hosting-panel bridge both satisfy it; the store does not care which.
type Source interface {
	// Fetch returns the current full file text.
	Fetch(ctx context.Context) (string, error)
	// Push overwrites the file with text. Last writer wins: there is no
	// compare-and-swap on the file path, and that is a documented
	// operational limitation, not something the store papers over.
	Push(ctx context.Context, text string) error
}

// FileSource reads and writes a whitelist file on the local filesystem.
type FileSource struct {
	path string
}

// NewFileSource builds a source for the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the backing file path.
func (s *FileSource) Path() string {
	return s.path
}

// Fetch reads the whole file.
func (s *FileSource) Fetch(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, s.path, err)
	}
	return string(data), nil
}

// Push overwrites the whole file.
func (s *FileSource) Push(ctx context.Context, text string) error {
	if err := os.WriteFile(s.path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrSourceUnavailable, s.path, err)
	}
	return nil
}

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pttgrab/internal/models"
)

// File writes the batch's articles as an indented JSON array, the layout
// downstream tooling consumes.
type File struct {
	path string
}

// NewFile creates a file sink for the given path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Write marshals the articles and writes them out, creating parent
// directories as needed. An empty batch still produces a valid file with
// an empty array.
func (f *File) Write(ctx context.Context, batch *Batch) error {
	articles := batch.Articles
	if articles == nil {
		articles = []*models.Article{}
	}

	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal articles: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(f.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	return nil
}

// Close is a no-op; the file is written whole in Write.
func (f *File) Close() error {
	return nil
}

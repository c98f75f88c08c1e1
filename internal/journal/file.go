package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileJournal appends entry lines to a text file
type FileJournal struct {
	mu   sync.Mutex
	path string
}

// NewFileJournal creates the parent directory if needed
func NewFileJournal(path string) (*FileJournal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	return &FileJournal{path: path}, nil
}

// Path returns the journal file location
func (j *FileJournal) Path() string {
	return j.path
}

// Append writes one line and syncs it to disk
func (j *FileJournal) Append(ctx context.Context, entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(entry.Line() + "\n"); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return f.Sync()
}

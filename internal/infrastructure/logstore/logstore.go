package logstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Store appends newline-delimited records to per-job durable logs and
// serves byte-range or line-count limited reads. Reads are pure; they never
// mutate the log.
type Store struct {
	fs afero.Fs
	mu sync.Mutex
}

// NewStore creates a log store on the given filesystem
func NewStore(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// Append writes one record to the log at path, creating the file and its
// parent directory as needed. The trailing newline is added here so callers
// always hand over whole lines.
func (s *Store) Append(path, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	f, err := s.fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append log line: %w", err)
	}
	return nil
}

// ReadAll returns the full log content. A missing log reads as empty.
func (s *Store) ReadAll(path string) (string, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read log file: %w", err)
	}
	return string(data), nil
}

// Tail returns the last n lines of the log. A missing log reads as empty.
func (s *Store) Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	content, err := s.ReadAll(path)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, nil
	}

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// Exists reports whether a log file is present
func (s *Store) Exists(path string) (bool, error) {
	return afero.Exists(s.fs, path)
}

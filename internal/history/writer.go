// Package history manages query history.
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/diogo/grok-ask/pkg/models"
	"github.com/google/uuid"
)

// maxLineBytes bounds a single history line.
const maxLineBytes = 1 << 20

// ErrNotFound is returned when no entry matches an id.
var ErrNotFound = errors.New("history entry not found")

// Writer handles writing history entries.
type Writer struct {
	mu   sync.Mutex
	path string
}

// NewWriter creates a new history writer.
func NewWriter(path string) (*Writer, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	return &Writer{path: path}, nil
}

// Append adds a new entry to the history file and returns it with its id and
// timestamp filled in.
func (w *Writer) Append(entry models.HistoryEntry) (models.HistoryEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return entry, fmt.Errorf("failed to marshal history entry: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return entry, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return entry, fmt.Errorf("failed to write history entry: %w", err)
	}

	return entry, nil
}

// Reader handles reading history entries.
type Reader struct {
	path string
}

// NewReader creates a new history reader.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// ReadAll reads all history entries, oldest first.
func (r *Reader) ReadAll() ([]models.HistoryEntry, error) {
	file, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.HistoryEntry{}, nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	entries := make([]models.HistoryEntry, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry models.HistoryEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			// Skip malformed lines
			continue
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading history: %w", err)
	}

	return entries, nil
}

// ReadLast reads the last n entries.
func (r *Reader) ReadLast(n int) ([]models.HistoryEntry, error) {
	entries, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if n <= 0 || len(entries) <= n {
		return entries, nil
	}

	return entries[len(entries)-n:], nil
}

// Find returns the entry whose id starts with prefix. Ambiguous prefixes
// are an error.
func (r *Reader) Find(prefix string) (models.HistoryEntry, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return models.HistoryEntry{}, ErrNotFound
	}

	entries, err := r.ReadAll()
	if err != nil {
		return models.HistoryEntry{}, err
	}

	var found []models.HistoryEntry
	for _, entry := range entries {
		if entry.ID == prefix {
			return entry, nil
		}
		if strings.HasPrefix(entry.ID, prefix) {
			found = append(found, entry)
		}
	}

	switch len(found) {
	case 0:
		return models.HistoryEntry{}, ErrNotFound
	case 1:
		return found[0], nil
	default:
		return models.HistoryEntry{}, fmt.Errorf("ambiguous id %q matches %d entries", prefix, len(found))
	}
}

// LastResponseID returns the continuation id of the most recent entry that
// has one.
func (r *Reader) LastResponseID() (string, error) {
	entries, err := r.ReadAll()
	if err != nil {
		return "", err
	}

	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].ResponseID != "" {
			return entries[i].ResponseID, nil
		}
	}
	return "", ErrNotFound
}

// Clear removes all history entries.
func (r *Reader) Clear() error {
	if err := os.Truncate(r.path, 0); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Search finds entries whose query or response contains the text,
// ignoring case.
func (r *Reader) Search(query string) ([]models.HistoryEntry, error) {
	entries, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	results := make([]models.HistoryEntry, 0)
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Query), needle) ||
			strings.Contains(strings.ToLower(entry.Response), needle) {
			results = append(results, entry)
		}
	}

	return results, nil
}

// Truncate shortens s to at most maxLen runes, marking the cut.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

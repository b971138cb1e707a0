// Package history keeps the most-recently-used list of searched cities on disk.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultMax is the number of cities kept when no limit is configured. It is also the
// upper bound: larger limits are clamped to it.
const DefaultMax = 10

// Store is a most-recently-used list of city names persisted as a JSON array.
// The zero value is not usable; call Open.
type Store struct {
	mu      sync.Mutex
	path    string
	max     int
	entries []string
}

// Open loads the history file at path. A missing file yields an empty history.
// A file that is not a JSON string array is treated as empty and overwritten on the next change.
func Open(path string, limit int) (*Store, error) {
	if limit <= 0 || limit > DefaultMax {
		limit = DefaultMax
	}
	s := &Store{path: path, max: limit}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}
	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return s, nil
	}
	s.entries = normalize(entries, limit)
	return s, nil
}

// normalize trims entries, drops blanks and later duplicates, and caps the length.
func normalize(entries []string, limit int) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" || indexOf(out, e) >= 0 {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}

func indexOf(entries []string, city string) int {
	for i, e := range entries {
		if strings.EqualFold(e, city) {
			return i
		}
	}
	return -1
}

// Add moves city to the front of the history, dropping any existing entry that
// matches ignoring case, and persists the result. Blank cities are ignored.
func (s *Store) Add(city string) ([]string, error) {
	city = strings.TrimSpace(city)
	s.mu.Lock()
	defer s.mu.Unlock()
	if city == "" {
		return s.snapshotLocked(), nil
	}
	next := make([]string, 0, len(s.entries)+1)
	next = append(next, city)
	for _, e := range s.entries {
		if !strings.EqualFold(e, city) {
			next = append(next, e)
		}
	}
	if len(next) > s.max {
		next = next[:s.max]
	}
	if err := s.saveLocked(next); err != nil {
		return s.snapshotLocked(), err
	}
	s.entries = next
	return s.snapshotLocked(), nil
}

// Remove deletes city (case-insensitive) from the history. Returns false when absent.
func (s *Store) Remove(city string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.entries, strings.TrimSpace(city))
	if i < 0 {
		return false, nil
	}
	next := make([]string, 0, len(s.entries)-1)
	next = append(next, s.entries[:i]...)
	next = append(next, s.entries[i+1:]...)
	if err := s.saveLocked(next); err != nil {
		return false, err
	}
	s.entries = next
	return true, nil
}

// Clear empties the history.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveLocked([]string{}); err != nil {
		return err
	}
	s.entries = nil
	return nil
}

// List returns the cities, most recent first.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Max returns the configured capacity.
func (s *Store) Max() int {
	return s.max
}

func (s *Store) snapshotLocked() []string {
	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

// saveLocked writes entries to a temp file in the target directory and renames it into place.
func (s *Store) saveLocked(entries []string) error {
	if entries == nil {
		entries = []string{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("history: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("history: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("history: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("history: replace %s: %w", s.path, err)
	}
	return nil
}

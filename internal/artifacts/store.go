// Package artifacts persists fetched API payloads as timestamped JSON files.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// PersistenceError reports a failed artifact write.
type PersistenceError struct {
	Path  string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist artifact %s: %v", e.Path, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// Store writes and lists artifacts in a single directory.
type Store struct {
	dir   string
	nowFn func() time.Time
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, nowFn: time.Now}
}

// WithClock replaces the store's time source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.nowFn = now
	return s
}

// Dir returns the artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.nowFn()
}

// Write stores payload under a new timestamped name and returns that name.
func (s *Store) Write(subject, endpoint string, payload any) (string, error) {
	name := FileName(subject, endpoint, s.nowFn())
	path := filepath.Join(s.dir, name)

	data, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return "", &PersistenceError{Path: path, Cause: fmt.Errorf("failed to marshal payload: %w", err)}
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", &PersistenceError{Path: path, Cause: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", &PersistenceError{Path: path, Cause: err}
	}
	return name, nil
}

// ListMatching returns the artifact names for (subject, endpoint), oldest first.
// Names without a parseable timestamp are left out.
func (s *Store) ListMatching(subject, endpoint string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list artifacts in %s: %w", s.dir, err)
	}

	token := Sanitize(subject)
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, Extension) {
			continue
		}
		if !matches(name, token, endpoint) {
			continue
		}
		if _, ok := ParseTimestamp(name); !ok {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Latest returns the most recent artifact for (subject, endpoint) and its timestamp.
func (s *Store) Latest(subject, endpoint string) (string, time.Time, bool, error) {
	names, err := s.ListMatching(subject, endpoint)
	if err != nil {
		return "", time.Time{}, false, err
	}
	if len(names) == 0 {
		return "", time.Time{}, false, nil
	}
	name := names[len(names)-1]
	ts, _ := ParseTimestamp(name)
	return name, ts, true, nil
}

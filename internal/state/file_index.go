package state

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonathan/api-harvester/internal/types"
)

// FileIndex persists the fetch index in a local JSON file.
type FileIndex struct {
	path string
	mu   sync.Mutex
}

// NewFileIndex creates a file-backed index at the given path.
func NewFileIndex(path string) *FileIndex {
	return &FileIndex{path: path}
}

type indexEntry struct {
	Subject   string    `json:"subject"`
	Endpoint  string    `json:"endpoint"`
	FetchedAt time.Time `json:"fetched_at"`
}

type indexState struct {
	Entries map[string]indexEntry `json:"entries"`
}

// LastSuccess implements Index.
func (s *FileIndex) LastSuccess(ctx context.Context, key types.FetchKey) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return time.Time{}, false, err
	}
	entry, ok := state.Entries[key.String()]
	if !ok {
		return time.Time{}, false, nil
	}
	return entry.FetchedAt, true, nil
}

// PutSuccess implements Index. Older timestamps never replace newer ones.
func (s *FileIndex) PutSuccess(ctx context.Context, key types.FetchKey, ts time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key.Subject == "" || key.Endpoint == "" {
		return errors.New("fetch key requires subject and endpoint")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return err
	}
	if prev, ok := state.Entries[key.String()]; ok && prev.FetchedAt.After(ts) {
		return nil
	}
	state.Entries[key.String()] = indexEntry{Subject: key.Subject, Endpoint: key.Endpoint, FetchedAt: ts}
	return s.saveLocked(state)
}

func (s *FileIndex) loadLocked() (indexState, error) {
	if s.path == "" {
		return emptyIndex(), errors.New("index path is required")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyIndex(), nil
		}
		return indexState{}, err
	}
	if len(data) == 0 {
		return emptyIndex(), nil
	}

	var state indexState
	if err := json.Unmarshal(data, &state); err != nil {
		return indexState{}, err
	}
	if state.Entries == nil {
		state.Entries = make(map[string]indexEntry)
	}
	return state, nil
}

func (s *FileIndex) saveLocked(state indexState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func emptyIndex() indexState {
	return indexState{Entries: make(map[string]indexEntry)}
}

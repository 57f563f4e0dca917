package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

const fileFormatVersion = "1.0"

// sessionsFile is the on-disk layout of a FileStore.
type sessionsFile struct {
	Version  string                         `json:"version"`
	Sessions map[string]ports.SessionRecord `json:"sessions"`
}

// FileStore persists sessions in a single JSON document.
type FileStore struct {
	path     string
	mu       sync.RWMutex
	version  string
	sessions map[string]ports.SessionRecord
}

var _ ports.SnapshotStore = (*FileStore)(nil)

// NewFileStore creates a FileStore and loads any sessions already on disk.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		version:  fileFormatVersion,
		sessions: make(map[string]ports.SessionRecord),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file sessionsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse sessions: %w", err)
	}

	s.version = file.Version
	s.sessions = file.Sessions
	if s.sessions == nil {
		s.sessions = make(map[string]ports.SessionRecord)
	}
	return nil
}

// persistLocked writes the sessions to disk atomically. Callers hold mu.
func (s *FileStore) persistLocked() error {
	file := sessionsFile{
		Version:  s.version,
		Sessions: s.sessions,
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return internalError("failed to marshal sessions", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return internalError("failed to write temporary file", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return internalError("failed to rename temporary file", err)
	}

	return nil
}

// Save inserts or replaces a session.
func (s *FileStore) Save(ctx context.Context, record ports.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.ID == "" {
		return internalError("session id is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.sessions[record.ID]
	s.sessions[record.ID] = record
	if err := s.persistLocked(); err != nil {
		if existed {
			s.sessions[record.ID] = previous
		} else {
			delete(s.sessions, record.ID)
		}
		return err
	}
	return nil
}

// Load returns the session stored under id.
func (s *FileStore) Load(ctx context.Context, id string) (*ports.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.sessions[id]
	if !ok {
		return nil, notFound(id)
	}
	return &record, nil
}

// List returns every session, most recently updated first.
func (s *FileStore) List(ctx context.Context) ([]ports.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ports.SessionRecord, 0, len(s.sessions))
	for _, record := range s.sessions {
		out = append(out, record)
	}
	sortRecords(out)
	return out, nil
}

// Delete removes the session stored under id.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.sessions[id]
	if !ok {
		return notFound(id)
	}
	delete(s.sessions, id)
	if err := s.persistLocked(); err != nil {
		s.sessions[id] = record
		return err
	}
	return nil
}

func sortRecords(records []ports.SessionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		}
		return records[i].ID < records[j].ID
	})
}

func notFound(id string) error {
	return wizard.NewError(wizard.ErrCodeNotFound, "session not found", nil, map[string]interface{}{"session_id": id})
}

func internalError(message string, cause error) error {
	return wizard.NewError(wizard.ErrCodeInternal, message, cause, nil)
}

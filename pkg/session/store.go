package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no session has the requested ID.
var ErrNotFound = errors.New("session: not found")

// Store defines the interface for session storage operations.
type Store interface {
	// Save creates or updates a session
	Save(s *Session) error

	// Get retrieves a session by ID
	Get(id string) (*Session, error)

	// List returns all sessions, newest start first
	List() ([]*Session, error)

	// Count returns the total number of sessions
	Count() int

	// Path returns where the sessions are kept
	Path() string
}

// JSONStore implements Store using a JSON file for persistence.
type JSONStore struct {
	path     string
	sessions map[string]*Session
	mu       sync.RWMutex
}

// storeData is the JSON structure for the store file.
type storeData struct {
	Version   int        `json:"version"`
	UpdatedAt string     `json:"updated_at"`
	Sessions  []*Session `json:"sessions"`
}

const currentVersion = 1

// NewJSONStore creates a new JSON-based store at the given path.
// If the file doesn't exist, it will be created on first save.
func NewJSONStore(path string) (*JSONStore, error) {
	store := &JSONStore{
		path:     path,
		sessions: make(map[string]*Session),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("session: create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := store.load(); err != nil {
			return nil, fmt.Errorf("session: load store: %w", err)
		}
	}

	return store, nil
}

// DefaultPath returns ~/.posecam/sessions.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("session: home directory: %w", err)
	}
	return filepath.Join(homeDir, ".posecam", "sessions.json"), nil
}

// load reads the store from disk.
func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}

	s.sessions = make(map[string]*Session, len(stored.Sessions))
	for _, sess := range stored.Sessions {
		s.sessions[sess.ID] = sess
	}
	return nil
}

// save writes the store to disk. Caller holds the lock.
func (s *JSONStore) save() error {
	stored := storeData{
		Version:   currentVersion,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Sessions:  s.sorted(),
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal JSON: %w", err)
	}

	// Write to temp file first, then rename (atomic write)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("session: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("session: rename temp file: %w", err)
	}
	return nil
}

// Save creates or updates a session. A copy is stored so later changes to
// the caller's value are not visible until the next Save.
func (s *JSONStore) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}

	stored := *sess
	s.sessions[sess.ID] = &stored
	return s.save()
}

// Get retrieves a session by ID.
func (s *JSONStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := *sess
	return &out, nil
}

// List returns all sessions, newest start first.
func (s *JSONStore) List() ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := s.sorted()
	out := make([]*Session, len(sorted))
	for i, sess := range sorted {
		c := *sess
		out[i] = &c
	}
	return out, nil
}

func (s *JSONStore) sorted() []*Session {
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	return sessions
}

// Count returns the total number of sessions.
func (s *JSONStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Path returns the file path of the store.
func (s *JSONStore) Path() string {
	return s.path
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/duke-git/lancet/v2/fileutil"
	"github.com/google/uuid"
	"github.com/unclesp1d3r/bitrecover/appstate"
)

const (
	sessionFilePermissions = 0o600
	sessionDirPermissions  = 0o750
	sessionFileExt         = ".json"
)

var (
	// ErrNotFound is returned when no session matches an ID.
	ErrNotFound = errors.New("session not found")
	// ErrAmbiguous is returned when an ID prefix matches more than one session.
	ErrAmbiguous = errors.New("session id is ambiguous")
)

// Store persists sessions keyed by ID.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
}

// Resolve loads the session whose ID equals ref or, failing that, the single session
// whose ID starts with ref.
func Resolve(ctx context.Context, store Store, ref string) (*Session, error) {
	s, err := store.Load(ctx, ref)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return s, err
	}

	all, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	var match *Session

	for _, other := range all {
		if !strings.HasPrefix(other.ID, ref) {
			continue
		}

		if match != nil {
			return nil, fmt.Errorf("%w: %q", ErrAmbiguous, ref)
		}

		match = other
	}

	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}

	return match, nil
}

// FileStore keeps one JSON document per session in Dir. Writes go to a temporary file
// that is renamed into place, so a crash never leaves a torn session file.
type FileStore struct {
	Dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, sessionDirPermissions); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}

	return &FileStore{Dir: dir}, nil
}

func (f *FileStore) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	return filepath.Join(f.Dir, id+sessionFileExt), nil
}

// Save writes s atomically.
func (f *FileStore) Save(_ context.Context, s *Session) error {
	sessionPath, err := f.path(s.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmpPath := sessionPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, sessionFilePermissions); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	if err := os.Rename(tmpPath, sessionPath); err != nil {
		if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
			appstate.Logger.Warn("Failed to clean up temp session file",
				"error", removeErr, "path", tmpPath)
		}

		return fmt.Errorf("failed to rename session file: %w", err)
	}

	if appstate.State.ExtraDebugging {
		appstate.Logger.Debug("Session saved", "session", s.ID, "checkpoint", s.Checkpoint, "status", s.Status)
	}

	return nil
}

// Load reads the session with the given ID.
func (f *FileStore) Load(_ context.Context, id string) (*Session, error) {
	sessionPath, err := f.path(id)
	if err != nil {
		return nil, err
	}

	return readSessionFile(sessionPath)
}

// List returns every stored session, oldest first. Unreadable files are skipped with a
// warning.
func (f *FileStore) List(_ context.Context) ([]*Session, error) {
	if !fileutil.IsDir(f.Dir) {
		return nil, nil
	}

	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	var out []*Session

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != sessionFileExt {
			continue
		}

		s, err := readSessionFile(filepath.Join(f.Dir, e.Name()))
		if err != nil {
			appstate.Logger.Warn("Skipping unreadable session file", "file", e.Name(), "error", err)

			continue
		}

		out = append(out, s)
	}

	sortSessions(out)

	return out, nil
}

func readSessionFile(path string) (*Session, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path built from a validated session id
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSuffix(filepath.Base(path), sessionFileExt))
		}

		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session file %s is corrupt: %w", path, err)
	}

	return &s, nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	saves    int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Save stores a copy of s.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = s.Clone()
	m.saves++

	return nil
}

// Load returns a copy of the stored session.
func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return s.Clone(), nil
}

// List returns copies of all sessions, oldest first.
func (m *MemoryStore) List(_ context.Context) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}

	sortSessions(out)

	return out, nil
}

// Saves returns how many times Save has been called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saves
}

func sortSessions(s []*Session) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].StartedAt.Equal(s[j].StartedAt) {
			return s[i].ID < s[j].ID
		}

		return s[i].StartedAt.Before(s[j].StartedAt)
	})
}

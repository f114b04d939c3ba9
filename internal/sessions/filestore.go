package sessions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/shared"
)

// FileStore keeps one JSON document per session under a directory. Writes go
// through a temp file and rename so a crash mid-write never corrupts an
// existing session.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the session directory if needed and returns a store
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: session directory is required", shared.ErrMissingArgument)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory sessions are stored under.
func (s *FileStore) Dir() string { return s.dir }

// Put writes the session document durably. The file is synced before rename
// so the previous version survives a crash mid-write.
func (s *FileStore) Put(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	final := s.path(session.ID())
	tmp, err := os.CreateTemp(s.dir, session.ID()+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	return nil
}

// Get loads a session by id.
func (s *FileStore) Get(id string) (*models.Session, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", id, err)
	}

	return &session, nil
}

// List returns all sessions in the directory, newest first.
func (s *FileStore) List() ([]*models.Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	var sessions []*models.Session
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		session, err := s.Get(strings.TrimSuffix(name, ".json"))
		if err != nil {
			// Skip unreadable documents instead of failing the listing.
			continue
		}
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt().After(sessions[j].CreatedAt())
	})

	return sessions, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

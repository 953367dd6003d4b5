package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quartermaster/internal/logging"
	id "quartermaster/internal/utils/id"
	"quartermaster/pkg/types"
)

// DefaultDir is where sessions live unless configured otherwise.
const DefaultDir = "~/.quartermaster/sessions"

// Store persists sessions as one JSON file each under a base directory.
type Store struct {
	baseDir string
	logger  logging.Logger
}

// NewStore creates a file store rooted at baseDir. A leading "~/" expands to
// the user's home directory.
func NewStore(baseDir string, logger logging.Logger) *Store {
	if baseDir == "" {
		baseDir = DefaultDir
	}
	if strings.HasPrefix(baseDir, "~/") {
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, baseDir[2:])
	}
	_ = os.MkdirAll(baseDir, 0755) // directory may already exist
	return &Store{baseDir: baseDir, logger: logging.OrNop(logger)}
}

// Create starts a new session of the given kind and writes it exclusively;
// an ID collision is an error rather than an overwrite.
func (s *Store) Create(kind string, item types.Item, request types.Request) (*Session, error) {
	if kind != KindNegotiation && kind != KindCost {
		return nil, fmt.Errorf("unknown session kind: %s", kind)
	}

	now := time.Now()
	session := &Session{
		ID:        id.NewSessionID(),
		Kind:      kind,
		Item:      item,
		Request:   request,
		Messages:  []types.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(s.path(session.ID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create session file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write session: %w", err)
	}
	return session, nil
}

// Get loads a session by ID.
func (s *Store) Get(sessionID string) (*Session, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.Error("failed to decode session file %s: %v", sessionID, err)
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return &session, nil
}

// Save writes a session back, bumping UpdatedAt.
func (s *Store) Save(session *Session) error {
	session.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(session.ID), data, 0644)
}

// List returns the IDs of all readable sessions. Corrupted files are
// skipped with a log line, not surfaced as errors.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		sessionID := strings.TrimSuffix(entry.Name(), ".json")
		data, readErr := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if readErr != nil {
			s.logger.Error("failed to read session file %s: %v", entry.Name(), readErr)
			continue
		}
		var session Session
		if jsonErr := json.Unmarshal(data, &session); jsonErr != nil {
			s.logger.Error("skipping corrupted session file %s: %v", entry.Name(), jsonErr)
			continue
		}
		ids = append(ids, sessionID)
	}
	return ids, nil
}

// Delete removes a session. A missing file is not an error.
func (s *Store) Delete(sessionID string) error {
	err := os.Remove(s.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.baseDir, sessionID+".json")
}

// Package auth holds the lawyer's session state and wraps the transport
// with bearer injection and refresh-on-401 retry.
package auth

import (
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/huquq-center/insaf/model"
)

// Tokens is the stored credential pair. Either field may be empty.
type Tokens struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

// Store persists the auth session: token pair and profile snapshot.
// Implementations are synchronous and best-effort: read and write failures
// are absorbed and reported as absence of state, never propagated. Only
// the refresh operation and explicit logout write the token pair.
type Store interface {
	Tokens() Tokens
	SetTokens(t Tokens)
	Profile() (model.Profile, bool)
	SetProfile(p model.Profile)
	Clear()
}

// sessionFile is the on-disk shape of the persisted session.
type sessionFile struct {
	Tokens  Tokens         `json:"tokens"`
	Profile *model.Profile `json:"profile,omitempty"`
}

// FileStore persists the session as a single JSON file with 0600
// permissions under the state directory.
type FileStore struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	logger *zap.Logger
}

// NewFileStore creates a file-backed session store rooted at stateDir.
func NewFileStore(fs afero.Fs, stateDir string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		fs:     fs,
		path:   filepath.Join(stateDir, "session.json"),
		logger: logger,
	}
}

// Tokens returns the stored token pair, or zero tokens when nothing is
// stored or the file is unreadable.
func (s *FileStore) Tokens() Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().Tokens
}

// SetTokens replaces the stored token pair.
func (s *FileStore) SetTokens(t Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf := s.read()
	sf.Tokens = t
	s.write(sf)
}

// Profile returns the stored profile snapshot.
func (s *FileStore) Profile() (model.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf := s.read()
	if sf.Profile == nil {
		return model.Profile{}, false
	}
	return *sf.Profile, true
}

// SetProfile replaces the stored profile snapshot.
func (s *FileStore) SetProfile(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf := s.read()
	sf.Profile = &p
	s.write(sf)
}

// Clear destroys the entire persisted session.
func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Remove(s.path); err != nil && !isNotExist(err) {
		s.logger.Warn("session store: clear failed", zap.Error(err))
	}
}

func (s *FileStore) read() sessionFile {
	var sf sessionFile
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return sf
	}
	if err := json.Unmarshal(data, &sf); err != nil {
		s.logger.Warn("session store: corrupt session file, treating as empty", zap.Error(err))
		return sessionFile{}
	}
	return sf
}

func (s *FileStore) write(sf sessionFile) {
	data, err := json.Marshal(sf)
	if err != nil {
		s.logger.Warn("session store: encode failed", zap.Error(err))
		return
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.logger.Warn("session store: mkdir failed", zap.Error(err))
		return
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o600); err != nil {
		s.logger.Warn("session store: write failed", zap.Error(err))
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	tokens  Tokens
	profile *model.Profile
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Tokens() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

func (s *MemoryStore) SetTokens(t Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = t
}

func (s *MemoryStore) Profile() (model.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return model.Profile{}, false
	}
	return *s.profile, true
}

func (s *MemoryStore) SetProfile(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = &p
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{}
	s.profile = nil
}

package wizard

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Store is keyed string storage for wizard state. Best-effort: failures
// are absorbed by the implementation and reads that fail report absence.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Remove(key string)
}

// FileStore persists wizard state as one file per key under dir.
type FileStore struct {
	mu     sync.Mutex
	fs     afero.Fs
	dir    string
	logger *zap.Logger
}

// NewFileStore creates a store rooted at dir. The directory is created
// lazily on first write.
func NewFileStore(fsys afero.Fs, dir string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{fs: fsys, dir: dir, logger: logger}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		if !isNotExist(err) {
			s.logger.Warn("wizard state read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (s *FileStore) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		s.logger.Warn("wizard state dir create failed", zap.Error(err))
		return
	}
	if err := afero.WriteFile(s.fs, s.path(key), value, 0o600); err != nil {
		s.logger.Warn("wizard state write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *FileStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.path(key)); err != nil && !isNotExist(err) {
		s.logger.Warn("wizard state remove failed", zap.String("key", key), zap.Error(err))
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (s *MemStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *MemStore) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
}

func (s *MemStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

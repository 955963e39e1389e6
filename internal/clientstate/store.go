// Package clientstate keeps the in-progress website id and CLI session across
// process restarts.
package clientstate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

const (
	keyCurrentWebsite = "currentWebsiteId"
	keyToken          = "token"
	keyAPIURL         = "apiUrl"
)

// Store remembers which website the verification flow is working on.
type Store interface {
	Save(websiteID uint) error
	Load() (uint, bool, error)
	Clear() error
}

// FileStore persists state in a yaml file through viper.
type FileStore struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

// DefaultPath is state.yml under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "guestpost", "state.yml"), nil
}

// NewFileStore opens path, which need not exist yet.
func NewFileStore(path string) (*FileStore, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read client state %s: %w", path, err)
		}
	}
	return &FileStore{path: path, v: v}, nil
}

func (s *FileStore) Save(websiteID uint) error {
	return s.set(keyCurrentWebsite, websiteID)
}

func (s *FileStore) Load() (uint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.v.GetUint(keyCurrentWebsite)
	return id, id != 0, nil
}

func (s *FileStore) Clear() error {
	return s.set(keyCurrentWebsite, 0)
}

// SaveSession stores the API root and bearer token used by the CLI.
func (s *FileStore) SaveSession(apiURL, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(keyAPIURL, apiURL)
	s.v.Set(keyToken, token)
	return s.write()
}

// Session returns the stored API root and token; both are empty when logged out.
func (s *FileStore) Session() (apiURL, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetString(keyAPIURL), s.v.GetString(keyToken)
}

func (s *FileStore) set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, value)
	return s.write()
}

func (s *FileStore) write() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write client state: %w", err)
	}
	return os.Chmod(s.path, 0o600)
}

// MemoryStore keeps state for the life of the process.
type MemoryStore struct {
	mu sync.Mutex
	id uint
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Save(websiteID uint) error {
	m.mu.Lock()
	m.id = websiteID
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load() (uint, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.id != 0, nil
}

func (m *MemoryStore) Clear() error {
	return m.Save(0)
}

package state

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// DebugModeKey is the key under which the orchestrator's debug flag is persisted
const DebugModeKey = "debug_mode"

// Store is a small file-backed key/value store using TOML.
// It holds the only durable state the import pipeline owns.
type Store struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// NewStore opens (or creates) the state file inside dir.
// If dir is empty, defaults to ~/.storefront-importer.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".storefront-importer")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	s := &Store{
		filePath: filepath.Join(dir, "state.toml"),
		data:     make(map[string]any),
	}

	if err := s.Load(); err != nil {
		return nil, err
	}

	return s, nil
}

// GetBool retrieves a boolean value, false when missing or of another type
func (s *Store) GetBool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.data[key].(bool)
	return ok && b
}

// Set stores a value and persists immediately
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// save writes the state file (caller must hold lock)
func (s *Store) save() error {
	data, err := toml.Marshal(s.data)
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads the state file; a missing file is an empty store
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]any)
			return nil
		}
		return err
	}

	loaded := make(map[string]any)
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}
	s.data = loaded
	return nil
}

// Path returns the state file path
func (s *Store) Path() string {
	return s.filePath
}

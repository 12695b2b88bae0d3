// Package prefs is the durable storage behind the dashboard's persisted
// state. Each namespace is one blob, stored as <dir>/<namespace>.toml.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

const defaultStateDir = "~/.config/courier/state"

var namespacePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// DefaultDir returns the default storage directory.
func DefaultDir() string {
	return defaultStateDir
}

// FileStorage keeps namespaced blobs on disk.
type FileStorage struct {
	dir string
	mu  sync.Mutex
}

// NewFileStorage resolves dir (empty uses the default) and creates it.
func NewFileStorage(dir string) (*FileStorage, error) {
	resolved, err := resolvePath(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve state dir: %w", err)
	}
	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStorage{dir: resolved}, nil
}

// Dir returns the resolved storage directory.
func (s *FileStorage) Dir() string {
	return s.dir
}

// Read returns the blob for namespace, or nil when none was written.
func (s *FileStorage) Read(namespace string) ([]byte, error) {
	path, err := s.path(namespace)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", namespace, err)
	}
	return data, nil
}

// Write replaces the blob for namespace. The file is written beside the
// target and renamed into place so readers never see a partial blob.
func (s *FileStorage) Write(namespace string, blob []byte) error {
	path, err := s.path(namespace)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, namespace+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", namespace, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", namespace, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", namespace, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", namespace, err)
	}
	return nil
}

// Delete removes the blob for namespace. Missing blobs are not an error.
func (s *FileStorage) Delete(namespace string) error {
	path, err := s.path(namespace)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", namespace, err)
	}
	return nil
}

func (s *FileStorage) path(namespace string) (string, error) {
	if !namespacePattern.MatchString(namespace) {
		return "", fmt.Errorf("invalid namespace %q", namespace)
	}
	return filepath.Join(s.dir, namespace+".toml"), nil
}

// MemoryStorage keeps blobs in memory. It is used when the state directory
// cannot be created and in tests.
type MemoryStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string][]byte)}
}

// Read returns a copy of the blob, or nil when none was written.
func (m *MemoryStorage) Read(namespace string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[namespace]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), blob...), nil
}

// Write stores a copy of blob.
func (m *MemoryStorage) Write(namespace string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[namespace] = append([]byte(nil), blob...)
	return nil
}

// Delete removes the blob.
func (m *MemoryStorage) Delete(namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, namespace)
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultStateDir)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

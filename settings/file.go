package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type document struct {
	Hosts []Host `yaml:"hosts"`
}

// FileStore keeps the host list in a YAML file.
type FileStore struct {
	Path string
	mtx  sync.Mutex
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the host list. A missing file yields an empty list.
func (s *FileStore) Load(_ context.Context) ([]Host, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.Path, err)
	}
	return doc.Hosts, nil
}

// Save writes the host list. The file is replaced atomically.
func (s *FileStore) Save(_ context.Context, hosts []Host) error {
	data, err := yaml.Marshal(document{Hosts: hosts})
	if err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".pingwatch-*")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return os.Rename(tmp.Name(), s.Path)
}

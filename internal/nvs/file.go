package nvs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const fileFormatVersion = 1

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	Version    int                          `yaml:"version"`
	Namespaces map[string]map[string]string `yaml:"namespaces"`
}

// FileStore keeps all namespaces in a single YAML file. Every commit
// rewrites the file atomically (temp file + rename).
type FileStore struct {
	path string
	log  *zap.Logger

	mu sync.Mutex
}

// NewFileStore returns a store backed by the YAML file at path. The file
// and its directory are created on first commit.
func NewFileStore(path string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{path: path, log: log}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Open(namespace string, mode Mode) (Handle, error) {
	return openHandle(s, s.log, namespace, mode)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) get(namespace, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return "", err
	}
	v, ok := doc.Namespaces[namespace][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *FileStore) exists(namespace string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return false, err
	}
	_, ok := doc.Namespaces[namespace]
	return ok, nil
}

func (s *FileStore) put(namespace string, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	ns, ok := doc.Namespaces[namespace]
	if !ok {
		ns = make(map[string]string, len(entries))
		doc.Namespaces[namespace] = ns
	}
	for k, v := range entries {
		ns[k] = v
	}
	return s.write(doc)
}

// read loads the document; a missing file is an empty store.
func (s *FileStore) read() (*fileDocument, error) {
	doc := &fileDocument{
		Version:    fileFormatVersion,
		Namespaces: make(map[string]map[string]string),
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", s.path, err)
	}
	if doc.Version != fileFormatVersion {
		return nil, fmt.Errorf("unsupported store version: %d (expected %d)", doc.Version, fileFormatVersion)
	}
	if doc.Namespaces == nil {
		doc.Namespaces = make(map[string]map[string]string)
	}
	return doc, nil
}

func (s *FileStore) write(doc *fileDocument) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	header := []byte("# tbk non-volatile storage. Holds Wi-Fi credentials in clear text.\n\n")
	data = append(header, data...)

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary store file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save store file: %w", err)
	}
	return nil
}

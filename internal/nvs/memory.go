package nvs

import (
	"sync"

	"go.uber.org/zap"
)

// MemoryStore keeps namespaces in process memory. Contents are lost on exit.
type MemoryStore struct {
	log *zap.Logger

	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(log *zap.Logger) *MemoryStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &MemoryStore{
		log:  log,
		data: make(map[string]map[string]string),
	}
}

func (s *MemoryStore) Open(namespace string, mode Mode) (Handle, error) {
	return openHandle(s, s.log, namespace, mode)
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) get(namespace, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[namespace][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) exists(namespace string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[namespace]
	return ok, nil
}

func (s *MemoryStore) put(namespace string, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]string, len(entries))
		s.data[namespace] = ns
	}
	for k, v := range entries {
		ns[k] = v
	}
	return nil
}

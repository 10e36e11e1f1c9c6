package nvs

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Mode selects how a namespace is opened.
type Mode int

const (
	// ReadOnly handles reject SetString and Commit.
	ReadOnly Mode = iota
	// ReadWrite handles stage writes until Commit.
	ReadWrite
)

// String returns the mode name used in logs.
func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "readonly"
	case ReadWrite:
		return "readwrite"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MaxNameLen is the longest namespace or key name accepted, in bytes.
const MaxNameLen = 15

var (
	// ErrNotFound is returned for a missing key, or for a namespace that
	// was never written when opened read-only.
	ErrNotFound = errors.New("nvs: not found")
	// ErrReadOnly is returned when writing through a read-only handle.
	ErrReadOnly = errors.New("nvs: handle is read-only")
	// ErrInvalidName is returned for empty or oversized namespace/key names.
	ErrInvalidName = errors.New("nvs: invalid name")
	// ErrClosed is returned when using a handle after Close.
	ErrClosed = errors.New("nvs: handle is closed")
)

// Store is a persistent key-value store partitioned into namespaces.
type Store interface {
	// Open returns a handle on one namespace.
	Open(namespace string, mode Mode) (Handle, error)
	// Close releases the store's resources.
	Close() error
}

// Handle reads and writes string values of one namespace.
// Writes are staged and only reach the backend on Commit.
type Handle interface {
	GetString(key string) (string, error)
	SetString(key, value string) error
	Commit() error
	Close() error
}

// backend is the storage primitive each concrete store provides. Handle
// semantics (staging, modes, name checks) are shared on top of it.
type backend interface {
	get(namespace, key string) (string, error)
	exists(namespace string) (bool, error)
	put(namespace string, entries map[string]string) error
}

func checkName(name string) error {
	if name == "" || len(name) > MaxNameLen {
		return fmt.Errorf("%w: %q (1-%d bytes)", ErrInvalidName, name, MaxNameLen)
	}
	return nil
}

func openHandle(b backend, log *zap.Logger, namespace string, mode Mode) (Handle, error) {
	if err := checkName(namespace); err != nil {
		return nil, err
	}
	if mode == ReadOnly {
		ok, err := b.exists(namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to open namespace %q: %w", namespace, err)
		}
		if !ok {
			return nil, fmt.Errorf("namespace %q: %w", namespace, ErrNotFound)
		}
	}
	log.Debug("Opened namespace", zap.String("namespace", namespace), zap.Stringer("mode", mode))
	return &handle{
		b:         b,
		log:       log,
		namespace: namespace,
		mode:      mode,
		staged:    make(map[string]string),
	}, nil
}

type handle struct {
	b         backend
	log       *zap.Logger
	namespace string
	mode      Mode

	mu     sync.Mutex
	staged map[string]string
	closed bool
}

func (h *handle) GetString(key string) (string, error) {
	if err := checkName(key); err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return "", ErrClosed
	}
	if v, ok := h.staged[key]; ok {
		return v, nil
	}
	v, err := h.b.get(h.namespace, key)
	if err != nil {
		return "", fmt.Errorf("%s/%s: %w", h.namespace, key, err)
	}
	return v, nil
}

func (h *handle) SetString(key, value string) error {
	if err := checkName(key); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if h.mode != ReadWrite {
		return ErrReadOnly
	}
	h.staged[key] = value
	return nil
}

func (h *handle) Commit() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if h.mode != ReadWrite {
		return ErrReadOnly
	}
	if len(h.staged) == 0 {
		return nil
	}
	if err := h.b.put(h.namespace, h.staged); err != nil {
		return fmt.Errorf("failed to commit namespace %q: %w", h.namespace, err)
	}
	h.log.Debug("Committed namespace", zap.String("namespace", h.namespace), zap.Int("keys", len(h.staged)))
	h.staged = make(map[string]string)
	return nil
}

// Close drops uncommitted writes.
func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.staged = nil
	return nil
}

// Backend names accepted by OpenBackend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// OpenBackend opens the store selected by name. path is ignored for the
// memory backend.
func OpenBackend(kind, path string, log *zap.Logger) (Store, error) {
	switch kind {
	case BackendMemory:
		return NewMemoryStore(log), nil
	case BackendFile, "":
		return NewFileStore(path, log), nil
	case BackendSQLite:
		return OpenSQLStore(path, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (expected %s, %s or %s)",
			kind, BackendMemory, BackendFile, BackendSQLite)
	}
}

// Package credentials persists the last known good Wi-Fi station
// credentials in the device's non-volatile store.
//
// Both fields live under one namespace as NUL-terminated strings with a
// fixed 16-byte capacity. A stored value that does not fit is treated as
// corruption: Load fails closed instead of truncating.
package credentials

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/tbk/internal/nvs"
)

const (
	// Namespace is the store namespace holding the credentials.
	Namespace = "tbk"
	// KeySSID is the store key of the network name.
	KeySSID = "wifi_ssid"
	// KeyPassword is the store key of the pre-shared key.
	KeyPassword = "wifi_pswd"

	// FieldCapacity is the size of each field including its terminator.
	FieldCapacity = 16
	// MaxFieldLen is the longest value that fits a field.
	MaxFieldLen = FieldCapacity - 1
)

var (
	// ErrNotFound means no credentials have been stored yet.
	ErrNotFound = errors.New("credentials: not found")
	// ErrCorrupt means a stored value exceeds the field capacity.
	ErrCorrupt = errors.New("credentials: stored value exceeds field capacity")
	// ErrTooLong means a value cannot be stored because it would not fit.
	ErrTooLong = errors.New("credentials: value exceeds field capacity")
)

// Credentials are the station credentials of the last successful join.
type Credentials struct {
	SSID     string
	Password string
}

// fits reports whether s plus its terminator fits a field.
func fits(s string) bool {
	return len(s)+1 <= FieldCapacity
}

// Validate checks that both fields fit their storage capacity.
func (c Credentials) Validate() error {
	if !fits(c.SSID) {
		return fmt.Errorf("%w: SSID is %d bytes (max %d)", ErrTooLong, len(c.SSID), MaxFieldLen)
	}
	if !fits(c.Password) {
		return fmt.Errorf("%w: password is %d bytes (max %d)", ErrTooLong, len(c.Password), MaxFieldLen)
	}
	return nil
}

// Adapter reads and writes Credentials through an nvs.Store.
type Adapter struct {
	store nvs.Store
	log   *zap.Logger
}

// NewAdapter wraps store. A nil logger disables logging.
func NewAdapter(store nvs.Store, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{store: store, log: log}
}

// Load returns the stored credentials.
//
// It returns ErrNotFound when the namespace or the SSID is absent and
// ErrCorrupt when either stored value exceeds FieldCapacity. A missing
// password is an open network and yields an empty Password.
func (a *Adapter) Load() (Credentials, error) {
	h, err := a.store.Open(Namespace, nvs.ReadOnly)
	if err != nil {
		if errors.Is(err, nvs.ErrNotFound) {
			a.log.Debug("No stored credentials", zap.String("namespace", Namespace))
			return Credentials{}, ErrNotFound
		}
		a.log.Warn("Failed to open store", zap.String("namespace", Namespace), zap.Error(err))
		return Credentials{}, fmt.Errorf("failed to open store: %w", err)
	}
	defer h.Close()

	ssid, err := a.read(h, KeySSID, "SSID")
	if err != nil {
		return Credentials{}, err
	}

	pass, err := a.read(h, KeyPassword, "password")
	if errors.Is(err, ErrNotFound) {
		pass = ""
	} else if err != nil {
		return Credentials{}, err
	}

	return Credentials{SSID: ssid, Password: pass}, nil
}

func (a *Adapter) read(h nvs.Handle, key, what string) (string, error) {
	v, err := h.GetString(key)
	if errors.Is(err, nvs.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		a.log.Error("Failed to read "+what, zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to read %s: %w", what, err)
	}
	if !fits(v) {
		a.log.Error(what+" is too long", zap.String("key", key), zap.Int("size", len(v)+1))
		return "", fmt.Errorf("%w: %s", ErrCorrupt, key)
	}
	return v, nil
}

// Save writes both fields and commits them. The first failing step is
// returned; fields written before it are not rolled back.
func (a *Adapter) Save(c Credentials) error {
	if err := c.Validate(); err != nil {
		a.log.Error("Refusing to store credentials", zap.Error(err))
		return err
	}

	h, err := a.store.Open(Namespace, nvs.ReadWrite)
	if err != nil {
		a.log.Error("Failed to open store", zap.String("namespace", Namespace), zap.Error(err))
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer h.Close()

	if err := h.SetString(KeySSID, c.SSID); err != nil {
		a.log.Error("Failed to set SSID", zap.Error(err))
		return fmt.Errorf("failed to set SSID: %w", err)
	}
	if err := h.SetString(KeyPassword, c.Password); err != nil {
		a.log.Error("Failed to set password", zap.Error(err))
		return fmt.Errorf("failed to set password: %w", err)
	}
	if err := h.Commit(); err != nil {
		a.log.Error("Failed to commit", zap.Error(err))
		return fmt.Errorf("failed to commit credentials: %w", err)
	}

	a.log.Info("Stored credentials", zap.String("ssid", c.SSID))
	return nil
}

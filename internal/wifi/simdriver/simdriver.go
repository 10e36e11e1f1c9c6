// Package simdriver is an in-process Wi-Fi driver that simulates a radio
// and a set of access points.
//
// Connect resolves after a configurable latency: a station config that
// matches a known access point yields EventStationGotIP, anything else
// yields EventStationDisconnected with the reason a real radio would give.
// Drop simulates losing an established link.
package simdriver

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/tbk/internal/wifi"
)

// DefaultConnectDelay is the simulated association + DHCP latency.
const DefaultConnectDelay = 300 * time.Millisecond

var (
	// ErrNotInitialized is returned when the driver is used before Init.
	ErrNotInitialized = errors.New("simdriver: not initialized")
	// ErrNotStarted is returned by Connect before Start.
	ErrNotStarted = errors.New("simdriver: not started")
	// ErrWrongMode is returned by Connect when not in station mode.
	ErrWrongMode = errors.New("simdriver: not in station mode")
)

// Stats counts driver calls.
type Stats struct {
	Inits        int
	Starts       int
	Connects     int
	ConfigWrites int
}

// Driver implements wifi.Driver.
type Driver struct {
	log *zap.Logger

	mu           sync.Mutex
	aps          map[string]string
	connectDelay time.Duration
	events       chan<- wifi.Event
	started      bool
	mode         wifi.Mode
	cfg          wifi.StationConfig
	associated   bool
	attempt      uint64
	nextHost     byte
	stats        Stats
}

// Option configures a Driver.
type Option func(*Driver)

// WithConnectDelay sets the latency between Connect and its outcome event.
func WithConnectDelay(d time.Duration) Option {
	return func(drv *Driver) { drv.connectDelay = d }
}

// WithAccessPoint adds a reachable access point.
func WithAccessPoint(ssid, password string) Option {
	return func(drv *Driver) { drv.aps[ssid] = password }
}

// WithLogger sets the driver's logger.
func WithLogger(l *zap.Logger) Option {
	return func(drv *Driver) { drv.log = l }
}

// New returns a simulated driver with no access points in range.
func New(opts ...Option) *Driver {
	drv := &Driver{
		log:          zap.NewNop(),
		aps:          make(map[string]string),
		connectDelay: DefaultConnectDelay,
		nextHost:     100,
	}
	for _, opt := range opts {
		opt(drv)
	}
	return drv
}

// AddAccessPoint brings an access point into range.
func (d *Driver) AddAccessPoint(ssid, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.aps[ssid] = password
}

// RemoveAccessPoint takes an access point out of range. A station
// associated with it is dropped.
func (d *Driver) RemoveAccessPoint(ssid string) {
	d.mu.Lock()
	delete(d.aps, ssid)
	drop := d.associated && d.cfg.SSID == ssid
	d.mu.Unlock()

	if drop {
		d.disconnect(wifi.ReasonBeaconTimeout)
	}
}

func (d *Driver) Init(events chan<- wifi.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = events
	d.stats.Inits++
	return nil
}

func (d *Driver) SetMode(mode wifi.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.events == nil {
		return ErrNotInitialized
	}
	d.mode = mode
	d.log.Debug("Mode set", zap.Stringer("mode", mode))
	return nil
}

func (d *Driver) SetStationConfig(cfg wifi.StationConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.events == nil {
		return ErrNotInitialized
	}
	if len(cfg.SSID) > wifi.MaxSSIDLen || len(cfg.Password) > wifi.MaxPasswordLen {
		return fmt.Errorf("simdriver: station config exceeds 802.11 limits")
	}
	d.cfg = cfg
	d.stats.ConfigWrites++
	return nil
}

func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.events == nil {
		return ErrNotInitialized
	}
	d.started = true
	d.stats.Starts++
	return nil
}

// Connect starts an association attempt with the current station config.
// A station already associated is disconnected first, as a radio would.
func (d *Driver) Connect() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return ErrNotStarted
	}
	if d.mode != wifi.ModeStation {
		d.mu.Unlock()
		return ErrWrongMode
	}
	d.stats.Connects++
	d.attempt++
	attempt := d.attempt
	cfg := d.cfg
	wasAssociated := d.associated
	d.associated = false
	delay := d.connectDelay
	d.mu.Unlock()

	if wasAssociated {
		d.emit(wifi.Event{Type: wifi.EventStationDisconnected, SSID: cfg.SSID, Reason: wifi.ReasonConfigChanged})
	}

	d.log.Debug("Connecting", zap.String("ssid", cfg.SSID), zap.Uint64("attempt", attempt))
	time.AfterFunc(delay, func() { d.resolve(attempt, cfg) })
	return nil
}

// resolve delivers the outcome of one attempt unless a newer one superseded it.
func (d *Driver) resolve(attempt uint64, cfg wifi.StationConfig) {
	d.mu.Lock()
	if attempt != d.attempt {
		d.mu.Unlock()
		return
	}
	pass, ok := d.aps[cfg.SSID]
	var ev wifi.Event
	switch {
	case !ok:
		ev = wifi.Event{Type: wifi.EventStationDisconnected, SSID: cfg.SSID, Reason: wifi.ReasonNoAPFound}
	case pass != cfg.Password:
		ev = wifi.Event{Type: wifi.EventStationDisconnected, SSID: cfg.SSID, Reason: wifi.ReasonAuthFail}
	default:
		d.associated = true
		ev = wifi.Event{Type: wifi.EventStationGotIP, SSID: cfg.SSID, Addr: netip.AddrFrom4([4]byte{192, 168, 4, d.nextHost})}
		d.nextHost++
	}
	d.mu.Unlock()

	d.emit(ev)
}

// Drop simulates a link loss on an associated station.
func (d *Driver) Drop() {
	d.disconnect(wifi.ReasonBeaconTimeout)
}

func (d *Driver) disconnect(reason wifi.DisconnectReason) {
	d.mu.Lock()
	if !d.associated {
		d.mu.Unlock()
		return
	}
	d.associated = false
	ssid := d.cfg.SSID
	d.mu.Unlock()

	d.emit(wifi.Event{Type: wifi.EventStationDisconnected, SSID: ssid, Reason: reason})
}

func (d *Driver) emit(ev wifi.Event) {
	d.mu.Lock()
	events := d.events
	d.mu.Unlock()
	if events == nil {
		return
	}
	// Never block a timer goroutine on a consumer that went away
	select {
	case events <- ev:
		d.log.Debug("Event", zap.Stringer("type", ev.Type), zap.String("ssid", ev.SSID))
	default:
		d.log.Warn("Event queue full, dropping event", zap.Stringer("type", ev.Type))
	}
}

// Associated reports whether the simulated station holds an address.
func (d *Driver) Associated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.associated
}

// Stats returns a copy of the call counters.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

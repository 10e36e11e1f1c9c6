package wifi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/muurk/tbk/internal/credentials"
	"github.com/muurk/tbk/internal/logging"
)

// DefaultJoinTimeout bounds a join when the request gives no timeout.
const DefaultJoinTimeout = 10 * time.Second

// eventQueueLen buffers driver events raised before the loop runs.
const eventQueueLen = 16

// State is the lifecycle state of the station interface.
type State int

const (
	// StateIdle means no join is pending: never joined, or the last join timed out.
	StateIdle State = iota
	// StateConnecting means connect was issued and no address arrived yet.
	StateConnecting
	// StateConnected means the station has an address.
	StateConnected
	// StateDropped means the link went down after being up; a reconnect is in flight.
	StateDropped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDropped:
		return "dropped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// CredentialSource supplies the credentials to join at boot.
type CredentialSource interface {
	Load() (credentials.Credentials, error)
}

// JoinRequest describes one join.
type JoinRequest struct {
	SSID     string
	Password string
	// Timeout bounds the wait for an address (0 = manager default).
	Timeout time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithJoinTimeout sets the default join timeout, also used by the boot join.
func WithJoinTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.joinTimeout = d
		}
	}
}

// WithReconnectPolicy sets the automatic reconnect policy.
func WithReconnectPolicy(p ReconnectPolicy) Option {
	return func(m *Manager) { m.backoff = p.BackOff() }
}

// WithReconnectBackOff sets a custom backoff for automatic reconnects.
// Returning backoff.Stop suppresses the reconnect.
func WithReconnectBackOff(b backoff.BackOff) Option {
	return func(m *Manager) { m.backoff = b }
}

// Manager drives the station interface of a Driver: blocking joins with a
// deadline, automatic reconnect after every disconnect, and a one-time
// join with stored credentials when first initialized.
//
// Concurrent Join calls are not supported; they race on the station
// configuration.
type Manager struct {
	driver      Driver
	source      CredentialSource
	log         *zap.Logger
	joinTimeout time.Duration

	initMu      sync.Mutex
	initialized bool
	loopDone    chan struct{}
	done        chan struct{}
	closeOnce   sync.Once

	link *latch

	mu             sync.Mutex
	state          State
	current        credentials.Credentials
	backoff        backoff.BackOff
	reconnectTimer *time.Timer
	reconnects     int
}

// NewManager returns a Manager for driver. source may be nil, in which case
// Initialize never joins on its own.
func NewManager(driver Driver, source CredentialSource, opts ...Option) *Manager {
	m := &Manager{
		driver:      driver,
		source:      source,
		log:         logging.Named("wifi"),
		joinTimeout: DefaultJoinTimeout,
		backoff:     ReconnectPolicy{}.BackOff(),
		done:        make(chan struct{}),
		link:        newLatch(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize brings the driver up once. The first successful call also
// joins with the stored credentials, if any, using the default timeout;
// that join's outcome is only logged. Later calls return nil immediately.
//
// A returned error is an ErrTypeDriver error and is not recoverable.
func (m *Manager) Initialize(ctx context.Context) error {
	first, err := m.bringUp()
	if err != nil || !first {
		return err
	}
	m.bootJoin(ctx)
	return nil
}

func (m *Manager) bringUp() (bool, error) {
	m.initMu.Lock()
	defer m.initMu.Unlock()
	if m.initialized {
		return false, nil
	}

	events := make(chan Event, eventQueueLen)
	if err := m.driver.Init(events); err != nil {
		m.log.Error("Driver init failed", zap.Error(err))
		return false, newDriverError("init", err)
	}
	if err := m.driver.SetMode(ModeNull); err != nil {
		m.log.Error("Failed to set idle mode", zap.Error(err))
		return false, newDriverError("set_mode", err)
	}
	if err := m.driver.Start(); err != nil {
		m.log.Error("Driver start failed", zap.Error(err))
		return false, newDriverError("start", err)
	}

	m.loopDone = make(chan struct{})
	go m.eventLoop(events)

	m.initialized = true
	m.log.Debug("Driver started")
	return true, nil
}

// bootJoin joins with stored credentials. Failures are logged only and the
// stored credentials are left in place.
func (m *Manager) bootJoin(ctx context.Context) {
	if m.source == nil {
		return
	}
	c, err := m.source.Load()
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			m.log.Info("No stored credentials, skipping auto-join")
		} else {
			m.log.Warn("Stored credentials unusable, skipping auto-join", zap.Error(err))
		}
		return
	}

	m.mu.Lock()
	m.current = c
	m.mu.Unlock()

	m.log.Info("Read stored SSID", zap.String("ssid", c.SSID))
	req := JoinRequest{SSID: c.SSID, Password: c.Password, Timeout: m.joinTimeout}
	if err := m.Join(ctx, req); err != nil {
		m.log.Warn("Auto-join with stored credentials failed", zap.String("ssid", c.SSID), zap.Error(err))
	}
}

// Join points the station at req.SSID, issues one connect and waits until
// the station gets an address or the timeout elapses.
//
// It returns nil on success and an ErrTypeTimeout error on timeout. A timed
// out attempt is not cancelled: the driver may still connect later. The
// caller decides whether to persist the credentials.
func (m *Manager) Join(ctx context.Context, req JoinRequest) error {
	if req.SSID == "" {
		return newInvalidArgument("SSID is required")
	}
	if len(req.SSID) > MaxSSIDLen {
		return newInvalidArgument(fmt.Sprintf("SSID is %d bytes (max %d)", len(req.SSID), MaxSSIDLen))
	}
	if len(req.Password) > MaxPasswordLen {
		return newInvalidArgument(fmt.Sprintf("password is %d bytes (max %d)", len(req.Password), MaxPasswordLen))
	}

	if err := m.Initialize(ctx); err != nil {
		return err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = m.joinTimeout
	}

	m.log.Info("Connecting", zap.String("ssid", req.SSID), zap.Duration("timeout", timeout))
	m.setState(StateConnecting)

	if err := m.driver.SetMode(ModeStation); err != nil {
		m.abandonConnecting()
		return newDriverError("set_mode", err)
	}
	if err := m.driver.SetStationConfig(StationConfig{SSID: req.SSID, Password: req.Password}); err != nil {
		m.abandonConnecting()
		return newDriverError("set_config", err)
	}
	if err := m.driver.Connect(); err != nil {
		// The disconnect path may still bring the link up within the window
		m.log.Warn("Connect request failed", zap.String("ssid", req.SSID), zap.Error(err))
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-m.link.wait():
		m.mu.Lock()
		// A disconnect handled since the wake-up has already moved the state on
		if m.link.isSet() {
			m.state = StateConnected
		}
		m.current = credentials.Credentials{SSID: req.SSID, Password: req.Password}
		m.mu.Unlock()
		m.log.Info("Connected", zap.String("ssid", req.SSID))
		return nil

	case <-timer.C:
		m.abandonConnecting()
		m.log.Warn("Connection timed out", zap.String("ssid", req.SSID), zap.Duration("timeout", timeout))
		return &Error{
			Type:    ErrTypeTimeout,
			Op:      "join",
			Message: fmt.Sprintf("no IP address from %q within %s", req.SSID, timeout),
		}

	case <-ctx.Done():
		m.abandonConnecting()
		return &Error{Type: ErrTypeCanceled, Op: "join", Message: "wait aborted", Err: ctx.Err()}
	}
}

// abandonConnecting returns a join that stopped waiting to Idle. A got-ip
// that already arrived keeps the state at Connected.
func (m *Manager) abandonConnecting() {
	m.mu.Lock()
	if m.state == StateConnecting {
		m.state = StateIdle
	}
	m.mu.Unlock()
}

func (m *Manager) eventLoop(events <-chan Event) {
	defer close(m.loopDone)
	for {
		select {
		case <-m.done:
			return
		case ev := <-events:
			m.handleEvent(ev)
		}
	}
}

func (m *Manager) handleEvent(ev Event) {
	switch ev.Type {
	case EventStationDisconnected:
		logging.LogLinkEvent(m.log, ev.Type.String(), ev.SSID, ev.Reason.String())
		m.link.lower()
		m.mu.Lock()
		if m.state == StateConnected {
			m.state = StateDropped
		}
		m.mu.Unlock()
		m.scheduleReconnect()

	case EventStationGotIP:
		logging.LogLinkEvent(m.log, ev.Type.String(), ev.SSID, ev.Addr.String())
		m.mu.Lock()
		m.state = StateConnected
		m.backoff.Reset()
		if m.reconnectTimer != nil {
			m.reconnectTimer.Stop()
			m.reconnectTimer = nil
		}
		m.mu.Unlock()
		m.link.raise()

	default:
		m.log.Debug("Ignoring driver event", zap.Stringer("event", ev.Type))
	}
}

// scheduleReconnect issues exactly one reconnect for a disconnect event,
// immediately or after the policy's delay.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}

	delay := m.backoff.NextBackOff()
	if delay == backoff.Stop {
		attempts := m.reconnects
		m.mu.Unlock()
		m.log.Warn("Reconnect policy exhausted, staying disconnected", zap.Int("attempts", attempts))
		return
	}
	m.reconnects++

	// The driver is called without m.mu held
	if delay == 0 {
		m.mu.Unlock()
		m.reconnect()
		return
	}
	defer m.mu.Unlock()

	m.log.Debug("Reconnect scheduled", zap.Duration("delay", delay))
	m.reconnectTimer = time.AfterFunc(delay, func() {
		select {
		case <-m.done:
		default:
			m.reconnect()
		}
	})
}

func (m *Manager) reconnect() {
	if err := m.driver.Connect(); err != nil {
		m.log.Warn("Reconnect request failed", zap.Error(err))
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// State returns the current link state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the station currently has an address.
func (m *Manager) Connected() bool {
	return m.link.isSet()
}

// Credentials returns the credentials read at boot or of the last
// successful join.
func (m *Manager) Credentials() credentials.Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Reconnects returns the number of automatic reconnects issued so far.
func (m *Manager) Reconnects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnects
}

// Close stops event processing and any pending reconnect. The driver is
// left running.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		m.mu.Lock()
		if m.reconnectTimer != nil {
			m.reconnectTimer.Stop()
			m.reconnectTimer = nil
		}
		m.mu.Unlock()

		m.initMu.Lock()
		loopDone := m.loopDone
		m.initMu.Unlock()
		if loopDone != nil {
			<-loopDone
		}
	})
	return nil
}

package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/tbk/internal/credentials"
	"github.com/muurk/tbk/internal/nvs"
	"github.com/muurk/tbk/internal/wifi"
	"github.com/muurk/tbk/internal/wifi/simdriver"
)

type fakeNetwork struct {
	mu        sync.Mutex
	joinErr   error
	requests  []wifi.JoinRequest
	connected bool
	state     wifi.State
	creds     credentials.Credentials
}

func (n *fakeNetwork) Join(ctx context.Context, req wifi.JoinRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
	return n.joinErr
}

func (n *fakeNetwork) State() wifi.State                    { return n.state }
func (n *fakeNetwork) Connected() bool                      { return n.connected }
func (n *fakeNetwork) Credentials() credentials.Credentials { return n.creds }

func (n *fakeNetwork) joins() []wifi.JoinRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]wifi.JoinRequest(nil), n.requests...)
}

type fakeSaver struct {
	err   error
	saved []credentials.Credentials
}

func (s *fakeSaver) Save(c credentials.Credentials) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, c)
	return nil
}

func newTestConsole(net Network, saver CredentialSaver) (*Console, *bytes.Buffer) {
	var out bytes.Buffer
	return New(net, saver, WithOutput(&out)), &out
}

func TestConsole_JoinSuccessPersists(t *testing.T) {
	net := &fakeNetwork{}
	saver := &fakeSaver{}
	c, out := newTestConsole(net, saver)

	if code := c.Run(context.Background(), "join --timeout 500 MyAP MyPass"); code != 0 {
		t.Fatalf("Run() = %d, want 0; output:\n%s", code, out)
	}

	joins := net.joins()
	if len(joins) != 1 {
		t.Fatalf("Join called %d times, want 1", len(joins))
	}
	want := wifi.JoinRequest{SSID: "MyAP", Password: "MyPass", Timeout: 500 * time.Millisecond}
	if joins[0] != want {
		t.Errorf("Join request = %+v, want %+v", joins[0], want)
	}
	if len(saver.saved) != 1 || saver.saved[0] != (credentials.Credentials{SSID: "MyAP", Password: "MyPass"}) {
		t.Errorf("saved = %+v, want MyAP/MyPass once", saver.saved)
	}
	if !strings.Contains(out.String(), "Connected to MyAP") {
		t.Errorf("output = %q, want a connected message", out.String())
	}
}

func TestConsole_JoinDefaults(t *testing.T) {
	net := &fakeNetwork{}
	c, _ := newTestConsole(net, &fakeSaver{})

	if code := c.Run(context.Background(), "join OpenCafe"); code != 0 {
		t.Fatalf("Run() = %d, want 0", code)
	}
	got := net.joins()[0]
	if got.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", got.Timeout)
	}
	if got.Password != "" {
		t.Errorf("Password = %q, want empty for an open network", got.Password)
	}
}

func TestConsole_JoinQuotedArguments(t *testing.T) {
	net := &fakeNetwork{}
	c, _ := newTestConsole(net, &fakeSaver{})

	if code := c.Run(context.Background(), `join "Home AP" 'pass word'`); code != 0 {
		t.Fatalf("Run() = %d, want 0", code)
	}
	got := net.joins()[0]
	if got.SSID != "Home AP" || got.Password != "pass word" {
		t.Errorf("Join request = %+v, want quoted values kept whole", got)
	}
}

func TestConsole_JoinTimeoutReturnsOne(t *testing.T) {
	net := &fakeNetwork{joinErr: &wifi.Error{Type: wifi.ErrTypeTimeout, Op: "join", Message: "no address"}}
	saver := &fakeSaver{}
	c, out := newTestConsole(net, saver)

	if code := c.Run(context.Background(), "join --timeout 500 MyAP MyPass"); code != 1 {
		t.Fatalf("Run() = %d, want 1", code)
	}
	if len(saver.saved) != 0 {
		t.Errorf("saved = %+v, want nothing after a timeout", saver.saved)
	}
	if !strings.Contains(out.String(), "Connection timed out") {
		t.Errorf("output = %q, want a timeout message", out.String())
	}
}

func TestConsole_SaveFailureKeepsSuccess(t *testing.T) {
	net := &fakeNetwork{}
	saver := &fakeSaver{err: errors.New("flash full")}
	c, out := newTestConsole(net, saver)

	if code := c.Run(context.Background(), "join MyAP MyPass"); code != 0 {
		t.Fatalf("Run() = %d, want 0 despite the save failure", code)
	}
	if !strings.Contains(out.String(), "Credentials not saved") {
		t.Errorf("output = %q, want a save warning", out.String())
	}
}

func TestConsole_JoinOnExistingLinkWarns(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantWarn bool
	}{
		{"different network", "join Other pw", true},
		{"same network", "join MyAP MyPass", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := &fakeNetwork{connected: true, creds: credentials.Credentials{SSID: "MyAP"}}
			saver := &fakeSaver{}
			c, out := newTestConsole(net, saver)

			if code := c.Run(context.Background(), tt.line); code != 0 {
				t.Fatalf("Run() = %d, want 0", code)
			}
			if got := strings.Contains(out.String(), "not verified"); got != tt.wantWarn {
				t.Errorf("warning printed = %v, want %v; output:\n%s", got, tt.wantWarn, out)
			}
			if len(saver.saved) != 1 {
				t.Errorf("saved = %+v, want one entry", saver.saved)
			}
		})
	}
}

func TestConsole_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"missing ssid", "join"},
		{"too many arguments", "join a b c"},
		{"non-numeric timeout", "join --timeout soon MyAP"},
		{"zero timeout", "join --timeout 0 MyAP"},
		{"unknown flag", "join --channel 6 MyAP"},
		{"unterminated quote", `join "MyAP`},
		{"unknown command", "restart"},
		{"status with arguments", "status now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := &fakeNetwork{}
			c, out := newTestConsole(net, &fakeSaver{})

			if code := c.Run(context.Background(), tt.line); code != 1 {
				t.Errorf("Run(%q) = %d, want 1", tt.line, code)
			}
			if n := len(net.joins()); n != 0 {
				t.Errorf("Join called %d times, want 0", n)
			}
			if out.Len() == 0 {
				t.Error("no error printed")
			}
		})
	}
}

func TestConsole_FlagsDoNotLeakBetweenLines(t *testing.T) {
	net := &fakeNetwork{}
	c, _ := newTestConsole(net, nil)

	c.Run(context.Background(), "join --timeout 500 A")
	c.Run(context.Background(), "join B")

	joins := net.joins()
	if len(joins) != 2 {
		t.Fatalf("Join called %d times, want 2", len(joins))
	}
	if joins[1].Timeout != 10*time.Second {
		t.Errorf("second join Timeout = %v, want the 10s default", joins[1].Timeout)
	}
}

func TestConsole_StatusAndHelp(t *testing.T) {
	net := &fakeNetwork{
		connected: true,
		state:     wifi.StateConnected,
		creds:     credentials.Credentials{SSID: "MyAP"},
	}
	c, out := newTestConsole(net, nil)

	if code := c.Run(context.Background(), "status"); code != 0 {
		t.Fatalf("status = %d, want 0", code)
	}
	for _, want := range []string{"connected", "yes", "MyAP"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("status output %q missing %q", out.String(), want)
		}
	}

	out.Reset()
	if code := c.Run(context.Background(), "help"); code != 0 {
		t.Fatalf("help = %d, want 0", code)
	}
	for _, want := range []string{"join", "status"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestConsole_Serve(t *testing.T) {
	net := &fakeNetwork{}
	c, out := newTestConsole(net, nil)

	in := strings.NewReader("status\n\n   \njoin First\nquit\njoin Second\n")
	if err := c.Serve(context.Background(), newPlainReader(in, out, Prompt)); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	joins := net.joins()
	if len(joins) != 1 || joins[0].SSID != "First" {
		t.Errorf("joins = %+v, want only First before quit", joins)
	}
	if !strings.Contains(out.String(), Prompt) {
		t.Error("prompt never printed")
	}

	// EOF ends the loop cleanly
	if err := c.Serve(context.Background(), newPlainReader(strings.NewReader("status"), out, "")); err != nil {
		t.Errorf("Serve() at EOF error = %v", err)
	}
}

// End-to-end against the connection manager, simulated driver and store.

func newStack(t *testing.T, opts ...simdriver.Option) (*Console, *credentials.Adapter) {
	t.Helper()
	store := nvs.NewMemoryStore(nil)
	adapter := credentials.NewAdapter(store, nil)
	driver := simdriver.New(opts...)
	mgr := wifi.NewManager(driver, adapter)
	t.Cleanup(func() { mgr.Close() })

	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	c, _ := newTestConsole(mgr, adapter)
	return c, adapter
}

func TestConsole_JoinEndToEnd(t *testing.T) {
	c, adapter := newStack(t,
		simdriver.WithConnectDelay(200*time.Millisecond),
		simdriver.WithAccessPoint("MyAP", "MyPass"),
	)

	if code := c.Run(context.Background(), "join --timeout 500 MyAP MyPass"); code != 0 {
		t.Fatalf("Run() = %d, want 0", code)
	}
	got, err := adapter.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != (credentials.Credentials{SSID: "MyAP", Password: "MyPass"}) {
		t.Errorf("stored = %+v, want MyAP/MyPass", got)
	}
}

func TestConsole_JoinEndToEndTimeout(t *testing.T) {
	c, adapter := newStack(t, simdriver.WithConnectDelay(100*time.Millisecond))

	start := time.Now()
	if code := c.Run(context.Background(), "join --timeout 500 MyAP MyPass"); code != 1 {
		t.Fatalf("Run() = %d, want 1", code)
	}
	if elapsed := time.Since(start); elapsed < 450*time.Millisecond {
		t.Errorf("returned after %v, want about 500ms", elapsed)
	}
	if _, err := adapter.Load(); !errors.Is(err, credentials.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

// Package console implements the device's interactive command line.
//
// A line is split shell-style, dispatched to a cobra command and yields a
// return code: 0 on success, 1 on a parse error or a failed command.
//
// Commands:
//
//	join [--timeout <t>] <ssid> [<pass>]   join a network, persist on success
//	status                                 print link state and current network
//	help                                   list commands
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/tbk/internal/credentials"
	"github.com/muurk/tbk/internal/logging"
	"github.com/muurk/tbk/internal/wifi"
)

// Prompt is printed before every console line.
const Prompt = "tbk> "

// errCommandFailed marks a command that already reported its failure.
var errCommandFailed = errors.New("command failed")

// Network is the part of the connection manager the console drives.
type Network interface {
	Join(ctx context.Context, req wifi.JoinRequest) error
	State() wifi.State
	Connected() bool
	Credentials() credentials.Credentials
}

// CredentialSaver persists credentials after a successful join.
type CredentialSaver interface {
	Save(c credentials.Credentials) error
}

// Option configures a Console.
type Option func(*Console)

// WithOutput sets where command output is written (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(c *Console) { c.out = w }
}

// WithLogger sets the console's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Console) { c.log = l }
}

// WithDefaultTimeout sets the join timeout used without --timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Console) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Console dispatches command lines against a Network.
type Console struct {
	net     Network
	saver   CredentialSaver
	out     io.Writer
	log     *zap.Logger
	timeout time.Duration
}

// New returns a Console. saver may be nil, in which case successful joins
// are not persisted.
func New(net Network, saver CredentialSaver, opts ...Option) *Console {
	c := &Console{
		net:     net,
		saver:   saver,
		out:     os.Stdout,
		log:     logging.Named("console"),
		timeout: wifi.DefaultJoinTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one command line and returns its return code.
func (c *Console) Run(ctx context.Context, line string) int {
	args, err := shlex.Split(line)
	if err != nil {
		fmt.Fprintln(c.out, renderFailure(fmt.Sprintf("Invalid command line: %v", err)))
		return 1
	}
	if len(args) == 0 {
		return 0
	}

	root := c.newRootCmd()
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	if !errors.Is(err, errCommandFailed) {
		c.log.Debug("Command rejected", zap.Strings("args", args), zap.Error(err))
		fmt.Fprintln(c.out, renderFailure(err.Error()))
		if cmd != nil && cmd != root {
			fmt.Fprintln(c.out, mutedStyle.Render("Usage: "+cmd.UseLine()))
		}
	}
	return 1
}

// newRootCmd builds a fresh command tree so no flag value outlives its line.
func (c *Console) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tbk",
		Short:         "TBK device console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(c.out)
	root.SetErr(c.out)

	root.AddCommand(c.newJoinCmd(), c.newStatusCmd())
	return root
}

func (c *Console) newJoinCmd() *cobra.Command {
	var timeoutMs int

	cmd := &cobra.Command{
		Use:   "join [--timeout <t>] <ssid> [<pass>]",
		Short: "Join WiFi AP as a station",
		Long: `Join a WiFi access point as a station and wait for an IP address.

On success the SSID and password are saved and used to reconnect on the
next boot. Omit <pass> for an open network.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if timeoutMs <= 0 {
				return fmt.Errorf("invalid --timeout %d: must be a positive number of milliseconds", timeoutMs)
			}
			req := wifi.JoinRequest{
				SSID:    args[0],
				Timeout: time.Duration(timeoutMs) * time.Millisecond,
			}
			if len(args) > 1 {
				req.Password = args[1]
			}
			return c.join(cmd.Context(), req)
		},
	}
	cmd.Flags().IntVar(&timeoutMs, "timeout", int(c.timeout/time.Millisecond), "Connection timeout, ms")
	return cmd
}

func (c *Console) join(ctx context.Context, req wifi.JoinRequest) error {
	logging.LogLinkEvent(c.log, "join", req.SSID, fmt.Sprintf("timeout=%s", req.Timeout))

	// A join returns at once while the link is up, before any address
	// from the new network
	wasUp := c.net.Connected()
	prevSSID := c.net.Credentials().SSID

	if err := c.net.Join(ctx, req); err != nil {
		switch {
		case wifi.IsTimeout(err):
			fmt.Fprintln(c.out, renderFailure("Connection timed out"))
		case wifi.IsInvalidArgument(err):
			fmt.Fprintln(c.out, renderFailure(err.Error()))
		default:
			fmt.Fprintln(c.out, renderFailure(fmt.Sprintf("Join failed: %v", err)))
		}
		return errCommandFailed
	}
	fmt.Fprintln(c.out, renderSuccess("Connected to "+req.SSID))
	if wasUp && prevSSID != req.SSID {
		c.log.Warn("Join returned on an existing link", zap.String("ssid", req.SSID), zap.String("previous", prevSSID))
		fmt.Fprintln(c.out, renderWarning(fmt.Sprintf("Link was already up on %q; %q is not verified yet", prevSSID, req.SSID)))
	}

	if c.saver == nil {
		return nil
	}
	creds := credentials.Credentials{SSID: req.SSID, Password: req.Password}
	if err := c.saver.Save(creds); err != nil {
		// Persistence never changes the join outcome
		c.log.Error("Failed to save credentials", zap.String("ssid", req.SSID), zap.Error(err))
		fmt.Fprintln(c.out, renderWarning(fmt.Sprintf("Credentials not saved: %v", err)))
		return nil
	}
	c.log.Info("Credentials saved", zap.String("ssid", req.SSID))
	return nil
}

func (c *Console) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show WiFi station status",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ssid := c.net.Credentials().SSID
			if ssid == "" {
				ssid = "(none)"
			}
			connected := "no"
			if c.net.Connected() {
				connected = "yes"
			}
			fmt.Fprintln(c.out, renderField("State", c.net.State().String()))
			fmt.Fprintln(c.out, renderField("Connected", connected))
			fmt.Fprintln(c.out, renderField("SSID", ssid))
		},
	}
}

// IsExit reports whether line asks the console loop to stop.
func IsExit(line string) bool {
	switch strings.TrimSpace(line) {
	case "exit", "quit":
		return true
	}
	return false
}

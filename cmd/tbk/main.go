// Tbk is the TBK device console.
//
// It brings up the WiFi station, joins the network saved by the last
// successful join, runs the message codec self-check and then serves an
// interactive console with the join and status commands. The radio is a
// simulated driver whose access points come from the configuration file.
//
// Usage:
//
//	tbk [command] [flags]
//
// Running without a command starts the console.
// See 'tbk --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/tbk/internal/config"
	"github.com/muurk/tbk/internal/console"
	"github.com/muurk/tbk/internal/credentials"
	"github.com/muurk/tbk/internal/logging"
	"github.com/muurk/tbk/internal/nvs"
	"github.com/muurk/tbk/internal/tbkmsg"
	"github.com/muurk/tbk/internal/version"
	"github.com/muurk/tbk/internal/wifi"
	"github.com/muurk/tbk/internal/wifi/simdriver"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
	storeKind  string
	storePath  string
)

var rootCmd = &cobra.Command{
	Use:   "tbk",
	Short: "TBK WiFi station console",
	Long: `An interactive console for the TBK WiFi station.

At start-up the station joins the network saved by the last successful
'join', then waits for commands. Credentials are kept in a non-volatile
store (YAML file, SQLite or memory) selected in the configuration.

If no command is specified, the console starts automatically.`,
	Example: `  # Start the console with the default configuration
  tbk

  # Keep credentials in SQLite and log at debug level
  tbk --store sqlite --log-level debug

  # Use an explicit configuration file
  tbk --config ./lab.yaml`,
	Version:      version.Version,
	SilenceUsage: true,
	RunE:         runConsole,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: OS config dir)/tbk/config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)
	rootCmd.Flags().StringVar(&storeKind, "store", "", "Credential store backend (memory, file, sqlite)")
	rootCmd.Flags().StringVar(&storePath, "store-path", "", "Credential store location (default: next to the config file)")
}

// resolveConfigPath returns the --config value or the OS default.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get config path: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}

	if cmd.Flags().Changed("store") {
		cfg.Storage.Backend = storeKind
	}
	if cmd.Flags().Changed("store-path") {
		cfg.Storage.Path = storePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func initLogging(cfg *config.Config) error {
	level := logLevel
	if level == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		level = cfg.Log.Level
	}
	return logging.Initialize(level)
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logging.Sync()

	log := logging.Named("main")
	log.Info("Starting", zap.String("version", version.Full()), zap.String("config", path))

	store, err := nvs.OpenBackend(cfg.Storage.Backend, cfg.StoragePath(filepath.Dir(path)), logging.Named("nvs"))
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	defer store.Close()

	driverOpts := []simdriver.Option{
		simdriver.WithConnectDelay(cfg.ConnectDelay()),
		simdriver.WithLogger(logging.Named("simdriver")),
	}
	for _, ap := range cfg.Simulator.AccessPoints {
		driverOpts = append(driverOpts, simdriver.WithAccessPoint(ap.SSID, ap.Password))
	}
	driver := simdriver.New(driverOpts...)

	adapter := credentials.NewAdapter(store, logging.Named("credentials"))
	mgr := wifi.NewManager(driver, adapter,
		wifi.WithLogger(logging.Named("wifi")),
		wifi.WithJoinTimeout(cfg.JoinTimeout()),
		wifi.WithReconnectPolicy(cfg.ReconnectPolicy()),
	)
	defer mgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(console.Banner("TBK "+version.Version, "Type 'help' to get the list of commands."))

	if err := tbkmsg.SelfCheck(); err != nil {
		log.Error("Codec self-check failed", zap.Error(err))
	}

	if err := mgr.Initialize(ctx); err != nil {
		logging.Fatal("WiFi bring-up failed", zap.Error(err))
	}

	con := console.New(mgr, adapter,
		console.WithLogger(logging.Named("console")),
		console.WithDefaultTimeout(cfg.JoinTimeout()),
	)
	if err := con.Interactive(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

// Package logging provides structured logging for tbk.
//
// This package wraps a global zap logger with convenience functions. Components
// take a named child logger (logging.Named("wifi")) so every line carries the
// subsystem that produced it.
//
// # Log Levels
//
//   - Debug: wire dumps, driver calls, reconnect scheduling
//   - Info: join attempts, link events, credential reads and writes
//   - Warn: join timeouts, rejected stored values, persistence failures
//   - Error: driver bring-up failures
//
// # Configuration
//
// Initialize logging once at startup:
//
//	if err := logging.Initialize("info"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// An empty level falls back to the TBK_LOG_LEVEL environment variable. When
// both are empty the logger is a no-op.
//
// # Output Format
//
// Logs go to stderr in zap's console encoding so they never interleave with
// console command output on stdout:
//
//	2026-10-16T10:30:45.123+0200  INFO  wifi  Link event  {"event": "got_ip", "ssid": "MyAP"}
package logging

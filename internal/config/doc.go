// Package config provides device configuration management for tbk.
//
// The configuration is a YAML file selecting the non-volatile store backend,
// the connection manager's join timeout and reconnect policy, the log level
// and the simulated radio environment. The file follows OS-specific
// conventions for its location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/tbk/config.yaml or $HOME/.config/tbk/config.yaml
//   - macOS: $HOME/.config/tbk/config.yaml
//   - Windows: %LOCALAPPDATA%\tbk\config.yaml
//
// # Security
//
// Wi-Fi credentials never live in this file. They belong to the
// credentials store in the "tbk" namespace of the non-volatile store.
//
// # File Format
//
//	version: 1
//	log:
//	  level: info
//	storage:
//	  backend: file          # memory, file or sqlite
//	wifi:
//	  join_timeout_ms: 10000
//	  reconnect:
//	    interval_ms: 0       # 0 = reconnect immediately
//	    max_attempts: 0      # 0 = unlimited
//	simulator:
//	  connect_delay_ms: 300
//	  access_points:
//	    - ssid: MyAP
//	      password: MyPass
//
// # Thread Safety
//
// Load and Save serialize file access through a package-level mutex.
// Writes go to a temporary file that is renamed into place.
package config

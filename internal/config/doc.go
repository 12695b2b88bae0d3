// Package config loads the courier dashboard settings.
//
// # Resolution Order
//
// Settings are layered, later layers winning:
//
//  1. Built-in defaults (see Default)
//  2. The TOML file passed to Load, or ~/.config/courier/config.toml
//  3. COURIER_* environment variables, optionally seeded from a .env file
//     by LoadEnvFile
//
// A missing config file is not an error; the dashboard works against a
// local API without any configuration.
//
// # TOML Format
//
//	api_url = "127.0.0.1:8080"
//	branch_id = 1
//	state_dir = "~/.config/courier/state"
//	log_file = "~/.local/state/courier/courier.log"
//	poll_interval = "3s"
//	cache_stale = "5m"
//	cache_ttl = "10m"
//	refresh_interval = "1m"
//	modal_delay = "300ms"
//	metrics_addr = "127.0.0.1:9464"
//
// Every field is optional. Durations use time.ParseDuration syntax and must
// not be negative; poll_interval must be positive. cache_ttl is raised to
// cache_stale when it is shorter. Paths get tilde expansion.
//
// # Environment
//
//   - COURIER_API_URL overrides api_url
//   - COURIER_BRANCH_ID overrides branch_id (ignored when not an integer)
//   - COURIER_POLL_INTERVAL overrides poll_interval
//   - COURIER_STATE_DIR overrides state_dir
//   - COURIER_METRICS_ADDR overrides metrics_addr
//
// # Error Handling
//
// Load returns errors for unreadable files, TOML syntax errors and invalid
// values. Errors name the offending field.
package config

// Package app is the composition root of the courier dashboard.
//
// # Startup
//
// Run wires the components in dependency order:
//
//  1. Load .env, then config.toml, then apply the CLI overrides
//  2. Send slog JSON output to the log file (the terminal belongs to the UI)
//  3. Optionally serve Prometheus metrics
//  4. Open the state directory, falling back to memory
//  5. Build the API client, the query cache and the state store
//  6. Start the gocron refresh of orders and vehicles
//  7. Register the screen hooks and build the job tracker
//  8. Start the program, then run restoration in the background
//
// Restoration runs once the program exists so a resumed job or solution has
// somewhere to render. Its results reach the UI through ui.Presenter.
//
// # Data
//
// Loader reads orders and vehicles through the query cache and writes them
// into the store. It follows the store: a new active solution invalidates both
// lists, and a new filter date loads that day's orders. CachedSolutions keeps
// fetched solutions for a day, so the tracker and the restoration coordinator
// share one copy.
//
// # Shutdown
//
// Cancelling the context or quitting the UI stops polling, the refresh
// scheduler, a pending modal reopen and the metrics listener. The active job
// reference stays in the store so the next start resumes it.
package app

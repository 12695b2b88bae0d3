// Package state holds the dashboard's reactive store.
//
// # Overview
//
// Store is the single in-memory source of truth for UI-relevant state: the
// current screen, order and vehicle selections, order filters, the loaded
// order and vehicle lists, and references to the tracked job, the displayed
// solution and any modal that should come back after a restart.
//
// A Store is constructed explicitly at startup (New) and handed to the
// components that need it. Reset returns it to defaults on logout.
//
// # Notifications
//
// Fields are only changed through named setters. A setter mutates its field
// under the lock, releases the lock, and then calls every subscriber of the
// affected key before returning:
//
//	unsubscribe := store.Subscribe(state.KeyActiveJob, func(c state.Change) {
//		id := c.Value.(int64) // store already reflects the new value
//	})
//	defer unsubscribe()
//
// Subscribers of one key run in registration order. When a setter touches
// several keys it notifies them in a fixed order, which is part of its
// contract:
//
//   - SetFilters, ResetFilters: KeyFilters, KeyFilteredOrders
//   - SetOrders: KeyAllOrders, KeyFilteredOrders
//   - SetActiveSolution: KeyActiveJob (when a job was active), KeyActiveSolution
//   - SetActiveJob: KeyActiveSolution (when a solution was shown), KeyActiveJob
//
// A subscriber that panics is recovered and logged; later subscribers still
// run. Setters that would not change anything (selecting an already selected
// order, or setting filters that merge to the current ones) do not notify.
//
// # Derived Data
//
// The filtered order list is never edited directly. It is recomputed by
// FilterOrders from the full list and the filters whenever either changes.
// OrderStats, FleetStats and the selection counts are recomputed on every
// call rather than cached.
//
// # Persistence
//
// The persisted subset (current screen, filters, sidebar state, active job,
// active solution, active modal and both selections) is written to Storage
// as one TOML blob every time one of those keys is notified:
//
//	current_screen = "optimize"
//	sidebar_collapsed = false
//	active_job_id = 7
//	active_solution_id = 0
//	active_modal = ""
//	selected_orders = [3, 4, 9]
//	selected_vehicles = [1]
//
//	[filters]
//	date = "2026-10-19"
//	status = ""
//	priority = "high"
//	search = ""
//
// The write is a full serialize-and-replace; the payload is small. Write
// failures are logged and counted but never returned, so the UI keeps
// working from memory. On startup a malformed blob is ignored and defaults
// are used.
//
// # Concurrency
//
// All methods are safe for concurrent use. The lock is never held while
// subscribers run, so subscribers may call getters and setters.
package state

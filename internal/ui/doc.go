// Package ui implements the courier terminal dashboard on Bubble Tea.
//
// Model is the root tea.Model. It renders from the shared state.Store and
// sends every user intent back through the store, the navigator or the job
// tracker, so the UI keeps no copy of selection or filter state.
//
// Presenter bridges the background components to the program. The job
// tracker, the restoration coordinator and store subscriptions all push
// through one ordered queue that Presenter.Run drains into the program.
//
// The import and route-planning modals are recorded in the store while open,
// which is how a restarted dashboard brings them back.
package ui

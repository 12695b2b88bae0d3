package state

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/courier/internal/logfields"
)

// persistedState is the layout of the durable blob.
type persistedState struct {
	CurrentScreen    string  `toml:"current_screen"`
	Filters          Filters `toml:"filters"`
	SidebarCollapsed bool    `toml:"sidebar_collapsed"`
	ActiveJobID      int64   `toml:"active_job_id"`
	ActiveSolutionID int64   `toml:"active_solution_id"`
	ActiveModal      string  `toml:"active_modal"`
	SelectedOrders   []int64 `toml:"selected_orders"`
	SelectedVehicles []int64 `toml:"selected_vehicles"`
}

func (s *Store) snapshotPersisted() persistedState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return persistedState{
		CurrentScreen:    string(s.currentScreen),
		Filters:          s.filters,
		SidebarCollapsed: s.sidebarCollapsed,
		ActiveJobID:      s.activeJobID,
		ActiveSolutionID: s.activeSolutionID,
		ActiveModal:      s.activeModal,
		SelectedOrders:   sortedIDs(s.selectedOrders),
		SelectedVehicles: sortedIDs(s.selectedVehicles),
	}
}

// persist serializes and writes the whole persisted subset. Failures are
// logged and swallowed; the in-memory state stays authoritative.
func (s *Store) persist() {
	if s.storage == nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	blob, err := toml.Marshal(s.snapshotPersisted())
	if err == nil {
		err = s.storage.Write(s.namespace, blob)
	}
	if err != nil {
		s.recorder.IncPersistFailure()
		s.logger.Warn("persist dashboard state failed",
			logfields.Namespace(s.namespace),
			logfields.Error(err))
	}
}

// load applies the persisted blob. A missing, unreadable or malformed blob
// leaves the defaults in place.
func (s *Store) load() {
	if s.storage == nil {
		return
	}
	blob, err := s.storage.Read(s.namespace)
	if err != nil {
		s.logger.Warn("read persisted dashboard state failed",
			logfields.Namespace(s.namespace),
			logfields.Error(err))
		return
	}
	if len(blob) == 0 {
		return
	}
	var saved persistedState
	if err := toml.Unmarshal(blob, &saved); err != nil {
		s.logger.Warn("ignoring malformed persisted dashboard state",
			logfields.Namespace(s.namespace),
			logfields.Error(fmt.Errorf("decode: %w", err)))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if screen := Screen(saved.CurrentScreen); screen.Valid() {
		s.currentScreen = screen
	}
	s.filters = saved.Filters
	if s.filters.Date == "" {
		s.filters.Date = s.today()
	}
	s.sidebarCollapsed = saved.SidebarCollapsed
	s.activeJobID = max(saved.ActiveJobID, 0)
	s.activeSolutionID = max(saved.ActiveSolutionID, 0)
	s.activeModal = saved.ActiveModal
	for _, id := range saved.SelectedOrders {
		s.selectedOrders[id] = struct{}{}
	}
	for _, id := range saved.SelectedVehicles {
		s.selectedVehicles[id] = struct{}{}
	}
}

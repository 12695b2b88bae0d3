package state

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/five82/courier/internal/api"
	"github.com/five82/courier/internal/logfields"
	"github.com/five82/courier/internal/metrics"
)

// DefaultNamespace is the storage namespace of the persisted blob.
const DefaultNamespace = "dashboard"

// Storage is the durable storage the persisted subset is written to.
type Storage interface {
	Read(namespace string) ([]byte, error)
	Write(namespace string, blob []byte) error
}

// Change is delivered to subscribers. Value is a copy of the field's new
// value; its dynamic type depends on Key.
type Change struct {
	Key   Key
	Value any
}

// Options configure a Store.
type Options struct {
	Storage   Storage // nil disables persistence
	Namespace string  // empty uses DefaultNamespace
	Clock     clockwork.Clock
	Logger    *slog.Logger
	Recorder  metrics.Recorder
}

type subscription struct {
	id uint64
	fn func(Change)
}

// Store is the single in-memory source of truth for dashboard state. Every
// mutation goes through a setter, which notifies the subscribers of the
// changed keys before returning.
type Store struct {
	mu sync.RWMutex

	currentScreen    Screen
	selectedOrders   map[int64]struct{}
	selectedVehicles map[int64]struct{}
	filters          Filters
	allOrders        []api.Order
	filteredOrders   []api.Order
	vehicles         []api.Vehicle
	activeJobID      int64
	activeSolutionID int64
	activeModal      string
	sidebarCollapsed bool

	subs   map[Key][]subscription
	nextID uint64

	storage   Storage
	namespace string
	clock     clockwork.Clock
	logger    *slog.Logger
	recorder  metrics.Recorder
	writeMu   sync.Mutex
}

// New builds a Store with defaults and then applies any persisted state found
// in opts.Storage.
func New(opts Options) *Store {
	s := &Store{
		subs:      make(map[Key][]subscription),
		storage:   opts.Storage,
		namespace: opts.Namespace,
		clock:     opts.Clock,
		logger:    opts.Logger,
		recorder:  opts.Recorder,
	}
	if s.namespace == "" {
		s.namespace = DefaultNamespace
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.recorder == nil {
		s.recorder = metrics.NoopRecorder{}
	}
	s.resetLocked()
	s.load()
	return s
}

func (s *Store) today() string {
	return s.clock.Now().Format(DateLayout)
}

func (s *Store) resetLocked() {
	s.currentScreen = ScreenDashboard
	s.selectedOrders = make(map[int64]struct{})
	s.selectedVehicles = make(map[int64]struct{})
	s.filters = Filters{Date: s.today()}
	s.allOrders = nil
	s.filteredOrders = nil
	s.vehicles = nil
	s.activeJobID = 0
	s.activeSolutionID = 0
	s.activeModal = ""
	s.sidebarCollapsed = false
}

// Subscribe registers fn for changes to key. Callbacks for one key run in
// registration order. The returned function removes the subscription and is
// safe to call more than once.
func (s *Store) Subscribe(key Key, fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[key] = append(s.subs[key], subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.subs[key] = slices.DeleteFunc(s.subs[key], func(sub subscription) bool {
				return sub.id == id
			})
		})
	}
}

// notify delivers the current value of each key to its subscribers, in the
// order given. Persisted keys are written to storage before subscribers run.
func (s *Store) notify(keys ...Key) {
	for _, key := range keys {
		s.mu.RLock()
		subs := slices.Clone(s.subs[key])
		value := s.valueLocked(key)
		s.mu.RUnlock()

		if key.Persisted() {
			s.persist()
		}
		for _, sub := range subs {
			s.deliver(sub, Change{Key: key, Value: value})
		}
	}
}

func (s *Store) deliver(sub subscription, change Change) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("store subscriber panicked",
				logfields.StoreKey(string(change.Key)),
				logfields.Error(fmt.Errorf("%v", r)))
		}
	}()
	sub.fn(change)
}

func (s *Store) valueLocked(key Key) any {
	switch key {
	case KeyCurrentScreen:
		return s.currentScreen
	case KeySelectedOrders:
		return sortedIDs(s.selectedOrders)
	case KeySelectedVehicles:
		return sortedIDs(s.selectedVehicles)
	case KeyFilters:
		return s.filters
	case KeyAllOrders:
		return slices.Clone(s.allOrders)
	case KeyFilteredOrders:
		return slices.Clone(s.filteredOrders)
	case KeyVehicles:
		return slices.Clone(s.vehicles)
	case KeyActiveJob:
		return s.activeJobID
	case KeyActiveSolution:
		return s.activeSolutionID
	case KeyActiveModal:
		return s.activeModal
	case KeySidebarCollapsed:
		return s.sidebarCollapsed
	default:
		return nil
	}
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Getters.

// CurrentScreen returns the active screen.
func (s *Store) CurrentScreen() Screen {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentScreen
}

// SelectedOrders returns the selected order ids in ascending order.
func (s *Store) SelectedOrders() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.selectedOrders)
}

// SelectedVehicles returns the selected vehicle ids in ascending order.
func (s *Store) SelectedVehicles() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.selectedVehicles)
}

// IsOrderSelected reports whether the order is selected.
func (s *Store) IsOrderSelected(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selectedOrders[id]
	return ok
}

// IsVehicleSelected reports whether the vehicle is selected.
func (s *Store) IsVehicleSelected(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selectedVehicles[id]
	return ok
}

// Filters returns the current order filters.
func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// AllOrders returns a copy of the loaded order page.
func (s *Store) AllOrders() []api.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.allOrders)
}

// FilteredOrders returns a copy of the orders passing the filters.
func (s *Store) FilteredOrders() []api.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.filteredOrders)
}

// Vehicles returns a copy of the fleet list.
func (s *Store) Vehicles() []api.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.vehicles)
}

// ActiveJob returns the tracked job id and whether one is set.
func (s *Store) ActiveJob() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeJobID, s.activeJobID != 0
}

// ActiveSolution returns the displayed solution id and whether one is set.
func (s *Store) ActiveSolution() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSolutionID, s.activeSolutionID != 0
}

// ActiveModal returns the open modal tag, or "".
func (s *Store) ActiveModal() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeModal
}

// SidebarCollapsed reports whether the sidebar is hidden.
func (s *Store) SidebarCollapsed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sidebarCollapsed
}

// Derived getters, recomputed on every call.

// OrderStats counts the loaded orders by status.
func (s *Store) OrderStats() OrderStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return computeOrderStats(s.allOrders)
}

// FleetStats counts the fleet by status.
func (s *Store) FleetStats() FleetStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return computeFleetStats(s.vehicles)
}

// SelectedOrdersCount returns the number of selected orders.
func (s *Store) SelectedOrdersCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.selectedOrders)
}

// SelectedVehiclesCount returns the number of selected vehicles.
func (s *Store) SelectedVehiclesCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.selectedVehicles)
}

// Setters. A setter that changes nothing does not notify.

// SetCurrentScreen is reserved for the navigator.
func (s *Store) SetCurrentScreen(screen Screen) {
	s.mu.Lock()
	if s.currentScreen == screen {
		s.mu.Unlock()
		return
	}
	s.currentScreen = screen
	s.mu.Unlock()
	s.notify(KeyCurrentScreen)
}

// SelectOrder adds an order to the selection.
func (s *Store) SelectOrder(id int64) {
	s.updateSet(KeySelectedOrders, id, true)
}

// DeselectOrder removes an order from the selection.
func (s *Store) DeselectOrder(id int64) {
	s.updateSet(KeySelectedOrders, id, false)
}

// ToggleOrder flips an order's selection.
func (s *Store) ToggleOrder(id int64) {
	if s.IsOrderSelected(id) {
		s.DeselectOrder(id)
		return
	}
	s.SelectOrder(id)
}

// SelectVehicle adds a vehicle to the selection.
func (s *Store) SelectVehicle(id int64) {
	s.updateSet(KeySelectedVehicles, id, true)
}

// DeselectVehicle removes a vehicle from the selection.
func (s *Store) DeselectVehicle(id int64) {
	s.updateSet(KeySelectedVehicles, id, false)
}

// ToggleVehicle flips a vehicle's selection.
func (s *Store) ToggleVehicle(id int64) {
	if s.IsVehicleSelected(id) {
		s.DeselectVehicle(id)
		return
	}
	s.SelectVehicle(id)
}

// SelectOrders adds every id in one notification.
func (s *Store) SelectOrders(ids []int64) {
	s.mu.Lock()
	changed := false
	for _, id := range ids {
		if _, ok := s.selectedOrders[id]; !ok {
			s.selectedOrders[id] = struct{}{}
			changed = true
		}
	}
	s.mu.Unlock()
	if changed {
		s.notify(KeySelectedOrders)
	}
}

// ClearOrderSelection deselects every order.
func (s *Store) ClearOrderSelection() { s.clearSet(KeySelectedOrders) }

// ClearVehicleSelection deselects every vehicle.
func (s *Store) ClearVehicleSelection() { s.clearSet(KeySelectedVehicles) }

func (s *Store) setFor(key Key) map[int64]struct{} {
	if key == KeySelectedVehicles {
		return s.selectedVehicles
	}
	return s.selectedOrders
}

func (s *Store) updateSet(key Key, id int64, add bool) {
	s.mu.Lock()
	set := s.setFor(key)
	_, present := set[id]
	if present == add {
		s.mu.Unlock()
		return
	}
	if add {
		set[id] = struct{}{}
	} else {
		delete(set, id)
	}
	s.mu.Unlock()
	s.notify(key)
}

func (s *Store) clearSet(key Key) {
	s.mu.Lock()
	set := s.setFor(key)
	if len(set) == 0 {
		s.mu.Unlock()
		return
	}
	clear(set)
	s.mu.Unlock()
	s.notify(key)
}

// SetFilters merges patch over the current filters, recomputes the filtered
// view, and notifies KeyFilters then KeyFilteredOrders.
func (s *Store) SetFilters(patch FilterPatch) {
	s.mu.Lock()
	next := s.filters.merge(patch)
	if next.Date == "" {
		next.Date = s.today()
	}
	if next == s.filters {
		s.mu.Unlock()
		return
	}
	s.filters = next
	s.filteredOrders = FilterOrders(s.allOrders, s.filters)
	s.mu.Unlock()
	s.notify(KeyFilters, KeyFilteredOrders)
}

// ResetFilters clears every filter and sets the date back to today.
func (s *Store) ResetFilters() {
	s.mu.Lock()
	next := Filters{Date: s.today()}
	if next == s.filters {
		s.mu.Unlock()
		return
	}
	s.filters = next
	s.filteredOrders = FilterOrders(s.allOrders, s.filters)
	s.mu.Unlock()
	s.notify(KeyFilters, KeyFilteredOrders)
}

// SetOrders replaces the order page and recomputes the filtered view.
func (s *Store) SetOrders(orders []api.Order) {
	s.mu.Lock()
	if slices.Equal(s.allOrders, orders) {
		s.mu.Unlock()
		return
	}
	s.allOrders = slices.Clone(orders)
	s.filteredOrders = FilterOrders(s.allOrders, s.filters)
	s.mu.Unlock()
	s.notify(KeyAllOrders, KeyFilteredOrders)
}

// SetVehicles replaces the fleet list.
func (s *Store) SetVehicles(vehicles []api.Vehicle) {
	s.mu.Lock()
	if slices.Equal(s.vehicles, vehicles) {
		s.mu.Unlock()
		return
	}
	s.vehicles = slices.Clone(vehicles)
	s.mu.Unlock()
	s.notify(KeyVehicles)
}

// SetActiveJob records the job being tracked. Non-positive ids clear it.
// Tracking a new job drops the displayed solution in the same step:
// KeyActiveSolution is notified before KeyActiveJob.
func (s *Store) SetActiveJob(id int64) {
	if id < 0 {
		id = 0
	}
	s.mu.Lock()
	var keys []Key
	if id != 0 && s.activeSolutionID != 0 {
		s.activeSolutionID = 0
		keys = append(keys, KeyActiveSolution)
	}
	if s.activeJobID != id {
		s.activeJobID = id
		keys = append(keys, KeyActiveJob)
	}
	s.mu.Unlock()
	if len(keys) > 0 {
		s.notify(keys...)
	}
}

// ClearActiveJob ends job tracking.
func (s *Store) ClearActiveJob() { s.SetActiveJob(0) }

// SetActiveSolution records the displayed solution and ends job tracking in
// the same step: KeyActiveJob is notified before KeyActiveSolution.
func (s *Store) SetActiveSolution(id int64) {
	if id < 0 {
		id = 0
	}
	s.mu.Lock()
	var keys []Key
	if id != 0 && s.activeJobID != 0 {
		s.activeJobID = 0
		keys = append(keys, KeyActiveJob)
	}
	if s.activeSolutionID != id {
		s.activeSolutionID = id
		keys = append(keys, KeyActiveSolution)
	}
	s.mu.Unlock()
	if len(keys) > 0 {
		s.notify(keys...)
	}
}

// ClearActiveSolution drops the displayed solution.
func (s *Store) ClearActiveSolution() { s.SetActiveSolution(0) }

// SetActiveModal records the open modal. An empty tag means none.
func (s *Store) SetActiveModal(tag string) {
	s.mu.Lock()
	if s.activeModal == tag {
		s.mu.Unlock()
		return
	}
	s.activeModal = tag
	s.mu.Unlock()
	s.notify(KeyActiveModal)
}

// ClearActiveModal records that no modal is open.
func (s *Store) ClearActiveModal() { s.SetActiveModal("") }

// SetSidebarCollapsed sets the sidebar state.
func (s *Store) SetSidebarCollapsed(collapsed bool) {
	s.mu.Lock()
	if s.sidebarCollapsed == collapsed {
		s.mu.Unlock()
		return
	}
	s.sidebarCollapsed = collapsed
	s.mu.Unlock()
	s.notify(KeySidebarCollapsed)
}

// ToggleSidebar flips the sidebar state.
func (s *Store) ToggleSidebar() {
	s.SetSidebarCollapsed(!s.SidebarCollapsed())
}

// Reset returns every field to its default, as on logout, and notifies all
// keys. Subscriptions are kept.
func (s *Store) Reset() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	s.notify(AllKeys...)
}

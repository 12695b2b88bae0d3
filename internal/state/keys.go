package state

// Key names one observable field of the Store.
type Key string

const (
	KeyCurrentScreen    Key = "currentScreen"
	KeySelectedOrders   Key = "selectedOrders"
	KeySelectedVehicles Key = "selectedVehicles"
	KeyFilters          Key = "filters"
	KeyAllOrders        Key = "allOrders"
	KeyFilteredOrders   Key = "filteredOrders"
	KeyVehicles         Key = "vehicles"
	KeyActiveJob        Key = "activeJobId"
	KeyActiveSolution   Key = "activeSolutionId"
	KeyActiveModal      Key = "activeModal"
	KeySidebarCollapsed Key = "sidebarCollapsed"
)

// AllKeys lists every key in notification order used by Reset.
var AllKeys = []Key{
	KeyCurrentScreen,
	KeySelectedOrders,
	KeySelectedVehicles,
	KeyFilters,
	KeyAllOrders,
	KeyFilteredOrders,
	KeyVehicles,
	KeyActiveJob,
	KeyActiveSolution,
	KeyActiveModal,
	KeySidebarCollapsed,
}

// Persisted reports whether changes to key are written to durable storage.
func (k Key) Persisted() bool {
	switch k {
	case KeyCurrentScreen, KeyFilters, KeySidebarCollapsed, KeyActiveJob,
		KeyActiveSolution, KeyActiveModal, KeySelectedOrders, KeySelectedVehicles:
		return true
	default:
		return false
	}
}

// Screen identifies a top-level dashboard screen.
type Screen string

const (
	ScreenDashboard Screen = "dashboard"
	ScreenOrders    Screen = "orders"
	ScreenFleet     Screen = "fleet"
	ScreenOptimize  Screen = "optimize"
	ScreenRoutes    Screen = "routes"
	ScreenSettings  Screen = "settings"
)

// Screens returns the known screens in display order.
func Screens() []Screen {
	return []Screen{ScreenDashboard, ScreenOrders, ScreenFleet, ScreenOptimize, ScreenRoutes, ScreenSettings}
}

// Valid reports whether s is a known screen.
func (s Screen) Valid() bool {
	for _, known := range Screens() {
		if s == known {
			return true
		}
	}
	return false
}

// Modal tags reopened after a restart.
const (
	ModalImport        = "import"
	ModalRoutePlanning = "route-planning"
)

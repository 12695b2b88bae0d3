package state

import "github.com/five82/courier/internal/api"

// OrderStats counts orders by status.
type OrderStats struct {
	Total     int
	Pending   int
	Assigned  int
	InTransit int
	Completed int
	Failed    int
	Cancelled int
}

// FleetStats counts vehicles by status.
type FleetStats struct {
	Total             int
	Available         int
	InUse             int
	Maintenance       int
	Offline           int
	AvailableCapacity float64
}

func computeOrderStats(orders []api.Order) OrderStats {
	stats := OrderStats{Total: len(orders)}
	for _, o := range orders {
		switch o.Status {
		case api.OrderPending:
			stats.Pending++
		case api.OrderAssigned:
			stats.Assigned++
		case api.OrderInTransit:
			stats.InTransit++
		case api.OrderCompleted:
			stats.Completed++
		case api.OrderFailed:
			stats.Failed++
		case api.OrderCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

func computeFleetStats(vehicles []api.Vehicle) FleetStats {
	stats := FleetStats{Total: len(vehicles)}
	for _, v := range vehicles {
		switch v.Status {
		case api.VehicleAvailable:
			stats.Available++
			stats.AvailableCapacity += v.Capacity
		case api.VehicleInUse:
			stats.InUse++
		case api.VehicleMaintenance:
			stats.Maintenance++
		case api.VehicleOffline:
			stats.Offline++
		}
	}
	return stats
}

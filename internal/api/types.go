package api

import "time"

// JobStatus is the lifecycle state reported by the optimization server.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
	JobCancelled  JobStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are expected.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// Order statuses.
const (
	OrderPending   = "PENDING"
	OrderAssigned  = "ASSIGNED"
	OrderInTransit = "IN_TRANSIT"
	OrderCompleted = "COMPLETED"
	OrderFailed    = "FAILED"
	OrderCancelled = "CANCELLED"
)

// Vehicle statuses.
const (
	VehicleAvailable   = "AVAILABLE"
	VehicleInUse       = "IN_USE"
	VehicleMaintenance = "MAINTENANCE"
	VehicleOffline     = "OFFLINE"
)

// Job mirrors /api/jobs/{id}.
type Job struct {
	ID           int64     `json:"id"`
	Status       JobStatus `json:"status"`
	Progress     int       `json:"progress"`
	CreatedAt    string    `json:"createdAt"`
	UpdatedAt    string    `json:"updatedAt"`
	CompletedAt  string    `json:"completedAt"`
	SolutionID   *int64    `json:"solutionId"`
	ErrorMessage string    `json:"errorMessage"`
}

// HasSolution reports whether the snapshot references a result.
func (j Job) HasSolution() bool {
	return j.SolutionID != nil && *j.SolutionID > 0
}

// ParsedUpdatedAt returns the parsed UpdatedAt timestamp.
func (j Job) ParsedUpdatedAt() time.Time {
	return parseTime(j.UpdatedAt)
}

// JobRequest is the body of POST /api/jobs.
type JobRequest struct {
	BranchID   int64   `json:"branchId"`
	Date       string  `json:"date"`
	OrderIDs   []int64 `json:"orderIds"`
	VehicleIDs []int64 `json:"vehicleIds"`
}

// Solution mirrors /api/solutions/{id}. Distances are kilometres, durations
// minutes.
type Solution struct {
	ID            int64   `json:"id"`
	JobID         int64   `json:"jobId"`
	TotalDistance float64 `json:"totalDistance"`
	TotalDuration float64 `json:"totalDuration"`
	Routes        []Route `json:"routes"`
	Unassigned    []int64 `json:"unassigned"`
}

// StopCount returns the number of stops across all routes.
func (s Solution) StopCount() int {
	total := 0
	for _, r := range s.Routes {
		total += len(r.Stops)
	}
	return total
}

// Route is one vehicle's ordered stops.
type Route struct {
	VehicleID int64   `json:"vehicleId"`
	Stops     []Stop  `json:"stops"`
	Distance  float64 `json:"distance"`
	Duration  float64 `json:"duration"`
}

// Stop is a single delivery on a route.
type Stop struct {
	OrderID  int64  `json:"orderId"`
	Sequence int    `json:"sequence"`
	ETA      string `json:"eta"`
}

// OrderListResponse mirrors /api/orders.
type OrderListResponse struct {
	Items []Order `json:"items"`
}

// Order is a delivery order in transport-friendly form.
type Order struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	CustomerName string `json:"customerName"`
	Address      string `json:"address"`
	Status       string `json:"status"`
	Priority     int    `json:"priority"`
	Date         string `json:"date"`
}

// VehicleListResponse mirrors /api/vehicles.
type VehicleListResponse struct {
	Items []Vehicle `json:"items"`
}

// Vehicle is a fleet member.
type Vehicle struct {
	ID       int64   `json:"id"`
	Plate    string  `json:"plate"`
	Driver   string  `json:"driver"`
	Status   string  `json:"status"`
	Capacity float64 `json:"capacity"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

package state

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/five82/courier/internal/api"
)

// DateLayout is the format of Filters.Date.
const DateLayout = "2006-01-02"

// Priority bands accepted by Filters.Priority.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Filters narrows the order list. Empty fields mean "no filter"; Date is
// always set.
type Filters struct {
	Date     string `toml:"date"`
	Status   string `toml:"status"`
	Priority string `toml:"priority"`
	Search   string `toml:"search"`
}

// FilterPatch is merged over the current Filters by SetFilters. Nil fields are
// left untouched.
type FilterPatch struct {
	Date     *string
	Status   *string
	Priority *string
	Search   *string
}

// String returns a pointer to v, for building patches.
func String(v string) *string {
	return &v
}

func (f Filters) merge(p FilterPatch) Filters {
	if p.Date != nil {
		f.Date = strings.TrimSpace(*p.Date)
	}
	if p.Status != nil {
		f.Status = strings.TrimSpace(*p.Status)
	}
	if p.Priority != nil {
		f.Priority = strings.ToLower(strings.TrimSpace(*p.Priority))
	}
	if p.Search != nil {
		f.Search = *p.Search
	}
	return f
}

// PriorityRange maps a band to its inclusive numeric bounds.
func PriorityRange(band string) (lo, hi int, ok bool) {
	switch band {
	case PriorityHigh:
		return 7, 10, true
	case PriorityMedium:
		return 4, 6, true
	case PriorityLow:
		return 0, 3, true
	default:
		return 0, 0, false
	}
}

// FilterOrders returns the orders passing f, preserving input order. It is the
// only producer of the store's filtered view.
func FilterOrders(orders []api.Order, f Filters) []api.Order {
	lo, hi, byPriority := PriorityRange(f.Priority)
	folder := cases.Fold()
	needle := folder.String(strings.TrimSpace(f.Search))

	out := make([]api.Order, 0, len(orders))
	for _, o := range orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if byPriority && (o.Priority < lo || o.Priority > hi) {
			continue
		}
		if needle != "" {
			haystack := folder.String(o.Code + " " + o.CustomerName + " " + o.Address)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		out = append(out, o)
	}
	return out
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/courier/internal/api"
	"github.com/five82/courier/internal/cache"
	"github.com/five82/courier/internal/logfields"
	"github.com/five82/courier/internal/state"
)

// Cache key namespaces.
const (
	keyOrders    = "orders"
	keyVehicles  = "vehicles"
	keySolutions = "solution"
)

// Solutions never change once written, so they stay fresh for a day.
var solutionPolicy = cache.Policy{StaleTime: 24 * time.Hour, CacheTime: 24 * time.Hour}

// Catalog lists the entities the dashboard browses.
type Catalog interface {
	ListOrders(ctx context.Context, query api.OrderQuery) ([]api.Order, error)
	ListVehicles(ctx context.Context, branchID int64) ([]api.Vehicle, error)
}

// CachedSolutions serves solutions through the cache.
type CachedSolutions struct {
	next  api.SolutionQuery
	cache *cache.Cache
}

var _ api.SolutionQuery = (*CachedSolutions)(nil)

// NewCachedSolutions wraps next with the solution cache.
func NewCachedSolutions(next api.SolutionQuery, c *cache.Cache) *CachedSolutions {
	return &CachedSolutions{next: next, cache: c}
}

// GetSolution returns the cached solution or fetches and caches it.
func (s *CachedSolutions) GetSolution(ctx context.Context, id int64) (api.Solution, error) {
	return cache.Fetch(ctx, s.cache, cache.Key{keySolutions, id}, func(ctx context.Context) (api.Solution, error) {
		return s.next.GetSolution(ctx, id)
	}, solutionPolicy)
}

// Loader fills the store's order and vehicle lists through the cache.
type Loader struct {
	catalog  Catalog
	cache    *cache.Cache
	store    *state.Store
	policy   cache.Policy
	branchID int64
	logger   *slog.Logger

	mu       sync.Mutex
	lastDate string
}

// NewLoader returns a Loader for one branch. A nil logger uses slog.Default.
func NewLoader(catalog Catalog, c *cache.Cache, store *state.Store, policy cache.Policy, branchID int64, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		catalog:  catalog,
		cache:    c,
		store:    store,
		policy:   policy,
		branchID: branchID,
		logger:   logger,
	}
}

func (l *Loader) ordersKey(date string) cache.Key {
	return cache.Key{keyOrders, l.branchID, date}
}

func (l *Loader) vehiclesKey() cache.Key {
	return cache.Key{keyVehicles, l.branchID}
}

// Orders loads the orders for the store's filter date.
func (l *Loader) Orders(ctx context.Context) error {
	date := l.store.Filters().Date
	orders, err := cache.Fetch(ctx, l.cache, l.ordersKey(date), func(ctx context.Context) ([]api.Order, error) {
		return l.catalog.ListOrders(ctx, api.OrderQuery{BranchID: l.branchID, Date: date})
	}, l.policy)
	if err != nil {
		return fmt.Errorf("load orders for %s: %w", date, err)
	}
	l.mu.Lock()
	l.lastDate = date
	l.mu.Unlock()
	l.store.SetOrders(orders)
	return nil
}

// Vehicles loads the branch fleet.
func (l *Loader) Vehicles(ctx context.Context) error {
	vehicles, err := cache.Fetch(ctx, l.cache, l.vehiclesKey(), func(ctx context.Context) ([]api.Vehicle, error) {
		return l.catalog.ListVehicles(ctx, l.branchID)
	}, l.policy)
	if err != nil {
		return fmt.Errorf("load vehicles: %w", err)
	}
	l.store.SetVehicles(vehicles)
	return nil
}

// Reload marks both lists stale and loads them again.
func (l *Loader) Reload(ctx context.Context) error {
	l.cache.InvalidatePrefix(keyOrders)
	l.cache.InvalidatePrefix(keyVehicles)
	if err := l.Orders(ctx); err != nil {
		return err
	}
	return l.Vehicles(ctx)
}

// Watch keeps the lists in step with the store: a finished job marks orders
// and vehicles stale, and a new filter date loads that day's orders. Loads
// run in the background; failures are logged.
func (l *Loader) Watch(ctx context.Context) (unsubscribe func()) {
	stopSolution := l.store.Subscribe(state.KeyActiveSolution, func(c state.Change) {
		id, _ := c.Value.(int64)
		if id == 0 {
			return
		}
		l.logger.Debug("job finished, refreshing lists", logfields.SolutionID(id))
		l.background(ctx, l.Reload)
	})
	stopFilters := l.store.Subscribe(state.KeyFilters, func(c state.Change) {
		filters, _ := c.Value.(state.Filters)
		l.mu.Lock()
		changed := filters.Date != l.lastDate
		l.mu.Unlock()
		if changed {
			l.background(ctx, l.Orders)
		}
	})
	return func() {
		stopSolution()
		stopFilters()
	}
}

func (l *Loader) background(ctx context.Context, load func(context.Context) error) {
	go func() {
		if err := load(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn("background load failed", logfields.Error(err))
		}
	}()
}

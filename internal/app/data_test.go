package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/courier/internal/api"
	"github.com/five82/courier/internal/cache"
	"github.com/five82/courier/internal/state"
)

var testNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

type fakeCatalog struct {
	mu           sync.Mutex
	orderCalls   []api.OrderQuery
	vehicleCalls int
	err          error
}

func (f *fakeCatalog) ListOrders(_ context.Context, q api.OrderQuery) ([]api.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCalls = append(f.orderCalls, q)
	if f.err != nil {
		return nil, f.err
	}
	return []api.Order{
		{ID: 1, Code: "ORD-001", Status: api.OrderPending, Date: q.Date},
		{ID: 2, Code: "ORD-002", Status: api.OrderAssigned, Date: q.Date},
	}, nil
}

func (f *fakeCatalog) ListVehicles(context.Context, int64) ([]api.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vehicleCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []api.Vehicle{{ID: 5, Plate: "KA-RT 55", Status: api.VehicleAvailable, Capacity: 800}}, nil
}

func (f *fakeCatalog) counts() (orders, vehicles int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orderCalls), f.vehicleCalls
}

func (f *fakeCatalog) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type countingSolutions struct {
	mu    sync.Mutex
	calls int
}

func (c *countingSolutions) GetSolution(_ context.Context, id int64) (api.Solution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return api.Solution{ID: id}, nil
}

func newLoaderFixture(t *testing.T) (*Loader, *fakeCatalog, *state.Store, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testNow)
	store := state.New(state.Options{Clock: clock})
	catalog := &fakeCatalog{}
	c := cache.New(cache.WithClock(clock))
	policy := cache.Policy{StaleTime: time.Minute, CacheTime: 10 * time.Minute}
	return NewLoader(catalog, c, store, policy, 3, nil), catalog, store, clock
}

func TestCachedSolutions_FetchesOnce(t *testing.T) {
	next := &countingSolutions{}
	solutions := NewCachedSolutions(next, cache.New(cache.WithClock(clockwork.NewFakeClockAt(testNow))))
	ctx := context.Background()

	for range 3 {
		sol, err := solutions.GetSolution(ctx, 99)
		require.NoError(t, err)
		assert.Equal(t, int64(99), sol.ID)
	}
	assert.Equal(t, 1, next.calls)
}

func TestLoader_OrdersUseFilterDateAndCache(t *testing.T) {
	loader, catalog, store, _ := newLoaderFixture(t)
	ctx := context.Background()

	require.NoError(t, loader.Orders(ctx))
	require.NoError(t, loader.Orders(ctx))

	assert.Len(t, store.AllOrders(), 2)
	require.Len(t, catalog.orderCalls, 1)
	assert.Equal(t, api.OrderQuery{BranchID: 3, Date: "2026-10-19"}, catalog.orderCalls[0])

	store.SetFilters(state.FilterPatch{Date: state.String("2026-10-20")})
	require.NoError(t, loader.Orders(ctx))
	require.Len(t, catalog.orderCalls, 2)
	assert.Equal(t, "2026-10-20", catalog.orderCalls[1].Date)
}

func TestLoader_StaleDataSurvivesFailures(t *testing.T) {
	loader, catalog, store, clock := newLoaderFixture(t)
	ctx := context.Background()

	require.NoError(t, loader.Vehicles(ctx))
	clock.Advance(2 * time.Minute)
	catalog.setErr(errors.New("connection refused"))

	require.NoError(t, loader.Vehicles(ctx))
	assert.Len(t, store.Vehicles(), 1)
	_, vehicles := catalog.counts()
	assert.Equal(t, 2, vehicles)

	clock.Advance(time.Hour)
	err := loader.Vehicles(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load vehicles")
}

func TestLoader_ReloadBypassesFreshEntries(t *testing.T) {
	loader, catalog, _, _ := newLoaderFixture(t)
	ctx := context.Background()

	require.NoError(t, loader.Orders(ctx))
	require.NoError(t, loader.Vehicles(ctx))
	require.NoError(t, loader.Reload(ctx))

	orders, vehicles := catalog.counts()
	assert.Equal(t, 2, orders)
	assert.Equal(t, 2, vehicles)
}

func TestLoader_WatchRefreshesAfterJobAndDateChange(t *testing.T) {
	loader, catalog, store, _ := newLoaderFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, loader.Orders(ctx))
	stop := loader.Watch(ctx)
	defer stop()

	store.SetActiveSolution(42)
	require.Eventually(t, func() bool {
		orders, vehicles := catalog.counts()
		return orders == 2 && vehicles == 1
	}, 2*time.Second, 5*time.Millisecond)

	store.SetFilters(state.FilterPatch{Search: state.String("ORD")})
	store.SetFilters(state.FilterPatch{Date: state.String("2026-10-21")})
	require.Eventually(t, func() bool {
		orders, _ := catalog.counts()
		return orders == 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStartRefresh_LoadsImmediately(t *testing.T) {
	loader, catalog, store, _ := newLoaderFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler, err := StartRefresh(ctx, loader, nil, time.Hour, nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, scheduler.Shutdown()) }()

	require.Eventually(t, func() bool {
		return len(store.AllOrders()) == 2 && len(store.Vehicles()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	orders, vehicles := catalog.counts()
	assert.Equal(t, 1, orders)
	assert.Equal(t, 1, vehicles)
}

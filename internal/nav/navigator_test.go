package nav

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/courier/internal/prefs"
	"github.com/five82/courier/internal/state"
)

func TestNavigate_RunsHooksInOrder(t *testing.T) {
	store := state.New(state.Options{})
	n := New(store, nil)
	var calls []string

	n.Register(state.ScreenDashboard, Hooks{
		CanLeave:   func(from, to state.Screen) error { calls = append(calls, "leave:"+string(to)); return nil },
		Deactivate: func() { calls = append(calls, "deactivate:dashboard") },
	})
	n.Register(state.ScreenOrders, Hooks{
		CanEnter: func(from, to state.Screen) error { calls = append(calls, "enter:"+string(from)); return nil },
		Activate: func(context.Context) {
			calls = append(calls, "activate:"+string(store.CurrentScreen()))
		},
	})

	require.NoError(t, n.Navigate(context.Background(), state.ScreenOrders))
	assert.Equal(t, []string{"leave:orders", "enter:dashboard", "deactivate:dashboard", "activate:orders"}, calls)
	assert.Equal(t, state.ScreenOrders, store.CurrentScreen())
	assert.Equal(t, state.ScreenOrders, n.Active())
}

func TestNavigate_SameScreenIsNoop(t *testing.T) {
	store := state.New(state.Options{})
	n := New(store, nil)
	activations := 0
	n.Register(state.ScreenDashboard, Hooks{Activate: func(context.Context) { activations++ }})

	require.NoError(t, n.Navigate(context.Background(), state.ScreenDashboard))
	assert.Zero(t, activations)
}

func TestNavigate_Veto(t *testing.T) {
	store := state.New(state.Options{})
	n := New(store, nil)
	unsaved := errors.New("unsaved import")
	n.Register(state.ScreenDashboard, Hooks{CanLeave: func(from, to state.Screen) error { return unsaved }})

	err := n.Navigate(context.Background(), state.ScreenFleet)
	assert.ErrorIs(t, err, ErrBlocked)
	assert.ErrorIs(t, err, unsaved)
	assert.Equal(t, state.ScreenDashboard, store.CurrentScreen())

	n.Register(state.ScreenDashboard, Hooks{})
	n.Register(state.ScreenRoutes, Hooks{CanEnter: func(from, to state.Screen) error { return errors.New("no solution") }})
	err = n.Navigate(context.Background(), state.ScreenRoutes)
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, state.ScreenDashboard, store.CurrentScreen())
}

func TestNavigate_UnknownScreen(t *testing.T) {
	n := New(state.New(state.Options{}), nil)
	err := n.Navigate(context.Background(), state.Screen("billing"))
	assert.ErrorIs(t, err, ErrUnknownScreen)
}

func TestStart_ActivatesPersistedScreen(t *testing.T) {
	storage := prefs.NewMemoryStorage()
	state.New(state.Options{Storage: storage}).SetCurrentScreen(state.ScreenFleet)

	store := state.New(state.Options{Storage: storage})
	n := New(store, nil)
	activated := false
	n.Register(state.ScreenFleet, Hooks{Activate: func(context.Context) { activated = true }})

	n.Start(context.Background())
	assert.True(t, activated)
	assert.Equal(t, state.ScreenFleet, n.Active())
}

func TestNextPrev_Wrap(t *testing.T) {
	store := state.New(state.Options{})
	n := New(store, nil)
	ctx := context.Background()

	require.NoError(t, n.Prev(ctx))
	assert.Equal(t, state.ScreenSettings, store.CurrentScreen())
	require.NoError(t, n.Next(ctx))
	assert.Equal(t, state.ScreenDashboard, store.CurrentScreen())
	require.NoError(t, n.Next(ctx))
	assert.Equal(t, state.ScreenOrders, store.CurrentScreen())
}

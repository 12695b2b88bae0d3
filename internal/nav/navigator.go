// Package nav gates movement between dashboard screens.
package nav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/five82/courier/internal/logfields"
	"github.com/five82/courier/internal/state"
)

var (
	ErrUnknownScreen = errors.New("unknown screen")
	ErrBlocked       = errors.New("navigation blocked")
)

// Hooks are the lifecycle callbacks of one screen. All are optional.
type Hooks struct {
	// CanLeave runs on the current screen; a non-nil error vetoes navigation.
	CanLeave func(from, to state.Screen) error
	// CanEnter runs on the target screen; a non-nil error vetoes navigation.
	CanEnter func(from, to state.Screen) error
	// Activate starts the screen's side effects once it is current.
	Activate func(ctx context.Context)
	// Deactivate stops them when the screen is left.
	Deactivate func()
}

// Navigator is a small state machine over state.Screen. It is the only
// writer of the store's current screen.
type Navigator struct {
	store  *state.Store
	logger *slog.Logger

	mu     sync.Mutex
	hooks  map[state.Screen]Hooks
	active state.Screen
}

// New returns a Navigator with every known screen registered without hooks.
func New(store *state.Store, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Navigator{
		store:  store,
		logger: logger,
		hooks:  make(map[state.Screen]Hooks),
	}
	for _, screen := range state.Screens() {
		n.hooks[screen] = Hooks{}
	}
	return n
}

// Register sets the hooks for screen.
func (n *Navigator) Register(screen state.Screen, hooks Hooks) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hooks[screen] = hooks
}

// Start activates the screen persisted in the store.
func (n *Navigator) Start(ctx context.Context) {
	screen := n.store.CurrentScreen()
	n.mu.Lock()
	if _, ok := n.hooks[screen]; !ok {
		screen = state.ScreenDashboard
	}
	n.active = screen
	hooks := n.hooks[screen]
	n.mu.Unlock()

	n.store.SetCurrentScreen(screen)
	if hooks.Activate != nil {
		hooks.Activate(ctx)
	}
}

// Navigate moves to screen. Navigating to the current screen is a no-op.
func (n *Navigator) Navigate(ctx context.Context, to state.Screen) error {
	n.mu.Lock()
	target, ok := n.hooks[to]
	if !ok {
		n.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownScreen, to)
	}
	from := n.store.CurrentScreen()
	if from == to {
		n.mu.Unlock()
		return nil
	}
	current := n.hooks[from]
	n.mu.Unlock()

	if current.CanLeave != nil {
		if err := current.CanLeave(from, to); err != nil {
			return fmt.Errorf("%w: leave %s: %w", ErrBlocked, from, err)
		}
	}
	if target.CanEnter != nil {
		if err := target.CanEnter(from, to); err != nil {
			return fmt.Errorf("%w: enter %s: %w", ErrBlocked, to, err)
		}
	}

	if current.Deactivate != nil {
		current.Deactivate()
	}
	n.store.SetCurrentScreen(to)
	n.mu.Lock()
	n.active = to
	n.mu.Unlock()
	n.logger.Debug("screen changed", logfields.Screen(string(to)))
	if target.Activate != nil {
		target.Activate(ctx)
	}
	return nil
}

// Next navigates to the screen after the current one, wrapping around.
func (n *Navigator) Next(ctx context.Context) error {
	return n.step(ctx, 1)
}

// Prev navigates to the screen before the current one, wrapping around.
func (n *Navigator) Prev(ctx context.Context) error {
	return n.step(ctx, -1)
}

func (n *Navigator) step(ctx context.Context, delta int) error {
	screens := state.Screens()
	idx := slices.Index(screens, n.store.CurrentScreen())
	if idx < 0 {
		idx = 0
	}
	next := (idx + delta + len(screens)) % len(screens)
	return n.Navigate(ctx, screens[next])
}

// Active returns the screen whose hooks were last activated.
func (n *Navigator) Active() state.Screen {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

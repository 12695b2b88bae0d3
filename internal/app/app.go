package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/five82/courier/internal/api"
	"github.com/five82/courier/internal/cache"
	"github.com/five82/courier/internal/config"
	"github.com/five82/courier/internal/jobs"
	"github.com/five82/courier/internal/logfields"
	"github.com/five82/courier/internal/metrics"
	"github.com/five82/courier/internal/nav"
	"github.com/five82/courier/internal/prefs"
	"github.com/five82/courier/internal/restore"
	"github.com/five82/courier/internal/state"
	"github.com/five82/courier/internal/ui"
)

// Options configure the courier application.
type Options struct {
	ConfigPath   string
	EnvFile      string        // empty reads ./.env when present
	PollInterval time.Duration // zero uses the configured interval
	MetricsAddr  string        // empty uses the configured address
}

// ErrNoSolution blocks the routes screen until a job has produced a result.
var ErrNoSolution = errors.New("no solution yet")

// Run boots the courier TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		return err
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PollInterval > 0 {
		cfg.PollInterval = opts.PollInterval
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}

	logFile, err := openLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()
	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recorder, stopMetrics := startMetrics(cfg.MetricsAddr, logger)
	defer stopMetrics()

	var storage state.Storage
	if fs, err := prefs.NewFileStorage(cfg.StateDir); err != nil {
		logger.Warn("state dir unavailable, state will not survive a restart", logfields.Error(err))
		storage = prefs.NewMemoryStorage()
	} else {
		storage = fs
	}

	client, err := api.NewClient(cfg.APIURL)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	clock := clockwork.NewRealClock()
	queryCache := cache.New(cache.WithClock(clock), cache.WithRecorder(recorder))
	store := state.New(state.Options{
		Storage:  storage,
		Clock:    clock,
		Logger:   logger,
		Recorder: recorder,
	})
	solutions := NewCachedSolutions(client, queryCache)

	loader := NewLoader(client, queryCache, store, cache.Policy{
		StaleTime: cfg.CacheStaleTime,
		CacheTime: cfg.CacheTime,
	}, cfg.BranchID, logger)
	defer loader.Watch(ctx)()

	scheduler, err := StartRefresh(ctx, loader, clock, cfg.RefreshInterval, logger)
	if err != nil {
		return err
	}
	defer func() { _ = scheduler.Shutdown() }()

	navigator := nav.New(store, logger)
	registerScreens(navigator, store, loader)

	presenter := ui.NewPresenter(ctx)
	defer presenter.Watch(store)()

	tracker := jobs.New(jobs.Deps{
		Jobs:      client,
		Solutions: solutions,
		Store:     store,
		Presenter: presenter,
	},
		jobs.WithClock(clock),
		jobs.WithInterval(cfg.PollInterval),
		jobs.WithLogger(logger),
		jobs.WithRecorder(recorder),
	)
	defer tracker.Close()

	coordinator := restore.New(restore.Deps{
		Store:     store,
		Jobs:      client,
		Solutions: solutions,
		Tracker:   tracker,
		Display:   presenter,
		Modals:    presenter,
	},
		restore.WithClock(clock),
		restore.WithModalDelay(cfg.ModalDelay),
		restore.WithLogger(logger),
	)
	defer coordinator.Stop()

	model := ui.New(ui.Options{
		Context:   ctx,
		Store:     store,
		Navigator: navigator,
		Jobs:      tracker,
		Creator:   client,
		Data:      loader,
		Prefs:     storage,
		BranchID:  cfg.BranchID,
		LogFile:   cfg.LogFile,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	logger.Info("courier starting",
		slog.String("api_url", cfg.APIURL),
		slog.Int64("branch_id", cfg.BranchID),
		slog.Duration("poll_interval", cfg.PollInterval),
	)

	go presenter.Run(program)
	navigator.Start(ctx)
	go coordinator.Run(ctx)

	_, err = program.Run()
	cancel()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// registerScreens installs the navigation hooks: list screens load their data
// on entry, and the routes screen needs a solution to show.
func registerScreens(navigator *nav.Navigator, store *state.Store, loader *Loader) {
	navigator.Register(state.ScreenDashboard, nav.Hooks{})
	navigator.Register(state.ScreenOrders, nav.Hooks{
		Activate: func(ctx context.Context) { loader.background(ctx, loader.Orders) },
	})
	navigator.Register(state.ScreenFleet, nav.Hooks{
		Activate: func(ctx context.Context) { loader.background(ctx, loader.Vehicles) },
	})
	navigator.Register(state.ScreenOptimize, nav.Hooks{
		Activate: func(ctx context.Context) {
			loader.background(ctx, loader.Orders)
			loader.background(ctx, loader.Vehicles)
		},
	})
	navigator.Register(state.ScreenRoutes, nav.Hooks{
		CanEnter: func(_, _ state.Screen) error {
			if _, ok := store.ActiveSolution(); !ok {
				return ErrNoSolution
			}
			return nil
		},
	})
	navigator.Register(state.ScreenSettings, nav.Hooks{})
}

// openLog routes the standard logger to path and returns the file for slog.
func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := tea.LogToFile(path, "courier")
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// startMetrics serves /metrics on addr. An empty addr records nothing.
func startMetrics(addr string, logger *slog.Logger) (metrics.Recorder, func()) {
	if addr == "" {
		return metrics.NoopRecorder{}, func() {}
	}
	recorder := metrics.NewPrometheusRecorder(prom.NewRegistry())
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener stopped", slog.String("addr", addr), logfields.Error(err))
		}
	}()
	return recorder, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

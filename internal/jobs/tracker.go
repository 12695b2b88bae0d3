package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/five82/courier/internal/api"
	"github.com/five82/courier/internal/logfields"
	"github.com/five82/courier/internal/metrics"
	"github.com/five82/courier/internal/state"
)

// DefaultInterval is the polling period of a tracked job.
const DefaultInterval = 3 * time.Second

// State is the lifecycle position of the tracked job.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateCompleted
	StateFailed
	StateCancelled
	StateInconsistent
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	case StateInconsistent:
		return "inconsistent"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Presenter renders tracker output. Calls are made outside the tracker's
// lock, possibly from the polling goroutine.
type Presenter interface {
	ShowJob(job api.Job)
	ShowSolution(solution api.Solution)
	ShowError(err error)
}

// NopPresenter discards everything.
type NopPresenter struct{}

func (NopPresenter) ShowJob(api.Job)           {}
func (NopPresenter) ShowSolution(api.Solution) {}
func (NopPresenter) ShowError(error)           {}

// Deps are the collaborators of a Tracker.
type Deps struct {
	Jobs      api.JobQuery
	Solutions api.SolutionQuery
	Store     *state.Store
	Presenter Presenter
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock sets the clock that drives polling.
func WithClock(clock clockwork.Clock) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithInterval sets the polling period.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithLogger sets the tracker's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithRecorder sets where poll and fetch outcomes are counted.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(t *Tracker) {
		if recorder != nil {
			t.recorder = recorder
		}
	}
}

type solutionFetch struct {
	done chan struct{}
}

// Tracker follows one optimization job from submission to its terminal
// status. Every snapshot, whether it comes from a poll tick, a cancel
// confirmation or a caller, goes through the same update path, so the
// terminal transition and the solution fetch happen at most once per job.
type Tracker struct {
	jobs      api.JobQuery
	solutions api.SolutionQuery
	store     *state.Store
	presenter Presenter
	clock     clockwork.Clock
	interval  time.Duration
	logger    *slog.Logger
	recorder  metrics.Recorder

	mu       sync.Mutex
	state    State
	job      api.Job
	hasJob   bool
	gen      uint64
	task     *Task
	inflight *solutionFetch
	fetched  int64
	lastErr  error
}

// New builds an idle Tracker.
func New(deps Deps, opts ...Option) *Tracker {
	t := &Tracker{
		jobs:      deps.Jobs,
		solutions: deps.Solutions,
		store:     deps.Store,
		presenter: deps.Presenter,
		clock:     clockwork.NewRealClock(),
		interval:  DefaultInterval,
		logger:    slog.Default(),
		recorder:  metrics.NoopRecorder{},
	}
	if t.presenter == nil {
		t.presenter = NopPresenter{}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open starts tracking job, replacing whatever was tracked before. When poll
// is set and the job is not terminal, the job is re-fetched every interval
// until it reaches a terminal status or ctx is done. Otherwise the snapshot
// is rendered once.
func (t *Tracker) Open(ctx context.Context, job api.Job, poll bool) {
	polling := poll && !job.Status.Terminal()

	t.mu.Lock()
	t.stopLocked()
	t.gen++
	gen := t.gen
	t.job = job
	t.hasJob = true
	t.inflight = nil
	t.fetched = 0
	t.lastErr = nil
	t.state = StateIdle
	if polling {
		t.state = StatePolling
		id := job.ID
		t.task = NewTask(t.clock, t.interval, func() { t.tick(ctx, gen, id) })
		t.task.Start()
	}
	t.mu.Unlock()

	t.logger.Info("tracking job",
		logfields.JobID(job.ID),
		logfields.JobStatus(string(job.Status)),
		slog.Bool("poll", polling),
	)
	if !job.Status.Terminal() {
		t.store.SetActiveJob(job.ID)
	}
	t.update(ctx, gen, job)
}

// Submit creates a job and tracks it with polling.
func (t *Tracker) Submit(ctx context.Context, creator api.JobCreator, req api.JobRequest) (api.Job, error) {
	job, err := creator.CreateJob(ctx, req)
	if err != nil {
		return api.Job{}, fmt.Errorf("submit job: %w", err)
	}
	t.Open(ctx, job, true)
	return job, nil
}

// Update feeds a snapshot of the tracked job into the tracker. Snapshots of
// other jobs are ignored.
func (t *Tracker) Update(ctx context.Context, job api.Job) {
	t.mu.Lock()
	if !t.hasJob || t.job.ID != job.ID {
		t.mu.Unlock()
		return
	}
	gen := t.gen
	t.mu.Unlock()
	t.update(ctx, gen, job)
}

// Cancel asks the server to cancel the tracked job, then re-fetches it and
// applies the confirmed status. The server may still report COMPLETED if the
// job finished first.
func (t *Tracker) Cancel(ctx context.Context) error {
	t.mu.Lock()
	if !t.hasJob {
		t.mu.Unlock()
		return ErrNoJob
	}
	id := t.job.ID
	gen := t.gen
	t.mu.Unlock()

	if err := t.jobs.CancelJob(ctx, id); err != nil {
		return fmt.Errorf("cancel job %d: %w", id, err)
	}
	job, err := t.jobs.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("refresh job %d: %w", id, err)
	}
	t.update(ctx, gen, job)
	return nil
}

// Retry re-runs the solution fetch of a completed job after a failure.
func (t *Tracker) Retry(ctx context.Context) error {
	t.mu.Lock()
	if !t.hasJob || t.state != StateCompleted || !t.job.HasSolution() {
		t.mu.Unlock()
		return ErrNothingToRetry
	}
	gen := t.gen
	id := *t.job.SolutionID
	t.mu.Unlock()
	return t.fetchSolution(ctx, gen, id, true)
}

// Close stops polling and forgets the tracked job. Results that arrive later
// are dropped. The store is left untouched so an interrupted job can be
// resumed on the next start; use Dismiss to also clear it. Close is safe to
// call in any state and more than once.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.gen++
	t.state = StateIdle
	t.job = api.Job{}
	t.hasJob = false
	t.inflight = nil
	t.fetched = 0
	t.lastErr = nil
}

// Dismiss closes the tracker and clears the store's active job.
func (t *Tracker) Dismiss() {
	t.Close()
	t.store.ClearActiveJob()
}

// State returns the current lifecycle state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Current returns the last snapshot of the tracked job.
func (t *Tracker) Current() (api.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job, t.hasJob
}

// LastError returns the last solution fetch error, if any.
func (t *Tracker) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Wait blocks until no solution fetch is in flight.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	f := t.inflight
	t.mu.Unlock()
	if f == nil {
		return nil
	}
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) stopLocked() {
	if t.task != nil {
		t.task.Stop()
		t.task = nil
	}
}

func (t *Tracker) tick(ctx context.Context, gen uint64, id int64) {
	if ctx.Err() != nil {
		t.mu.Lock()
		if gen == t.gen {
			t.stopLocked()
		}
		t.mu.Unlock()
		return
	}
	job, err := t.jobs.GetJob(ctx, id)
	if err != nil {
		t.recorder.IncPoll(metrics.OutcomeError)
		level := slog.LevelWarn
		if api.IsTransient(err) || errors.Is(err, context.Canceled) {
			level = slog.LevelDebug
		}
		t.logger.Log(ctx, level, "job poll failed", logfields.JobID(id), logfields.Error(err))
		return
	}
	t.recorder.IncPoll(metrics.OutcomeSuccess)
	t.update(ctx, gen, job)
}

func (t *Tracker) update(ctx context.Context, gen uint64, job api.Job) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		t.recorder.IncPoll(metrics.OutcomeDropped)
		t.logger.Debug("dropping stale job snapshot", logfields.JobID(job.ID))
		return
	}
	if job.Status.Terminal() {
		t.stopLocked()
	}
	prev := t.state
	t.job = job
	switch job.Status {
	case api.JobCompleted:
		if job.HasSolution() {
			t.state = StateCompleted
		} else {
			t.state = StateInconsistent
		}
	case api.JobFailed:
		t.state = StateFailed
	case api.JobCancelled:
		t.state = StateCancelled
	}
	next := t.state
	t.mu.Unlock()

	t.presenter.ShowJob(job)

	if next == prev && next != StateCompleted {
		return
	}
	switch next {
	case StateCompleted:
		if prev != StateCompleted {
			t.logger.Info("job completed", logfields.JobID(job.ID), logfields.SolutionID(*job.SolutionID))
		}
		_ = t.fetchSolution(ctx, gen, *job.SolutionID, false)
	case StateInconsistent:
		err := fmt.Errorf("job %d: %w", job.ID, ErrMissingSolution)
		t.logger.Error("job completed without solution", logfields.JobID(job.ID))
		t.store.ClearActiveJob()
		t.presenter.ShowError(err)
	case StateFailed:
		t.logger.Warn("job failed", logfields.JobID(job.ID), slog.String("message", job.ErrorMessage))
		t.store.ClearActiveJob()
		t.presenter.ShowError(&JobFailedError{JobID: job.ID, Message: job.ErrorMessage})
	case StateCancelled:
		t.logger.Info("job cancelled", logfields.JobID(job.ID))
		t.store.ClearActiveJob()
	}
}

func (t *Tracker) fetchSolution(ctx context.Context, gen uint64, id int64, force bool) error {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return nil
	}
	if t.inflight != nil {
		t.mu.Unlock()
		t.recorder.IncSolutionFetch(metrics.OutcomeSkipped)
		t.logger.Debug("solution fetch skipped", logfields.SolutionID(id), logfields.Error(ErrFetchInFlight))
		return ErrFetchInFlight
	}
	if !force && t.fetched == id {
		t.mu.Unlock()
		return nil
	}
	f := &solutionFetch{done: make(chan struct{})}
	t.inflight = f
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		if t.inflight == f {
			t.inflight = nil
		}
		t.mu.Unlock()
		close(f.done)
	}()

	solution, err := t.solutions.GetSolution(ctx, id)

	t.mu.Lock()
	current := gen == t.gen
	if current {
		t.lastErr = err
		if err == nil {
			t.fetched = id
		}
	}
	t.mu.Unlock()

	if !current {
		t.recorder.IncSolutionFetch(metrics.OutcomeDropped)
		return nil
	}
	if err != nil {
		t.recorder.IncSolutionFetch(metrics.OutcomeError)
		t.logger.Error("solution fetch failed", logfields.SolutionID(id), logfields.Error(err))
		err = fmt.Errorf("fetch solution %d: %w", id, err)
		t.presenter.ShowError(err)
		return err
	}
	t.recorder.IncSolutionFetch(metrics.OutcomeSuccess)
	t.store.SetActiveSolution(id)
	t.presenter.ShowSolution(solution)
	return nil
}

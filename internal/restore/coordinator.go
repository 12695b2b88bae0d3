// Package restore resumes in-flight work after the dashboard restarts.
package restore

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
	"github.com/five82/courier/internal/state"
)

const (
	// DefaultModalDelay lets the restored screen render before a modal opens
	// on top of it.
	DefaultModalDelay = 300 * time.Millisecond
	DefaultTimeout    = 10 * time.Second
)

// ErrStaleReference wraps the failure to resolve a persisted job or solution
// id. The reference is cleared and not retried.
var ErrStaleReference = errors.New("stale reference")

// JobOpener resumes tracking of a job.
type JobOpener interface {
	Open(ctx context.Context, job api.Job, poll bool)
}

// SolutionDisplay shows a restored solution.
type SolutionDisplay interface {
	ShowSolution(solution api.Solution)
}

// ModalOpener reopens a modal by tag.
type ModalOpener interface {
	OpenModal(tag string)
}

type nopTracker struct{}

func (nopTracker) Open(context.Context, api.Job, bool) {}

type nopDisplay struct{}

func (nopDisplay) ShowSolution(api.Solution) {}

type nopModals struct{}

func (nopModals) OpenModal(string) {}

// Deps are the collaborators of a Coordinator. Tracker, Display and Modals
// are optional.
type Deps struct {
	Store     *state.Store
	Jobs      api.JobQuery
	Solutions api.SolutionQuery
	Tracker   JobOpener
	Display   SolutionDisplay
	Modals    ModalOpener
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClock sets the clock that delays the modal reopen.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithModalDelay sets how long to wait before reopening a modal.
func WithModalDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.modalDelay = d
		}
	}
}

// WithTimeout bounds the network work of one Run.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the coordinator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Result reports what a Run resumed.
type Result struct {
	ResumedSolution int64
	ResumedJob      int64
	ModalScheduled  string
	Cleared         []state.Key
	Errors          []error
}

// Coordinator reads the persisted references in the store and resumes them
// in order: the active solution, else the active job, then the active
// modal. A reference that cannot be resolved is cleared on its own; the
// others are still restored.
type Coordinator struct {
	store      *state.Store
	jobs       api.JobQuery
	solutions  api.SolutionQuery
	tracker    JobOpener
	display    SolutionDisplay
	modals     ModalOpener
	clock      clockwork.Clock
	modalDelay time.Duration
	timeout    time.Duration
	logger     *slog.Logger

	mu        sync.Mutex
	fetched   map[int64]api.Solution
	tracked   int64
	modalTime clockwork.Timer
}

// New builds a Coordinator.
func New(deps Deps, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      deps.Store,
		jobs:       deps.Jobs,
		solutions:  deps.Solutions,
		tracker:    deps.Tracker,
		display:    deps.Display,
		modals:     deps.Modals,
		clock:      clockwork.NewRealClock(),
		modalDelay: DefaultModalDelay,
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
		fetched:    make(map[int64]api.Solution),
	}
	if c.tracker == nil {
		c.tracker = nopTracker{}
	}
	if c.display == nil {
		c.display = nopDisplay{}
	}
	if c.modals == nil {
		c.modals = nopModals{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run restores the persisted references. It returns once the network work is
// done or the timeout expires; a modal reopen is scheduled and never waited
// for. Running it again in the same session does not refetch a solution
// already restored or reopen a job already resumed.
func (c *Coordinator) Run(ctx context.Context) Result {
	session := ctx
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var res Result
	if id, ok := c.store.ActiveSolution(); ok {
		c.restoreSolution(ctx, id, &res)
	}
	if id, ok := c.store.ActiveJob(); ok {
		if res.ResumedSolution != 0 {
			c.logger.Warn("dropping job reference shadowed by solution", logfields.JobID(id))
			c.store.ClearActiveJob()
			res.Cleared = append(res.Cleared, state.KeyActiveJob)
		} else {
			c.restoreJob(ctx, session, id, &res)
		}
	}
	if tag := c.store.ActiveModal(); tag != "" {
		c.restoreModal(tag, &res)
	}

	c.logger.Info("restoration finished",
		logfields.SolutionID(res.ResumedSolution),
		logfields.JobID(res.ResumedJob),
		logfields.Modal(res.ModalScheduled),
		slog.Int("cleared", len(res.Cleared)),
	)
	return res
}

// Stop cancels a pending modal reopen.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modalTime != nil {
		c.modalTime.Stop()
		c.modalTime = nil
	}
}

func (c *Coordinator) restoreSolution(ctx context.Context, id int64, res *Result) {
	solution, err := c.solution(ctx, id)
	if err != nil {
		err = fmt.Errorf("%w: solution %d: %w", ErrStaleReference, id, err)
		c.logger.Warn("clearing unresolvable solution", logfields.SolutionID(id), logfields.Error(err))
		c.store.ClearActiveSolution()
		res.Cleared = append(res.Cleared, state.KeyActiveSolution)
		res.Errors = append(res.Errors, err)
		return
	}
	c.display.ShowSolution(solution)
	res.ResumedSolution = id
}

func (c *Coordinator) solution(ctx context.Context, id int64) (api.Solution, error) {
	c.mu.Lock()
	solution, ok := c.fetched[id]
	c.mu.Unlock()
	if ok {
		return solution, nil
	}
	solution, err := c.solutions.GetSolution(ctx, id)
	if err != nil {
		return api.Solution{}, err
	}
	c.mu.Lock()
	c.fetched[id] = solution
	c.mu.Unlock()
	return solution, nil
}

// restoreJob resolves a job reference within ctx. A resumed job polls under
// session, which outlives the restoration timeout.
func (c *Coordinator) restoreJob(ctx, session context.Context, id int64, res *Result) {
	job, err := c.jobs.GetJob(ctx, id)
	if err != nil {
		err = fmt.Errorf("%w: job %d: %w", ErrStaleReference, id, err)
		c.logger.Warn("clearing unresolvable job", logfields.JobID(id), logfields.Error(err))
		c.store.ClearActiveJob()
		res.Cleared = append(res.Cleared, state.KeyActiveJob)
		res.Errors = append(res.Errors, err)
		return
	}

	switch {
	case !job.Status.Terminal():
		c.mu.Lock()
		resumed := c.tracked == id
		c.tracked = id
		c.mu.Unlock()
		if !resumed {
			c.tracker.Open(session, job, true)
		}
		res.ResumedJob = id
	case job.HasSolution():
		c.logger.Info("job finished while away",
			logfields.JobID(id),
			logfields.SolutionID(*job.SolutionID),
		)
		c.store.SetActiveSolution(*job.SolutionID)
		c.restoreSolution(ctx, *job.SolutionID, res)
	default:
		c.logger.Info("clearing finished job",
			logfields.JobID(id),
			logfields.JobStatus(string(job.Status)),
		)
		c.store.ClearActiveJob()
		res.Cleared = append(res.Cleared, state.KeyActiveJob)
	}
}

func (c *Coordinator) restoreModal(tag string, res *Result) {
	switch tag {
	case state.ModalImport, state.ModalRoutePlanning:
	default:
		c.logger.Warn("clearing unknown modal", logfields.Modal(tag))
		c.store.ClearActiveModal()
		res.Cleared = append(res.Cleared, state.KeyActiveModal)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modalTime != nil {
		c.modalTime.Stop()
	}
	c.modalTime = c.clock.AfterFunc(c.modalDelay, func() {
		c.modals.OpenModal(tag)
	})
	res.ModalScheduled = tag
}

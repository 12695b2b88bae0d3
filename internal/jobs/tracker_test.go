package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/courier/internal/api"
	"github.com/five82/courier/internal/prefs"
	"github.com/five82/courier/internal/state"
)

var testNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

type harness struct {
	clock     *clockwork.FakeClock
	storage   *prefs.MemoryStorage
	store     *state.Store
	jobs      *fakeJobs
	solutions *fakeSolutions
	presenter *recordingPresenter
	recorder  *outcomeRecorder
	tracker   *Tracker
}

func newHarness(t *testing.T, script ...jobResult) *harness {
	t.Helper()
	h := &harness{
		clock:     clockwork.NewFakeClockAt(testNow),
		storage:   prefs.NewMemoryStorage(),
		jobs:      &fakeJobs{script: script},
		solutions: &fakeSolutions{},
		presenter: newRecordingPresenter(),
		recorder:  newOutcomeRecorder(),
	}
	h.store = state.New(state.Options{Storage: h.storage, Clock: h.clock})
	h.tracker = New(Deps{
		Jobs:      h.jobs,
		Solutions: h.solutions,
		Store:     h.store,
		Presenter: h.presenter,
	}, WithClock(h.clock), WithInterval(DefaultInterval), WithRecorder(h.recorder))
	t.Cleanup(h.tracker.Close)
	return h
}

// tick waits for the polling timer to be armed and fires it.
func (h *harness) tick(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1), "polling timer not armed")
	h.clock.Advance(DefaultInterval)
}

func (h *harness) nextJob(t *testing.T) api.Job {
	t.Helper()
	job, ok := recv(h.presenter.jobs)
	require.True(t, ok, "no job snapshot presented")
	return job
}

func (h *harness) nextError(t *testing.T) error {
	t.Helper()
	err, ok := recv(h.presenter.errs)
	require.True(t, ok, "no error presented")
	return err
}

func processing(progress int) jobResult {
	return jobResult{job: api.Job{Status: api.JobProcessing, Progress: progress}}
}

func completed(solution int64) jobResult {
	return jobResult{job: api.Job{Status: api.JobCompleted, Progress: 100, SolutionID: solutionID(solution)}}
}

func TestTracker_CompletesAndFetchesSolutionOnce(t *testing.T) {
	h := newHarness(t, completed(99))
	ctx := context.Background()

	h.tracker.Open(ctx, api.Job{ID: 7, Status: api.JobProcessing, Progress: 40}, true)
	assert.Equal(t, 40, h.nextJob(t).Progress)
	assert.Equal(t, StatePolling, h.tracker.State())
	id, ok := h.store.ActiveJob()
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	h.tick(t)
	assert.Equal(t, api.JobCompleted, h.nextJob(t).Status)
	sol, ok := recv(h.presenter.solutions)
	require.True(t, ok, "solution not presented")
	assert.Equal(t, int64(99), sol.ID)

	assert.Equal(t, StateCompleted, h.tracker.State())
	assert.Equal(t, 1, h.solutions.callCount())
	_, ok = h.store.ActiveJob()
	assert.False(t, ok)
	solID, ok := h.store.ActiveSolution()
	require.True(t, ok)
	assert.Equal(t, int64(99), solID)

	// Persisted: a fresh store over the same storage sees the handoff.
	reloaded := state.New(state.Options{Storage: h.storage, Clock: h.clock})
	_, ok = reloaded.ActiveJob()
	assert.False(t, ok)
	solID, ok = reloaded.ActiveSolution()
	require.True(t, ok)
	assert.Equal(t, int64(99), solID)

	// Polling has stopped.
	h.clock.Advance(10 * DefaultInterval)
	assert.Equal(t, 1, h.jobs.getCount())
	assert.Equal(t, 1, h.solutions.callCount())
}

func TestTracker_ConcurrentUpdatesFetchOnce(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.solutions.block = release
	h.solutions.started = make(chan struct{}, 4)
	ctx := context.Background()
	job := api.Job{ID: 7, Status: api.JobCompleted, SolutionID: solutionID(99)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.tracker.Open(ctx, job, false)
	}()
	_, ok := recv(h.solutions.started)
	require.True(t, ok, "fetch did not start")

	// A second snapshot while the first fetch is running is skipped.
	h.tracker.Update(ctx, job)
	outcome, ok := recv(h.recorder.fetches)
	require.True(t, ok)
	assert.Equal(t, "skipped", outcome)

	close(release)
	_, ok = recv(done)
	require.True(t, ok)
	_, ok = recv(h.presenter.solutions)
	require.True(t, ok)

	// And one after it has finished is a no-op.
	h.tracker.Update(ctx, job)
	require.NoError(t, h.tracker.Wait(ctx))
	assert.Equal(t, 1, h.solutions.callCount())
	assert.Len(t, h.presenter.solutions, 0)
}

func TestTracker_Failed(t *testing.T) {
	h := newHarness(t, jobResult{job: api.Job{Status: api.JobFailed, ErrorMessage: "no feasible route"}})
	ctx := context.Background()

	h.tracker.Open(ctx, api.Job{ID: 12, Status: api.JobPending}, true)
	h.nextJob(t)
	h.tick(t)

	err := h.nextError(t)
	var failed *JobFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, int64(12), failed.JobID)
	assert.Equal(t, "no feasible route", failed.Message)
	assert.EqualError(t, err, "job 12 failed: no feasible route")

	assert.Equal(t, StateFailed, h.tracker.State())
	_, ok := h.store.ActiveJob()
	assert.False(t, ok)
	assert.Zero(t, h.solutions.callCount())
}

func TestTracker_CompletedWithoutSolutionIsInconsistent(t *testing.T) {
	h := newHarness(t, jobResult{job: api.Job{Status: api.JobCompleted}})
	ctx := context.Background()

	h.tracker.Open(ctx, api.Job{ID: 3, Status: api.JobProcessing}, true)
	h.nextJob(t)
	h.tick(t)

	err := h.nextError(t)
	assert.ErrorIs(t, err, ErrMissingSolution)
	assert.Equal(t, StateInconsistent, h.tracker.State())
	_, ok := h.store.ActiveJob()
	assert.False(t, ok)
	assert.Zero(t, h.solutions.callCount())
}

func TestTracker_TransientErrorsKeepPolling(t *testing.T) {
	h := newHarness(t,
		jobResult{err: errUnavailable},
		processing(60),
		completed(5),
	)
	ctx := context.Background()

	h.tracker.Open(ctx, api.Job{ID: 8, Status: api.JobProcessing, Progress: 10}, true)
	h.nextJob(t)

	h.tick(t)
	outcome, ok := recv(h.recorder.polls)
	require.True(t, ok)
	assert.Equal(t, "error", outcome)
	assert.Equal(t, StatePolling, h.tracker.State())

	h.tick(t)
	assert.Equal(t, 60, h.nextJob(t).Progress)

	h.tick(t)
	_, ok = recv(h.presenter.solutions)
	require.True(t, ok)
	assert.Equal(t, StateCompleted, h.tracker.State())
	assert.Equal(t, 3, h.jobs.getCount())
}

func TestTracker_CancelConverges(t *testing.T) {
	h := newHarness(t, jobResult{job: api.Job{Status: api.JobCancelled}})
	ctx := context.Background()

	h.tracker.Open(ctx, api.Job{ID: 21, Status: api.JobProcessing}, true)
	h.nextJob(t)

	require.NoError(t, h.tracker.Cancel(ctx))
	assert.Equal(t, []int64{21}, h.jobs.cancels)
	assert.Equal(t, StateCancelled, h.tracker.State())
	_, ok := h.store.ActiveJob()
	assert.False(t, ok)

	h.clock.Advance(10 * DefaultInterval)
	assert.Equal(t, 1, h.jobs.getCount())
}

func TestTracker_CancelRacingCompletion(t *testing.T) {
	h := newHarness(t, completed(31))
	ctx := context.Background()

	h.tracker.Open(ctx, api.Job{ID: 30, Status: api.JobProcessing}, true)
	require.NoError(t, h.tracker.Cancel(ctx))

	assert.Equal(t, StateCompleted, h.tracker.State())
	solID, ok := h.store.ActiveSolution()
	require.True(t, ok)
	assert.Equal(t, int64(31), solID)
}

func TestTracker_CancelErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.tracker.Cancel(ctx), ErrNoJob)

	h.jobs.cancelErr = errUnavailable
	h.tracker.Open(ctx, api.Job{ID: 4, Status: api.JobProcessing}, true)
	err := h.tracker.Cancel(ctx)
	require.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, StatePolling, h.tracker.State())
}

func TestTracker_CloseIsIdempotentAndStopsPolling(t *testing.T) {
	h := newHarness(t, processing(50))
	ctx := context.Background()

	h.tracker.Open(ctx, api.Job{ID: 9, Status: api.JobProcessing}, true)
	h.tracker.Close()
	h.tracker.Close()

	assert.Equal(t, StateIdle, h.tracker.State())
	_, ok := h.tracker.Current()
	assert.False(t, ok)
	h.clock.Advance(10 * DefaultInterval)
	assert.Zero(t, h.jobs.getCount())

	// Close keeps the reference for the next start; Dismiss drops it.
	id, ok := h.store.ActiveJob()
	require.True(t, ok)
	assert.Equal(t, int64(9), id)
	h.tracker.Dismiss()
	_, ok = h.store.ActiveJob()
	assert.False(t, ok)
}

func TestTracker_DropsResultsAfterClose(t *testing.T) {
	h := newHarness(t, completed(77))
	release := make(chan struct{})
	h.jobs.block = release
	h.jobs.started = make(chan struct{}, 4)
	ctx := context.Background()

	h.tracker.Open(ctx, api.Job{ID: 6, Status: api.JobProcessing}, true)
	h.nextJob(t)
	h.tick(t)
	_, ok := recv(h.jobs.started)
	require.True(t, ok)

	h.tracker.Close()
	close(release)

	assert.Equal(t, "success", mustRecv(t, h.recorder.polls))
	assert.Equal(t, "dropped", mustRecv(t, h.recorder.polls))
	assert.Equal(t, StateIdle, h.tracker.State())
	assert.Zero(t, h.solutions.callCount())
	_, ok = h.store.ActiveSolution()
	assert.False(t, ok)
}

func TestTracker_RetryAfterFetchFailure(t *testing.T) {
	h := newHarness(t)
	h.solutions.errs = []error{errUnavailable}
	ctx := context.Background()

	h.tracker.Open(ctx, api.Job{ID: 2, Status: api.JobCompleted, SolutionID: solutionID(3)}, false)
	err := h.nextError(t)
	assert.ErrorIs(t, err, errUnavailable)
	assert.ErrorIs(t, h.tracker.LastError(), errUnavailable)
	assert.Equal(t, StateCompleted, h.tracker.State())
	_, ok := h.store.ActiveSolution()
	assert.False(t, ok)

	require.NoError(t, h.tracker.Retry(ctx))
	assert.NoError(t, h.tracker.LastError())
	solID, ok := h.store.ActiveSolution()
	require.True(t, ok)
	assert.Equal(t, int64(3), solID)
	assert.Equal(t, 2, h.solutions.callCount())
}

func TestTracker_RetryWithoutCompletedJob(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.tracker.Retry(context.Background()), ErrNothingToRetry)
}

func TestTracker_UpdateIgnoresOtherJobs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.tracker.Open(ctx, api.Job{ID: 1, Status: api.JobProcessing}, false)
	h.nextJob(t)
	h.tracker.Update(ctx, api.Job{ID: 2, Status: api.JobFailed})

	assert.Equal(t, StateIdle, h.tracker.State())
	assert.Len(t, h.presenter.jobs, 0)
}

func TestTracker_Submit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	creator := &fakeCreator{job: api.Job{ID: 11, Status: api.JobPending}}
	req := api.JobRequest{BranchID: 1, Date: "2026-10-19", OrderIDs: []int64{1, 2}, VehicleIDs: []int64{5}}

	job, err := h.tracker.Submit(ctx, creator, req)
	require.NoError(t, err)
	assert.Equal(t, int64(11), job.ID)
	assert.Equal(t, req, creator.req)
	assert.Equal(t, StatePolling, h.tracker.State())
	id, ok := h.store.ActiveJob()
	require.True(t, ok)
	assert.Equal(t, int64(11), id)

	_, err = h.tracker.Submit(ctx, &fakeCreator{err: errUnavailable}, req)
	assert.ErrorIs(t, err, errUnavailable)
}

func TestTracker_SubmitReplacesShownSolution(t *testing.T) {
	h := newHarness(t)
	h.store.SetActiveSolution(99)
	creator := &fakeCreator{job: api.Job{ID: 100, Status: api.JobProcessing}}

	_, err := h.tracker.Submit(context.Background(), creator, api.JobRequest{OrderIDs: []int64{1}, VehicleIDs: []int64{5}})
	require.NoError(t, err)

	_, showing := h.store.ActiveSolution()
	assert.False(t, showing)
	id, ok := h.store.ActiveJob()
	require.True(t, ok)
	assert.Equal(t, int64(100), id)
}

func TestTracker_StopsWhenContextDone(t *testing.T) {
	h := newHarness(t, processing(20))
	ctx, cancel := context.WithCancel(context.Background())

	h.tracker.Open(ctx, api.Job{ID: 5, Status: api.JobProcessing}, true)
	cancel()
	h.tick(t)

	// The cancelled tick stops the task instead of re-arming it.
	require.Eventually(t, h.tracker.taskStopped, waitTimeout, time.Millisecond)
	assert.Zero(t, h.jobs.getCount())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "polling", StatePolling.String())
	assert.Equal(t, "inconsistent", StateInconsistent.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func (t *Tracker) taskStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.task == nil
}

func mustRecv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	v, ok := recv(ch)
	require.True(t, ok, "timed out waiting")
	return v
}

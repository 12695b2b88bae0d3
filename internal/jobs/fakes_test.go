package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/five82/courier/internal/api"
)

const waitTimeout = 2 * time.Second

type jobResult struct {
	job api.Job
	err error
}

// fakeJobs replays a script of GetJob results; the last one repeats.
type fakeJobs struct {
	mu        sync.Mutex
	script    []jobResult
	gets      int
	cancels   []int64
	cancelErr error
	block     chan struct{} // when set, GetJob waits for it to close
	started   chan struct{}
}

func (f *fakeJobs) GetJob(ctx context.Context, id int64) (api.Job, error) {
	f.mu.Lock()
	f.gets++
	var res jobResult
	if len(f.script) > 0 {
		res = f.script[0]
		if len(f.script) > 1 {
			f.script = f.script[1:]
		}
	}
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return api.Job{}, ctx.Err()
		}
	}
	if res.err != nil {
		return api.Job{}, res.err
	}
	res.job.ID = id
	return res.job, nil
}

func (f *fakeJobs) CancelJob(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancels = append(f.cancels, id)
	return nil
}

func (f *fakeJobs) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

type fakeSolutions struct {
	mu      sync.Mutex
	calls   []int64
	errs    []error // consumed one per call before succeeding
	block   chan struct{}
	started chan struct{}
}

func (f *fakeSolutions) GetSolution(ctx context.Context, id int64) (api.Solution, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return api.Solution{}, ctx.Err()
		}
	}
	if err != nil {
		return api.Solution{}, err
	}
	return api.Solution{ID: id, JobID: 7, TotalDistance: 42.5}, nil
}

func (f *fakeSolutions) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeCreator struct {
	job api.Job
	err error
	req api.JobRequest
}

func (f *fakeCreator) CreateJob(_ context.Context, req api.JobRequest) (api.Job, error) {
	f.req = req
	return f.job, f.err
}

type recordingPresenter struct {
	jobs      chan api.Job
	solutions chan api.Solution
	errs      chan error
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{
		jobs:      make(chan api.Job, 32),
		solutions: make(chan api.Solution, 32),
		errs:      make(chan error, 32),
	}
}

func (p *recordingPresenter) ShowJob(job api.Job)           { p.jobs <- job }
func (p *recordingPresenter) ShowSolution(sol api.Solution) { p.solutions <- sol }
func (p *recordingPresenter) ShowError(err error)           { p.errs <- err }

// outcomeRecorder forwards poll and fetch outcomes to channels.
type outcomeRecorder struct {
	polls   chan string
	fetches chan string
}

func newOutcomeRecorder() *outcomeRecorder {
	return &outcomeRecorder{polls: make(chan string, 32), fetches: make(chan string, 32)}
}

func (r *outcomeRecorder) IncCacheLookup(string)           {}
func (r *outcomeRecorder) IncStaleFallback()               {}
func (r *outcomeRecorder) IncPoll(outcome string)          { r.polls <- outcome }
func (r *outcomeRecorder) IncSolutionFetch(outcome string) { r.fetches <- outcome }
func (r *outcomeRecorder) IncPersistFailure()              {}

var errUnavailable = errors.New("503 service unavailable")

func recv[T any](ch <-chan T) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(waitTimeout):
		var zero T
		return zero, false
	}
}

func solutionID(id int64) *int64 { return &id }

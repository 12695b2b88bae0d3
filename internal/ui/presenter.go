package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/courier/internal/api"
	"github.com/five82/courier/internal/jobs"
	"github.com/five82/courier/internal/restore"
	"github.com/five82/courier/internal/state"
)

var (
	_ jobs.Presenter          = (*Presenter)(nil)
	_ restore.SolutionDisplay = (*Presenter)(nil)
	_ restore.ModalOpener     = (*Presenter)(nil)
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

type (
	jobMsg      api.Job
	solutionMsg api.Solution
	errorMsg    struct{ err error }
	modalMsg    string
	storeMsg    state.Key
)

// Presenter forwards tracker, restoration and store events to the program
// in the order they happen. Enqueueing never waits on the program itself,
// so store subscribers may fire from inside Update.
type Presenter struct {
	ctx   context.Context
	queue chan tea.Msg
}

const presenterBuffer = 64

// NewPresenter returns a Presenter whose queue drains until ctx is done.
func NewPresenter(ctx context.Context) *Presenter {
	return &Presenter{ctx: ctx, queue: make(chan tea.Msg, presenterBuffer)}
}

// Run forwards queued messages to sender until the context is done.
func (p *Presenter) Run(sender Sender) {
	for {
		select {
		case <-p.ctx.Done():
			return
		case msg := <-p.queue:
			sender.Send(msg)
		}
	}
}

// ShowJob queues a job snapshot for the progress panel.
func (p *Presenter) ShowJob(job api.Job) {
	p.enqueue(jobMsg(job))
}

// ShowSolution queues a fetched solution for the routes screen.
func (p *Presenter) ShowSolution(solution api.Solution) {
	p.enqueue(solutionMsg(solution))
}

// ShowError queues an error for the footer.
func (p *Presenter) ShowError(err error) {
	p.enqueue(errorMsg{err: err})
}

// OpenModal queues a modal reopen.
func (p *Presenter) OpenModal(tag string) {
	p.enqueue(modalMsg(tag))
}

func (p *Presenter) enqueue(msg tea.Msg) {
	select {
	case p.queue <- msg:
	case <-p.ctx.Done():
	}
}

// Watch subscribes to every store key. Change notices are coalesced: when
// the queue is full the notice is dropped, since the view rereads the store
// on the next render anyway.
func (p *Presenter) Watch(store *state.Store) (unsubscribe func()) {
	stops := make([]func(), 0, len(state.AllKeys))
	for _, key := range state.AllKeys {
		stops = append(stops, store.Subscribe(key, func(c state.Change) {
			select {
			case p.queue <- storeMsg(c.Key):
			default:
			}
		}))
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

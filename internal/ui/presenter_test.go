package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/courier/internal/api"
	"github.com/five82/courier/internal/prefs"
	"github.com/five82/courier/internal/state"
)

type chanSender chan tea.Msg

func (c chanSender) Send(msg tea.Msg) { c <- msg }

func recvMsg(t *testing.T, ch chanSender) tea.Msg {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPresenterPreservesOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPresenter(ctx)
	p.ShowJob(api.Job{ID: 7, Status: api.JobProcessing})
	p.ShowSolution(api.Solution{ID: 99})
	p.ShowError(errors.New("boom"))
	p.OpenModal(state.ModalImport)

	sent := make(chanSender, 8)
	go p.Run(sent)

	if msg, ok := recvMsg(t, sent).(jobMsg); !ok || msg.ID != 7 {
		t.Fatalf("first message = %#v, want job 7", msg)
	}
	if msg, ok := recvMsg(t, sent).(solutionMsg); !ok || msg.ID != 99 {
		t.Fatalf("second message = %#v, want solution 99", msg)
	}
	if msg, ok := recvMsg(t, sent).(errorMsg); !ok || msg.err.Error() != "boom" {
		t.Fatalf("third message = %#v, want error", msg)
	}
	if msg, ok := recvMsg(t, sent).(modalMsg); !ok || string(msg) != state.ModalImport {
		t.Fatalf("fourth message = %#v, want import modal", msg)
	}
}

func TestPresenterEnqueueReturnsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPresenter(ctx)
	for i := 0; i < presenterBuffer; i++ {
		p.ShowError(errors.New("fill"))
	}
	cancel()

	done := make(chan struct{})
	go func() {
		p.ShowError(errors.New("late"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked after the context was cancelled")
	}
}

func TestPresenterWatchNeverBlocks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPresenter(ctx)
	store := state.New(state.Options{Storage: prefs.NewMemoryStorage()})
	stop := p.Watch(store)
	defer stop()

	// Nothing drains the queue; the store must keep accepting writes.
	for i := 0; i < presenterBuffer*2; i++ {
		store.ToggleSidebar()
	}
	if got := len(p.queue); got != presenterBuffer {
		t.Fatalf("queue length = %d, want %d", got, presenterBuffer)
	}
}

func TestPresenterWatchForwardsKeys(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPresenter(ctx)
	store := state.New(state.Options{Storage: prefs.NewMemoryStorage()})
	stop := p.Watch(store)

	sent := make(chanSender, 8)
	go p.Run(sent)

	store.SetCurrentScreen(state.ScreenFleet)
	if msg, ok := recvMsg(t, sent).(storeMsg); !ok || state.Key(msg) != state.KeyCurrentScreen {
		t.Fatalf("message = %#v, want current screen change", msg)
	}

	stop()
	store.SetCurrentScreen(state.ScreenOrders)
	select {
	case msg := <-sent:
		t.Fatalf("unexpected message after unsubscribe: %#v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

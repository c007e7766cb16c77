package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/unclebandit/jobmailer-backend/internal/metrics"
	"github.com/unclebandit/jobmailer-backend/internal/model"
	"github.com/unclebandit/jobmailer-backend/internal/notification"
)

// EventSink accepts lifecycle events for asynchronous delivery
type EventSink interface {
	Enqueue(ev model.Event)
}

// EventWorker hands lifecycle events to the relay one at a time, in the order
// they were enqueued. Each event is offered to the relay once.
type EventWorker struct {
	Relay notification.Relay
	Log   zerolog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	events  chan model.Event
	done    chan struct{}
}

// Constructor
func NewEventWorker(relay notification.Relay, log zerolog.Logger, buffer int) *EventWorker {
	return &EventWorker{
		Relay:  relay,
		Log:    log,
		events: make(chan model.Event, buffer),
		done:   make(chan struct{}),
	}
}

// Start begins processing events until Close is called
func (w *EventWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	go func() {
		defer close(w.done)
		for ev := range w.events {
			err := w.Relay.Notify(ctx, ev)
			metrics.IncRelayEvent(ev.Action, err == nil)
			if err != nil {
				w.Log.Warn().Err(err).
					Str("action", ev.Action).
					Str("batch_id", ev.BatchID).
					Msg("failed to relay lifecycle event")
			}
		}
	}()
}

// Enqueue blocks while the buffer is full. Events enqueued after Close are dropped.
func (w *EventWorker) Enqueue(ev model.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.Log.Warn().Str("action", ev.Action).Str("batch_id", ev.BatchID).Msg("event worker closed, dropping event")
		return
	}
	w.events <- ev
}

// Close stops accepting events and waits until the buffered ones are relayed
func (w *EventWorker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.events)
	}
	if !w.started {
		w.started = true
		close(w.done)
	}
	w.mu.Unlock()
	<-w.done
}

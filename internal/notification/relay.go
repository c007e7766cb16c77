package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/unclebandit/jobmailer-backend/internal/model"
)

// Relay delivers batch lifecycle events to an external observer.
//
// Delivery is at most once: Notify is called exactly once per event and is never
// retried. Callers log and count a returned error; it never changes the outcome
// of a send.
type Relay interface {
	Notify(ctx context.Context, ev model.Event) error
}

// Fanout delivers every event to each relay in turn
type Fanout []Relay

func (f Fanout) Notify(ctx context.Context, ev model.Event) error {
	var errs []error
	for _, r := range f {
		if err := r.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Forwarder decodes broker messages into events and hands them to a relay
type Forwarder struct {
	Relay Relay
}

func (f *Forwarder) Handle(ctx context.Context, body []byte) error {
	var ev model.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("invalid event payload: %w", err)
	}
	if ev.Action == "" {
		return fmt.Errorf("event has no action")
	}
	return f.Relay.Notify(ctx, ev)
}

package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/unclebandit/jobmailer-backend/internal/model"
)

// Publisher is the broker side used by AMQPRelay. queue.Publisher implements it.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// AMQPRelay publishes events to the broker for the relay worker to forward
type AMQPRelay struct {
	Publisher Publisher
}

func (a *AMQPRelay) Notify(ctx context.Context, ev model.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := a.Publisher.Publish(ctx, body); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Action, err)
	}
	return nil
}

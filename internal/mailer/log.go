package mailer

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogSender is the dry-run transport: it logs the message and reports success
type LogSender struct {
	log zerolog.Logger
}

var _ Sender = (*LogSender)(nil)

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString() + "@dry-run"
	s.log.Info().
		Str("message_id", id).
		Str("from", msg.FromName).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("dry run: email not delivered")
	return id, nil
}

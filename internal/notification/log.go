package notification

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/unclebandit/jobmailer-backend/internal/model"
)

// LogRelay writes every event to the structured log
type LogRelay struct {
	Log zerolog.Logger
}

func (l *LogRelay) Notify(_ context.Context, ev model.Event) error {
	e := l.Log.Info().
		Str("action", ev.Action).
		Str("batch_id", ev.BatchID)
	switch ev.Action {
	case model.ActionBatchStarted:
		e = e.Int("total_recipients", ev.TotalRecipients).Str("sender", ev.Sender)
	case model.ActionEmailSent:
		e = e.Str("recipient", ev.Recipient).Str("company", ev.Company).Str("message_id", ev.MessageID)
	case model.ActionEmailFailed:
		e = e.Str("recipient", ev.Recipient).Str("company", ev.Company).Str("error", ev.Error)
	case model.ActionBatchCompleted:
		e = e.Int("total_scheduled", ev.TotalScheduled).Int("successful", len(ev.SuccessfulEmails))
	}
	e.Msg("lifecycle event")
	return nil
}

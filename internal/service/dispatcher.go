package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unclebandit/jobmailer-backend/internal/mailer"
	"github.com/unclebandit/jobmailer-backend/internal/metrics"
	"github.com/unclebandit/jobmailer-backend/internal/model"
	"github.com/unclebandit/jobmailer-backend/internal/queue"
	"github.com/unclebandit/jobmailer-backend/internal/repository"
)

// BatchDispatcher schedules the sends of a batch
type BatchDispatcher interface {
	Dispatch(ctx context.Context, batch model.Batch) *BatchRun
}

// Dispatcher paces a batch: recipient i is sent at i*Interval and the batch
// completes Grace after the last send was due.
type Dispatcher struct {
	Queue  *queue.DelayQueue
	Sender mailer.Sender
	Repo   repository.SendRecordRepositoryInterface
	Events EventSink

	Interval time.Duration
	Grace    time.Duration

	// Attachment is added to every message when set
	Attachment        *mailer.Attachment
	FromAddress       string
	DefaultSenderName string

	Log zerolog.Logger
}

var _ BatchDispatcher = (*Dispatcher)(nil)

// BatchRun tracks one dispatched batch
type BatchRun struct {
	ID         string
	Tasks      []*queue.Task
	Completion *queue.Task

	outcomes chan model.DeliveryOutcome
	done     chan struct{}
}

// Outcomes yields one outcome per attempted recipient and is closed when the batch completes
func (r *BatchRun) Outcomes() <-chan model.DeliveryOutcome {
	return r.outcomes
}

// Done is closed once the batch has completed or been cancelled
func (r *BatchRun) Done() <-chan struct{} {
	return r.done
}

// Dispatch schedules every recipient and returns immediately. Sends are detached
// from ctx cancellation; only the queue can cancel them.
func (d *Dispatcher) Dispatch(ctx context.Context, batch model.Batch) *BatchRun {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	n := len(batch.Recipients)
	run := &BatchRun{
		ID:       batch.ID,
		Tasks:    make([]*queue.Task, 0, n),
		outcomes: make(chan model.DeliveryOutcome, n),
		done:     make(chan struct{}),
	}
	sendCtx := context.WithoutCancel(ctx)
	senderName := batch.SenderName
	if senderName == "" {
		senderName = d.DefaultSenderName
	}

	metrics.IncBatch()
	d.emit(d.startedEvent(batch, senderName))
	d.Log.Info().Str("batch_id", batch.ID).Int("recipients", n).Msg("batch dispatched")

	var inflight sync.WaitGroup
	sent := make([]bool, n)

	for i, r := range batch.Recipients {
		i, r := i, r // per-iteration copies for the closure (go.mod targets go 1.21)
		offset := time.Duration(i) * d.Interval
		inflight.Add(1)
		task := d.Queue.Schedule(queue.Job{
			Name:  fmt.Sprintf("send:%s:%d", batch.ID, i),
			Delay: offset,
			Run: func() {
				defer inflight.Done()
				out := d.send(sendCtx, batch, senderName, r, offset)
				sent[i] = out.Status == model.StatusSent
				run.outcomes <- out
			},
			OnCancel: inflight.Done,
		})
		run.Tasks = append(run.Tasks, task)
	}

	finish := func() {
		close(run.outcomes)
		close(run.done)
	}
	var lastDue time.Duration
	if n > 0 {
		lastDue = time.Duration(n-1) * d.Interval
	}
	run.Completion = d.Queue.Schedule(queue.Job{
		Name:  "complete:" + batch.ID,
		Delay: lastDue + d.Grace,
		Run: func() {
			inflight.Wait()
			successful := []string{}
			for i, ok := range sent {
				if ok {
					successful = append(successful, batch.Recipients[i].Email)
				}
			}
			d.emit(model.Event{
				Timestamp:        d.now().UTC(),
				Action:           model.ActionBatchCompleted,
				BatchID:          batch.ID,
				TotalScheduled:   n,
				SuccessfulEmails: successful,
			})
			d.Log.Info().
				Str("batch_id", batch.ID).
				Int("scheduled", n).
				Int("sent", len(successful)).
				Msg("batch completed")
			finish()
		},
		OnCancel: func() {
			d.Log.Warn().Str("batch_id", batch.ID).Msg("batch cancelled before completion")
			go func() {
				inflight.Wait()
				finish()
			}()
		},
	})
	return run
}

// send makes one transport attempt. The event carries the batch's classification
// date and time, not the moment of sending.
func (d *Dispatcher) send(ctx context.Context, batch model.Batch, senderName string, r model.Recipient, offset time.Duration) model.DeliveryOutcome {
	msg := mailer.Message{
		FromName:    senderName,
		FromAddress: d.FromAddress,
		To:          r.Email,
		Subject:     r.Subject,
		Body:        r.Body,
	}
	if d.Attachment != nil {
		msg.Attachments = []mailer.Attachment{*d.Attachment}
	}

	messageID, err := d.Sender.Send(ctx, msg)
	now := d.now()

	out := model.DeliveryOutcome{
		RecordID: r.RecordID,
		Email:    r.Email,
		Company:  r.Company,
		Offset:   offset,
	}
	ok := err == nil
	if ok {
		out.Status = model.StatusSent
		out.MessageID = messageID
	} else {
		out.Status = model.StatusFailed
		out.Error = err.Error()
	}
	metrics.IncEmail(out.Status)

	log := d.Log.With().Str("batch_id", batch.ID).Str("recipient", r.Email).Logger()
	if ok {
		log.Info().Str("message_id", messageID).Msg("email sent")
	} else {
		log.Warn().Err(err).Msg("email failed")
	}

	// recipients whose record could not be stored are still sent
	if r.RecordID != 0 {
		if uerr := d.Repo.UpdateStatus(ctx, r.RecordID, out.Status, out.MessageID, out.Error); uerr != nil {
			metrics.IncRecordError("update_status")
			log.Error().Err(uerr).Int64("record_id", r.RecordID).Msg("failed to update send record")
		}
	}

	action := model.ActionEmailSent
	if !ok {
		action = model.ActionEmailFailed
	}
	d.emit(model.Event{
		Timestamp: now.UTC(),
		Action:    action,
		BatchID:   batch.ID,
		Recipient: r.Email,
		Company:   r.Company,
		Date:      batch.SentDate,
		Time:      batch.SentTime,
		MessageID: out.MessageID,
		Success:   &ok,
		Error:     out.Error,
	})
	return out
}

func (d *Dispatcher) startedEvent(batch model.Batch, senderName string) model.Event {
	companies := make([]model.CompanyInfo, 0, len(batch.Recipients))
	for _, r := range batch.Recipients {
		companies = append(companies, model.CompanyInfo{
			Email:   r.Email,
			Company: r.Company,
			Date:    batch.SentDate,
			Time:    batch.SentTime,
		})
	}
	return model.Event{
		Timestamp:          d.now().UTC(),
		Action:             model.ActionBatchStarted,
		BatchID:            batch.ID,
		TotalRecipients:    len(batch.Recipients),
		Sender:             senderName,
		Subject:            batch.Subject,
		ExtractedCompanies: companies,
	}
}

func (d *Dispatcher) emit(ev model.Event) {
	if d.Events == nil {
		return
	}
	d.Events.Enqueue(ev)
}

func (d *Dispatcher) now() time.Time {
	return d.Queue.Clock().Now()
}

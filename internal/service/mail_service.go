// internal/service/mail_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	appErrors "github.com/unclebandit/jobmailer-backend/internal/errors"
	"github.com/unclebandit/jobmailer-backend/internal/metrics"
	"github.com/unclebandit/jobmailer-backend/internal/model"
	"github.com/unclebandit/jobmailer-backend/internal/repository"
)

type MailService struct {
	Repo       repository.SendRecordRepositoryInterface
	Dispatcher BatchDispatcher
	Clock      clockwork.Clock
	Log        zerolog.Logger
	// StatsWindowDays bounds the per-day breakdown of Stats
	StatsWindowDays int
}

// SendRequest is a batch submitted by a client
type SendRequest struct {
	Sender     string
	Subject    string
	Content    string
	Recipients []string
}

// SendBatchResult is returned once every recipient has been persisted and scheduled
type SendBatchResult struct {
	BatchID   string
	Processed []model.ProcessedEmail
	Run       *BatchRun
}

// ExtractionResult is the answer of a classifier dry run
type ExtractionResult struct {
	Email   string
	Company string
	Date    string
	Time    string
}

func (s *MailService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

// SendBatch classifies every recipient, persists a pending record for each and hands
// the batch to the dispatcher. A record that fails to persist marks that recipient
// db_error; the others are unaffected.
func (s *MailService) SendBatch(ctx context.Context, req SendRequest) (*SendBatchResult, error) {
	if len(req.Recipients) == 0 {
		return nil, appErrors.NewValidation("recipients", "recipients array is required")
	}
	addrs := make([]string, len(req.Recipients))
	for i, addr := range req.Recipients {
		addrs[i] = strings.TrimSpace(addr)
		if addrs[i] == "" {
			return nil, appErrors.NewValidation("recipients", fmt.Sprintf("recipient %d is empty", i+1))
		}
	}

	now := s.now()
	batch := model.Batch{
		ID:         uuid.NewString(),
		SenderName: strings.TrimSpace(req.Sender),
		Subject:    req.Subject,
		Body:       req.Content,
		SentDate:   now.Format(model.DateLayout),
		SentTime:   now.Format(model.TimeLayout),
		Recipients: make([]model.Recipient, 0, len(req.Recipients)),
	}
	result := &SendBatchResult{
		BatchID:   batch.ID,
		Processed: make([]model.ProcessedEmail, 0, len(req.Recipients)),
	}

	for _, email := range addrs {
		company := ExtractCompanyName(email)
		data := recipientData(email, company, batch.SenderName)

		rec := &model.SendRecord{
			ToEmail:     email,
			CompanyName: company,
			Subject:     RenderTemplate(req.Subject, data),
			Body:        RenderTemplate(req.Content, data),
			SentDate:    batch.SentDate,
			SentTime:    batch.SentTime,
			Status:      model.StatusPending,
		}

		processed := model.ProcessedEmail{Email: email, CompanyName: company}
		if err := s.Repo.Create(ctx, rec); err != nil {
			metrics.IncRecordError("create")
			s.Log.Error().Err(err).Str("batch_id", batch.ID).Str("recipient", email).Msg("failed to save send record")
			processed.Status = model.ProcessedDBError
			processed.Error = err.Error()
			rec.ID = 0
		} else {
			processed.Status = model.ProcessedSaved
			processed.DBID = rec.ID
		}
		result.Processed = append(result.Processed, processed)

		batch.Recipients = append(batch.Recipients, model.Recipient{
			Email:    email,
			Company:  company,
			RecordID: rec.ID,
			Subject:  rec.Subject,
			Body:     rec.Body,
		})
	}

	result.Run = s.Dispatcher.Dispatch(ctx, batch)
	return result, nil
}

func (s *MailService) ListEmails(ctx context.Context, f model.RecordFilter) ([]*model.SendRecord, error) {
	return s.Repo.List(ctx, f)
}

func (s *MailService) GetRecord(ctx context.Context, id int64) (*model.SendRecord, error) {
	return s.Repo.GetByID(ctx, id)
}

// Stats aggregates the store; the per-day breakdown covers the trailing window
func (s *MailService) Stats(ctx context.Context) (*model.Stats, error) {
	window := s.StatsWindowDays
	if window <= 0 {
		window = 30
	}
	since := s.now().AddDate(0, 0, -window).Format(model.DateLayout)
	return s.Repo.Stats(ctx, since)
}

// TestExtraction runs the classifier without persisting anything
func (s *MailService) TestExtraction(email string) (*ExtractionResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, appErrors.NewValidation("email", "email is required")
	}
	now := s.now()
	return &ExtractionResult{
		Email:   email,
		Company: ExtractCompanyName(email),
		Date:    now.Format(model.DateLayout),
		Time:    now.Format(model.TimeLayout),
	}, nil
}

// Purge deletes records created more than days ago
func (s *MailService) Purge(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, appErrors.NewValidation("days", "retention must be at least one day")
	}
	cutoff := s.now().AddDate(0, 0, -days)
	n, err := s.Repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.Log.Info().Int64("deleted", n).Int("days", days).Msg("purged old send records")
	return n, nil
}

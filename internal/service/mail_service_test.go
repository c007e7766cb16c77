package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/jobmailer-backend/internal/errors"
	"github.com/unclebandit/jobmailer-backend/internal/logger"
	"github.com/unclebandit/jobmailer-backend/internal/model"
	"github.com/unclebandit/jobmailer-backend/internal/service"
)

// captureDispatcher records the batch instead of sending it
type captureDispatcher struct {
	batches []model.Batch
}

func (c *captureDispatcher) Dispatch(ctx context.Context, batch model.Batch) *service.BatchRun {
	c.batches = append(c.batches, batch)
	return &service.BatchRun{ID: batch.ID}
}

// cutoffRepo remembers the arguments of time-based queries
type cutoffRepo struct {
	*MockRecordRepo
	since  string
	cutoff time.Time
}

func (c *cutoffRepo) Stats(ctx context.Context, since string) (*model.Stats, error) {
	c.since = since
	return &model.Stats{}, nil
}

func (c *cutoffRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	c.cutoff = cutoff
	return 4, nil
}

func newMailService(repo *MockRecordRepo) (*service.MailService, *captureDispatcher) {
	disp := &captureDispatcher{}
	return &service.MailService{
		Repo:       repo,
		Dispatcher: disp,
		Clock:      clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local)),
		Log:        logger.Nop(),
	}, disp
}

func TestSendBatchPersistsAndDispatches(t *testing.T) {
	repo := NewMockRecordRepo()
	svc, disp := newMailService(repo)

	res, err := svc.SendBatch(context.Background(), service.SendRequest{
		Sender:     "Jane Doe",
		Subject:    "Application at {company}",
		Content:    "Dear {company} team, I am writing to {email}. {sender}",
		Recipients: []string{"hr@acme.com", " jobs@initech.com "},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.BatchID)
	require.Len(t, res.Processed, 2)

	assert.Equal(t, model.ProcessedEmail{Email: "hr@acme.com", CompanyName: "Acme", DBID: 1, Status: model.ProcessedSaved}, res.Processed[0])
	assert.Equal(t, "jobs@initech.com", res.Processed[1].Email)
	assert.Equal(t, int64(2), res.Processed[1].DBID)

	rec, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, rec.Status)
	assert.Equal(t, "Application at Acme", rec.Subject)
	assert.Equal(t, "Dear Acme team, I am writing to hr@acme.com. Jane Doe", rec.Body)
	assert.Equal(t, "2026-03-01", rec.SentDate)
	assert.Equal(t, "09:30", rec.SentTime)

	require.Len(t, disp.batches, 1)
	batch := disp.batches[0]
	assert.Equal(t, res.BatchID, batch.ID)
	assert.Equal(t, "Jane Doe", batch.SenderName)
	require.Len(t, batch.Recipients, 2)
	assert.Equal(t, int64(1), batch.Recipients[0].RecordID)
	assert.Equal(t, "Application at Initech", batch.Recipients[1].Subject)
}

func TestSendBatchMarksDBErrors(t *testing.T) {
	repo := NewMockRecordRepo()
	repo.failEmail = "jobs@initech.com"
	svc, disp := newMailService(repo)

	res, err := svc.SendBatch(context.Background(), service.SendRequest{
		Subject:    "Hello",
		Content:    "Body",
		Recipients: []string{"hr@acme.com", "jobs@initech.com", "careers@globex.com"},
	})
	require.NoError(t, err)

	statuses := []string{res.Processed[0].Status, res.Processed[1].Status, res.Processed[2].Status}
	assert.Equal(t, []string{model.ProcessedSaved, model.ProcessedDBError, model.ProcessedSaved}, statuses)
	assert.Equal(t, "disk I/O error", res.Processed[1].Error)
	assert.Zero(t, res.Processed[1].DBID)

	// the failed recipient is still handed to the dispatcher, without a record
	require.Len(t, disp.batches[0].Recipients, 3)
	assert.Zero(t, disp.batches[0].Recipients[1].RecordID)
}

func TestSendBatchRejectsEmptyRecipients(t *testing.T) {
	repo := NewMockRecordRepo()
	svc, disp := newMailService(repo)

	_, err := svc.SendBatch(context.Background(), service.SendRequest{Subject: "Hello"})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Empty(t, disp.batches)
	assert.Empty(t, repo.records, "nothing persisted on invalid input")
}

func TestSendBatchRejectsBlankRecipient(t *testing.T) {
	repo := NewMockRecordRepo()
	svc, disp := newMailService(repo)

	_, err := svc.SendBatch(context.Background(), service.SendRequest{
		Subject:    "Hello",
		Recipients: []string{"hr@acme.com", "   "},
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Empty(t, disp.batches, "nothing dispatched")
	assert.Empty(t, repo.records, "nothing persisted, not even the valid recipient")
}

func TestTestExtraction(t *testing.T) {
	svc, _ := newMailService(NewMockRecordRepo())

	res, err := svc.TestExtraction("careers@apple.com")
	require.NoError(t, err)
	assert.Equal(t, "Apple", res.Company)
	assert.Equal(t, "2026-03-01", res.Date)
	assert.Equal(t, "09:30", res.Time)

	_, err = svc.TestExtraction("   ")
	assert.True(t, appErrors.IsValidation(err))
}

func TestStatsUsesTrailingWindow(t *testing.T) {
	repo := &cutoffRepo{MockRecordRepo: NewMockRecordRepo()}
	svc, _ := newMailService(repo.MockRecordRepo)
	svc.Repo = repo

	_, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-01-30", repo.since)

	svc.StatsWindowDays = 7
	_, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-02-22", repo.since)
}

func TestPurge(t *testing.T) {
	repo := &cutoffRepo{MockRecordRepo: NewMockRecordRepo()}
	svc, _ := newMailService(repo.MockRecordRepo)
	svc.Repo = repo

	n, err := svc.Purge(context.Background(), 90)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, time.Date(2025, 12, 1, 9, 30, 0, 0, time.Local), repo.cutoff)

	_, err = svc.Purge(context.Background(), 0)
	assert.True(t, appErrors.IsValidation(err))
}

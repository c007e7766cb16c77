package controller_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/unclebandit/jobmailer-backend/internal/controller"
	"github.com/unclebandit/jobmailer-backend/internal/db"
	"github.com/unclebandit/jobmailer-backend/internal/handler"
	"github.com/unclebandit/jobmailer-backend/internal/logger"
	"github.com/unclebandit/jobmailer-backend/internal/model"
	"github.com/unclebandit/jobmailer-backend/internal/repository"
	"github.com/unclebandit/jobmailer-backend/internal/service"
)

// MockDispatcher records batches without sending anything
type MockDispatcher struct {
	batches []model.Batch
}

func (m *MockDispatcher) Dispatch(ctx context.Context, batch model.Batch) *service.BatchRun {
	m.batches = append(m.batches, batch)
	return &service.BatchRun{ID: batch.ID}
}

type testServer struct {
	handler    http.Handler
	conn       *sql.DB
	dispatcher *MockDispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	conn, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local))
	repo := repository.NewSendRecordRepository(conn)
	disp := &MockDispatcher{}

	mail := &service.MailService{Repo: repo, Dispatcher: disp, Clock: clock, Log: logger.Nop()}
	export := &service.ExportService{Repo: repo, Clock: clock}
	ctrl := controller.NewMailController(mail, export, logger.Nop())
	records := handler.NewRecordHandler(mail, conn, logger.Nop())

	return &testServer{
		handler:    controller.NewRouter(ctrl, records, logger.Nop()),
		conn:       conn,
		dispatcher: disp,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestSendHandler(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/send", map[string]interface{}{
		"sender":     "Jane Doe",
		"subject":    "Application",
		"content":    "Hello {company}",
		"recipients": []string{"hr@microsoft.com", "someone@gmail.com"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["batch_id"])
	assert.Equal(t, float64(2), resp["total_processed"])

	processed := resp["processed_emails"].([]interface{})
	first := processed[0].(map[string]interface{})
	assert.Equal(t, "hr@microsoft.com", first["email"])
	assert.Equal(t, "Microsoft", first["company_name"])
	assert.Equal(t, "saved", first["status"])
	assert.Equal(t, float64(1), first["db_id"])

	second := processed[1].(map[string]interface{})
	assert.Equal(t, "Personal Email", second["company_name"])

	require.Len(t, s.dispatcher.batches, 1)
	assert.Equal(t, "Hello Microsoft", s.dispatcher.batches[0].Recipients[0].Body)
}

func TestSendHandlerRejectsMissingRecipients(t *testing.T) {
	s := newTestServer(t)

	for name, body := range map[string]interface{}{
		"missing":   map[string]interface{}{"subject": "x"},
		"empty":     map[string]interface{}{"subject": "x", "recipients": []string{}},
		"blank":     map[string]interface{}{"subject": "x", "recipients": []string{""}},
		"spaces":    map[string]interface{}{"subject": "x", "recipients": []string{"hr@acme.com", "   "}},
		"malformed": "{not json",
	} {
		t.Run(name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/send", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, false, decode(t, w)["success"])
		})
	}

	assert.Empty(t, s.dispatcher.batches)
	var count int
	require.NoError(t, s.conn.QueryRow(`SELECT COUNT(*) FROM send_records`).Scan(&count))
	assert.Zero(t, count, "rejected requests persist nothing")
}

func TestListEmailsHandler(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/send", map[string]interface{}{
		"subject":    "Application",
		"recipients": []string{"hr@microsoft.com", "jobs@google.com", "careers@apple.com"},
	})

	w := s.do(t, http.MethodGet, "/api/emails?company=goo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, float64(1), resp["total"])
	emails := resp["emails"].([]interface{})
	assert.Equal(t, "jobs@google.com", emails[0].(map[string]interface{})["to_email"])
	assert.Equal(t, "goo", resp["filters"].(map[string]interface{})["company"])

	w = s.do(t, http.MethodGet, "/api/emails?date_from=2026-03-02", nil)
	assert.Equal(t, float64(0), decode(t, w)["total"])
}

func TestGetRecordHandler(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/send", map[string]interface{}{
		"subject":    "Application",
		"recipients": []string{"hr@microsoft.com"},
	})

	w := s.do(t, http.MethodGet, "/api/emails/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode(t, w)["email"].(map[string]interface{})
	assert.Equal(t, "pending", rec["status"])

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/emails/42", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/emails/abc", nil).Code)
}

func TestStatsHandler(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/send", map[string]interface{}{
		"subject":    "Application",
		"recipients": []string{"hr@microsoft.com", "talent@microsoft.com", "jobs@google.com"},
	})

	w := s.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.NotEmpty(t, resp["generated_at"])

	stats := resp["statistics"].(map[string]interface{})
	assert.Equal(t, float64(3), stats["total_emails"])
	byCompany := stats["emails_by_company"].([]interface{})
	top := byCompany[0].(map[string]interface{})
	assert.Equal(t, "Microsoft", top["company_name"])
	assert.Equal(t, float64(2), top["count"])
	byDate := stats["emails_by_date"].([]interface{})
	assert.Equal(t, "2026-03-01", byDate[0].(map[string]interface{})["sent_date"])
}

func TestTestExtractionHandler(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/test-extraction", map[string]string{"email": "contact@consulting-firm.co.uk"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "Consulting Firm", resp["extracted_company"])
	assert.Equal(t, "2026-03-01", resp["current_date"])
	assert.Equal(t, "09:30", resp["current_time"])

	w = s.do(t, http.MethodPost, "/api/test-extraction", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email address is required", decode(t, w)["error"])
}

func TestExportExcelHandler(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/export-excel", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no email data found in database to export", decode(t, w)["error"])

	s.do(t, http.MethodPost, "/api/send", map[string]interface{}{
		"subject":    "Application",
		"recipients": []string{"hr@microsoft.com", "jobs@google.com"},
	})

	w = s.do(t, http.MethodGet, "/api/export-excel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Email_Applications_Export_2026-03-01.xlsx")

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Email Applications")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestPurgeHandler(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/api/emails?days=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/api/emails?days=0", nil).Code)

	w := s.do(t, http.MethodDelete, "/api/emails?days=90", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["deleted"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "mailer_http_requests_total"))
}

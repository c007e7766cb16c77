// internal/controller/mail_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	appErrors "github.com/unclebandit/jobmailer-backend/internal/errors"
	"github.com/unclebandit/jobmailer-backend/internal/model"
	"github.com/unclebandit/jobmailer-backend/internal/service"
)

type MailController struct {
	MailService   *service.MailService
	ExportService *service.ExportService
	Log           zerolog.Logger

	validate *validator.Validate
}

func NewMailController(mail *service.MailService, export *service.ExportService, log zerolog.Logger) *MailController {
	return &MailController{
		MailService:   mail,
		ExportService: export,
		Log:           log,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

type sendBody struct {
	Sender     string   `json:"sender"`
	Subject    string   `json:"subject"`
	Content    string   `json:"content"`
	Recipients []string `json:"recipients" validate:"required,min=1,dive,required"`
}

type extractionBody struct {
	Email string `json:"email" validate:"required"`
}

func (c *MailController) validation() *validator.Validate {
	if c.validate == nil {
		c.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return c.validate
}

func (c *MailController) Send(w http.ResponseWriter, r *http.Request) {
	var body sendBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	for i, addr := range body.Recipients {
		body.Recipients[i] = strings.TrimSpace(addr)
	}
	if err := c.validation().Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Recipients array is required")
		return
	}

	result, err := c.MailService.SendBatch(r.Context(), service.SendRequest{
		Sender:     body.Sender,
		Subject:    body.Subject,
		Content:    body.Content,
		Recipients: body.Recipients,
	})
	if err != nil {
		c.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"message":          "Email batch scheduled and data saved to database",
		"batch_id":         result.BatchID,
		"processed_emails": result.Processed,
		"total_processed":  len(result.Processed),
	})
}

func (c *MailController) ListEmails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.RecordFilter{
		Company:  q.Get("company"),
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
	}

	emails, err := c.MailService.ListEmails(r.Context(), filter)
	if err != nil {
		c.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"emails":  emails,
		"total":   len(emails),
		"filters": filter,
	})
}

func (c *MailController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.MailService.Stats(r.Context())
	if err != nil {
		c.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"statistics":   stats,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *MailController) TestExtraction(w http.ResponseWriter, r *http.Request) {
	var body extractionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := c.validation().Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Email address is required")
		return
	}

	res, err := c.MailService.TestExtraction(body.Email)
	if err != nil {
		c.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"email":             res.Email,
		"extracted_company": res.Company,
		"current_date":      res.Date,
		"current_time":      res.Time,
	})
}

func (c *MailController) ExportExcel(w http.ResponseWriter, r *http.Request) {
	wb, err := c.ExportService.Export(r.Context())
	if err != nil {
		c.fail(w, err)
		return
	}
	defer wb.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+wb.Filename+`"`)
	if _, err := wb.WriteTo(w); err != nil {
		c.Log.Error().Err(err).Str("filename", wb.Filename).Msg("failed to stream export")
		return
	}
	c.Log.Info().Str("filename", wb.Filename).Int("rows", wb.Rows).Msg("export downloaded")
}

func (c *MailController) Purge(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "days must be a number")
		return
	}
	n, err := c.MailService.Purge(r.Context(), days)
	if err != nil {
		c.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": n,
	})
}

// fail maps service errors onto status codes
func (c *MailController) fail(w http.ResponseWriter, err error) {
	switch {
	case appErrors.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, appErrors.ErrNoRecords):
		writeError(w, http.StatusBadRequest, err.Error())
	case appErrors.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		c.Log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

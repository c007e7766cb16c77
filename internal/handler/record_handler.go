// internal/handler/record_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/unclebandit/jobmailer-backend/internal/errors"
	"github.com/unclebandit/jobmailer-backend/internal/service"
)

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RecordHandler serves single-record lookups and the health probe
type RecordHandler struct {
	Service *service.MailService
	DB      Pinger
	Log     zerolog.Logger
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(svc *service.MailService, db Pinger, log zerolog.Logger) *RecordHandler {
	return &RecordHandler{
		Service: svc,
		DB:      db,
		Log:     log,
	}
}

// GetRecordHandler returns one send record by ID
func (h *RecordHandler) GetRecordHandler(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid record id", http.StatusBadRequest)
		return
	}

	rec, err := h.Service.GetRecord(r.Context(), id)
	if err != nil {
		if appErrors.IsNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.Log.Error().Err(err).Int64("record_id", id).Msg("failed to fetch record")
		http.Error(w, "failed to fetch record: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"email":   rec,
	})
}

// HealthHandler reports whether the record store answers
func (h *RecordHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := h.DB.PingContext(ctx); err != nil {
		h.Log.Warn().Err(err).Msg("health check failed")
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dvloznov/pfm-ledger/internal/api/middleware"
	"github.com/dvloznov/pfm-ledger/internal/export"
	"github.com/rs/zerolog"
)

// ExportHandler serves the full ledger as a download.
type ExportHandler struct {
	engine Engine
	now    func() time.Time
	log    zerolog.Logger
}

func NewExportHandler(engine Engine, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{engine: engine, now: time.Now, log: log}
}

// Export handles GET /api/export?format=json|csv|xlsx
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	records := h.engine.Export(r.Context())
	filename := fmt.Sprintf("ledger-%s.%s", h.now().Format("20060102"), format)

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.Write(w, format, records); err != nil {
		// Headers are already sent; the client sees a truncated body.
		h.log.Error().Err(err).Str("format", string(format)).Msg("Failed to write export")
		return
	}
	h.log.Info().Str("format", string(format)).Int("rows", len(records)).Msg("Ledger exported")
}

// Health handles GET /health
func Health(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   now().Format(time.RFC3339),
		})
	}
}

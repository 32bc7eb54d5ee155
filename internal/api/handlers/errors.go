package handlers

import (
	"errors"
	"net/http"

	"github.com/dvloznov/pfm-ledger/internal/api/middleware"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/gcs"
	"github.com/rs/zerolog"
)

// errorBody is the JSON shape of every failed tool call.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Index *int   `json:"index,omitempty"`
	Field string `json:"field,omitempty"`
}

type errorClass struct {
	target error
	status int
	code   string
}

// Order matters: a concurrent write also wraps ErrPersistFailed.
var errorClasses = []errorClass{
	{gcs.ErrConcurrentWrite, http.StatusConflict, "concurrent_write"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrProposalNotFound, http.StatusNotFound, "proposal_not_found"},
	{domain.ErrBatchTooLarge, http.StatusRequestEntityTooLarge, "batch_too_large"},
	{domain.ErrMissingDate, http.StatusUnprocessableEntity, "missing_date"},
	{domain.ErrMalformedRow, http.StatusUnprocessableEntity, "malformed_row"},
	{domain.ErrImmutableField, http.StatusBadRequest, "immutable_field"},
	{domain.ErrAmbiguousPeriod, http.StatusBadRequest, "ambiguous_period"},
	{domain.ErrInvalidLimit, http.StatusBadRequest, "invalid_limit"},
	{domain.ErrInvalidFilter, http.StatusBadRequest, "invalid_filter"},
	{domain.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{domain.ErrInvalidType, http.StatusBadRequest, "invalid_type"},
	{domain.ErrInvalidCurrency, http.StatusBadRequest, "invalid_currency"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
	{domain.ErrPersistFailed, http.StatusServiceUnavailable, "persist_failed"},
}

// classify maps an engine error to an HTTP status and a stable code.
func classify(err error) (int, string) {
	for _, c := range errorClasses {
		if errors.Is(err, c.target) {
			return c.status, c.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// writeServiceError reports err to the caller. Server side failures are
// logged and their details are not returned.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, tool string, err error) {
	status, code := classify(err)
	body := errorBody{Error: err.Error(), Code: code}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
		if verr.Index >= 0 {
			index := verr.Index
			body.Index = &index
		}
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("tool", tool).Int("status", status).Msg("Tool call failed")
		if status == http.StatusInternalServerError {
			body.Error = "Internal server error"
		}
	} else {
		log.Debug().Err(err).Str("tool", tool).Int("status", status).Msg("Tool call rejected")
	}
	middleware.WriteJSON(w, status, body)
}

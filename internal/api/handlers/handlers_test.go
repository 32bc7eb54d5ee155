package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/pfm-ledger/internal/api/middleware"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/gcs"
	"github.com/dvloznov/pfm-ledger/internal/ledger"
	"github.com/dvloznov/pfm-ledger/internal/pipeline"
	"github.com/dvloznov/pfm-ledger/internal/proposals"
	"github.com/dvloznov/pfm-ledger/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testKey = "test-key"

type testServer struct {
	handler http.Handler
	source  *store.MemorySource
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	src := store.NewMemorySource()
	st := store.New(src, "COP", zerolog.Nop())
	_, err := st.Load(context.Background())
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }
	svc := ledger.NewService(st, proposals.NewMemoryStore(now), ledger.Options{
		DefaultCurrency: "COP",
		Now:             now,
		Logger:          zerolog.Nop(),
	})
	receipts := pipeline.NewReceiptPipeline(pipeline.Deps{Proposer: svc, DefaultCurrency: "COP"})

	return &testServer{
		handler: NewRouter(RouterConfig{Engine: svc, Receipts: receipts, APIKey: testKey, Logger: zerolog.Nop()}),
		source:  src,
	}
}

func (s *testServer) call(t *testing.T, tool, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/tools/"+tool, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.APIKeyHeader, testKey)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func entry(i int) string {
	return fmt.Sprintf(`{"date":"2025-01-%02d","amount":"10.000","type":"gasto","category":"comida","description":"Entry %d"}`, i%28+1, i)
}

func TestAddThenQuery(t *testing.T) {
	s := newTestServer(t)

	rec, out := s.call(t, "add_transaction", `{"date":"15/01/2025","amount":"3.000.000","type":"ingreso","category":"salario","description":"Nómina enero"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), out["id"])
	assert.Equal(t, "2025-01-15", out["date"])
	assert.Equal(t, "income", out["type"])
	assert.Equal(t, "salary", out["category"])
	assert.Equal(t, "manual", out["source"])

	rec, out = s.call(t, "add_transaction", `{"date":"2025-01-20","amount":200000,"type":"gasto","category":"impuestos","description":"Retención"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, out = s.call(t, "calculate_totals", `{"year":2025,"month":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3000000", out["income"])
	assert.Equal(t, "200000", out["expense"])
	assert.Equal(t, "2800000", out["balance"])
	assert.Equal(t, float64(2), out["count"])

	rec, out = s.call(t, "list_transactions", `{"type":"expense","limit":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), out["count"])

	rec, out = s.call(t, "expenses_by_category", `{"year":2025}`)
	require.Equal(t, http.StatusOK, rec.Code)
	categories := out["categories"].([]any)
	require.Len(t, categories, 1)
	assert.Equal(t, "taxes", categories[0].(map[string]any)["category"])

	rec, out = s.call(t, "monthly_summary", `{"year":2025}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["months"], 12)

	rec, out = s.call(t, "expenses_by_month", `{"category":"taxes","year":2025}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["months"], 12)

	rec, out = s.call(t, "get_transaction", `{"id":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Retención", out["description"])
}

func TestToolErrors(t *testing.T) {
	s := newTestServer(t)

	twentyOne := make([]string, 21)
	for i := range twentyOne {
		twentyOne[i] = entry(i)
	}
	badFourth := []string{entry(0), entry(1), entry(2), `{"date":"2025-01-05","amount":"-5","type":"gasto","category":"comida","description":"Bad"}`}

	tests := []struct {
		name      string
		tool      string
		body      string
		status    int
		code      string
		wantIndex *float64
	}{
		{name: "batch too large", tool: "add_transactions_batch", body: `{"transactions":[` + strings.Join(twentyOne, ",") + `]}`, status: http.StatusRequestEntityTooLarge, code: "batch_too_large"},
		{name: "invalid batch entry", tool: "add_transactions_batch", body: `{"transactions":[` + strings.Join(badFourth, ",") + `]}`, status: http.StatusBadRequest, code: "invalid_amount", wantIndex: ptr(3.0)},
		{name: "bad date", tool: "add_transaction", body: `{"date":"31/02/2025","amount":"1","type":"gasto","category":"comida","description":"x"}`, status: http.StatusBadRequest, code: "invalid_date"},
		{name: "bad type", tool: "add_transaction", body: `{"amount":"1","type":"transfer","category":"comida","description":"x"}`, status: http.StatusBadRequest, code: "invalid_type"},
		{name: "month without year", tool: "calculate_totals", body: `{"month":1}`, status: http.StatusBadRequest, code: "ambiguous_period"},
		{name: "zero limit", tool: "list_transactions", body: `{"limit":0}`, status: http.StatusBadRequest, code: "invalid_limit"},
		{name: "inverted range", tool: "list_transactions", body: `{"start_date":"2025-02-01","end_date":"2025-01-01"}`, status: http.StatusBadRequest, code: "invalid_filter"},
		{name: "unknown field", tool: "calculate_totals", body: `{"yaer":2025}`, status: http.StatusBadRequest, code: "invalid_input"},
		{name: "delete unknown", tool: "delete_transaction", body: `{"id":99}`, status: http.StatusNotFound, code: "not_found"},
		{name: "missing id", tool: "delete_transaction", body: `{}`, status: http.StatusBadRequest, code: "invalid_input"},
		{name: "commit unknown", tool: "commit_proposal", body: `{"proposal_id":"nope"}`, status: http.StatusNotFound, code: "proposal_not_found"},
		{name: "receipt without date", tool: "propose_receipt", body: `{"receipt":{"rows":[{"concept":"Sueldo","earnings":"100"}]}}`, status: http.StatusUnprocessableEntity, code: "missing_date"},
		{name: "receipt row with both columns", tool: "propose_receipt", body: `{"receipt":{"date":"2025-01-30","rows":[{"concept":"Ajuste","earnings":"10","deductions":"5"}]}}`, status: http.StatusUnprocessableEntity, code: "malformed_row"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := s.call(t, tt.tool, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, out["code"])
			if tt.wantIndex != nil {
				assert.Equal(t, *tt.wantIndex, out["index"])
			}
		})
	}

	assert.Zero(t, s.source.Writes(), "rejected calls must not write")
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.call(t, "add_transaction", entry(1))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, out := s.call(t, "update_transaction", `{"id":1,"changes":{"amount":"12.500","category":"restaurante"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "12500", out["amount"])
	assert.Equal(t, "restaurant", out["category"])

	rec, out = s.call(t, "update_transaction", `{"id":1,"changes":{"id":7}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "immutable_field", out["code"])

	rec, _ = s.call(t, "delete_transaction", `{"id":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, out = s.call(t, "delete_transaction", `{"id":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", out["code"])
}

func TestReceiptProposalFlow(t *testing.T) {
	s := newTestServer(t)

	rec, out := s.call(t, "propose_receipt", `{"receipt":{"date":"2025-01-30","rows":[
		{"concept":"Sueldo Básico","earnings":"3.000.000","deductions":"0"},
		{"concept":"Retención en la Fuente","earnings":0,"deductions":150000},
		{"concept":"Retención en la Fuente","earnings":"","deductions":"50.000"}
	]}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id, _ := out["proposal_id"].(string)
	require.NotEmpty(t, id)
	assert.Len(t, out["records"], 2)
	assert.Zero(t, s.source.Writes(), "proposing must not write")

	rec, _ = s.call(t, "get_proposal", `{"proposal_id":"`+id+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, out = s.call(t, "commit_proposal", `{"proposal_id":"`+id+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), out["count"])
	assert.Equal(t, 1, s.source.Writes())

	rec, _ = s.call(t, "commit_proposal", `{"proposal_id":"`+id+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, out = s.call(t, "calculate_totals", `{"year":2025,"month":1}`)
	assert.Equal(t, "3000000", out["income"])
	assert.Equal(t, "200000", out["expense"])
}

func TestProposeAndDiscard(t *testing.T) {
	s := newTestServer(t)

	rec, out := s.call(t, "propose_transactions", `{"transactions":[`+entry(1)+`,{"amount":"5","type":"gasto","category":"mascotas","description":"Gato"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, out["needs_review"])
	assert.NotEmpty(t, out["warnings"])
	id := out["proposal_id"].(string)

	rec, out = s.call(t, "list_proposals", `{"source":"batch"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), out["count"])
	listed := out["proposals"].([]any)[0].(map[string]any)
	assert.Equal(t, id, listed["proposal_id"])
	assert.Equal(t, true, listed["needs_review"])

	rec, out = s.call(t, "discard_proposal", `{"proposal_id":"`+id+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "discarded", out["status"])

	_, out = s.call(t, "list_proposals", `{}`)
	assert.Equal(t, float64(0), out["count"])

	rec, _ = s.call(t, "list_proposals", `{"source":"fax"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.call(t, "commit_proposal", `{"proposal_id":"`+id+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, s.source.Writes())
}

func TestPersistFailure(t *testing.T) {
	s := newTestServer(t)
	s.source.FailWrites = errors.New("disk full")

	rec, out := s.call(t, "add_transaction", entry(1))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "persist_failed", out["code"])

	s.source.FailWrites = nil
	_, out = s.call(t, "list_transactions", `{}`)
	assert.Equal(t, float64(0), out["count"])
}

func TestUnknownTool(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.call(t, "drop_tables", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTools(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	req.Header.Set(middleware.APIKeyHeader, testKey)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "propose_receipt")
	assert.Contains(t, rec.Body.String(), "calculate_totals")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tools/calculate_totals", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.call(t, "add_transaction", entry(1))
	require.Equal(t, http.StatusCreated, rec.Code)

	get := func(format string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/export?format="+format, nil)
		req.Header.Set(middleware.APIKeyHeader, testKey)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	rec = get("csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "ID;Date;Description"))

	rec = get("json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count": 1`)

	rec = get("xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Transactions")
	require.NoError(t, err)
	assert.Equal(t, "Entry 1", rows[1][4])

	rec = get("pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"concurrent write", fmt.Errorf("Apply insert: %w: %w", domain.ErrPersistFailed, fmt.Errorf("ReplaceAll: %w", gcs.ErrConcurrentWrite)), http.StatusConflict, "concurrent_write"},
		{"persist", fmt.Errorf("x: %w", domain.ErrPersistFailed), http.StatusServiceUnavailable, "persist_failed"},
		{"unavailable", domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
		{"validation", &domain.ValidationError{Index: 2, Field: "amount", Err: domain.ErrInvalidAmount}, http.StatusBadRequest, "invalid_amount"},
		{"validation without cause", &domain.ValidationError{Index: -1, Field: "description"}, http.StatusBadRequest, "invalid_input"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func ptr[T any](v T) *T { return &v }

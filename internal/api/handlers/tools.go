package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/dvloznov/pfm-ledger/internal/api/middleware"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/ledger"
	"github.com/dvloznov/pfm-ledger/internal/logger"
	"github.com/dvloznov/pfm-ledger/internal/pipeline"
	"github.com/dvloznov/pfm-ledger/internal/proposals"
	"github.com/dvloznov/pfm-ledger/internal/query"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds a tool request; receipt images arrive inline.
const maxBodyBytes = 10 << 20

// Engine is the part of ledger.Service the gateway exposes.
type Engine interface {
	AddTransaction(ctx context.Context, in ledger.Input) (domain.Transaction, error)
	AddTransactionsBatch(ctx context.Context, ins []ledger.Input) ([]domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, p ledger.Patch) (domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) (domain.Transaction, error)
	Get(ctx context.Context, id int64) (domain.Transaction, error)
	Export(ctx context.Context) []domain.Transaction
	Totals(ctx context.Context, f query.TotalsFilter) (query.Totals, error)
	List(ctx context.Context, f query.ListFilter, limit *int) ([]domain.Transaction, error)
	ExpensesByCategory(ctx context.Context, p query.Period) ([]query.CategoryTotal, error)
	ExpensesByMonth(ctx context.Context, category string, year int) ([]query.MonthTotal, error)
	MonthlySummary(ctx context.Context, year int) ([]query.MonthSummary, error)
	Propose(ctx context.Context, ins []ledger.Input, source domain.Source) (*proposals.Proposal, error)
	GetProposal(ctx context.Context, id string) (*proposals.Proposal, error)
	ListProposals(ctx context.Context, source domain.Source, limit int) ([]*proposals.Proposal, error)
	Commit(ctx context.Context, id string) ([]domain.Transaction, error)
	Discard(ctx context.Context, id string) error
}

// ReceiptProposer runs the receipt pipeline.
type ReceiptProposer interface {
	ProposeReceipt(ctx context.Context, state *pipeline.PipelineState) (*proposals.Proposal, error)
}

type toolFunc func(ctx context.Context, body []byte) (any, int, error)

// ToolsHandler serves POST /tools/{name}. Every tool takes a JSON object
// and answers with a JSON object.
type ToolsHandler struct {
	engine   Engine
	receipts ReceiptProposer
	log      zerolog.Logger
	tools    map[string]toolFunc
}

// NewToolsHandler creates the tool gateway. receipts may be nil, in which
// case propose_receipt is not offered.
func NewToolsHandler(engine Engine, receipts ReceiptProposer, log zerolog.Logger) *ToolsHandler {
	h := &ToolsHandler{engine: engine, receipts: receipts, log: log}
	h.tools = map[string]toolFunc{
		"calculate_totals":       h.calculateTotals,
		"list_transactions":      h.listTransactions,
		"get_transaction":        h.getTransaction,
		"add_transaction":        h.addTransaction,
		"add_transactions_batch": h.addTransactionsBatch,
		"update_transaction":     h.updateTransaction,
		"delete_transaction":     h.deleteTransaction,
		"expenses_by_category":   h.expensesByCategory,
		"expenses_by_month":      h.expensesByMonth,
		"monthly_summary":        h.monthlySummary,
		"propose_transactions":   h.proposeTransactions,
		"get_proposal":           h.getProposal,
		"list_proposals":         h.listProposals,
		"commit_proposal":        h.commitProposal,
		"discard_proposal":       h.discardProposal,
	}
	if receipts != nil {
		h.tools["propose_receipt"] = h.proposeReceipt
	}
	return h
}

// Names returns the offered tools in alphabetical order.
func (h *ToolsHandler) Names() []string {
	names := make([]string, 0, len(h.tools))
	for name := range h.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListTools handles GET /tools
func (h *ToolsHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"tools": h.Names()})
}

// Call handles POST /tools/{name}
func (h *ToolsHandler) Call(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	tool, ok := h.tools[name]
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, fmt.Sprintf("Unknown tool %q", name))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	ctx := r.Context()
	log := logger.FromContext(ctx).With().Str("tool", name).Logger()
	ctx = logger.WithContext(ctx, log)

	result, status, err := tool(ctx, body)
	if err != nil {
		writeServiceError(w, log, name, err)
		return
	}
	middleware.WriteJSON(w, status, result)
}

// decode reads a tool request. An empty body is an empty object.
func decode(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}

func (h *ToolsHandler) calculateTotals(ctx context.Context, body []byte) (any, int, error) {
	var req totalsRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	totals, err := h.engine.Totals(ctx, query.TotalsFilter{Year: req.Year, Month: req.Month, Category: req.Category})
	if err != nil {
		return nil, 0, err
	}
	return totals, http.StatusOK, nil
}

func (h *ToolsHandler) listTransactions(ctx context.Context, body []byte) (any, int, error) {
	var req listRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	f, err := req.filter()
	if err != nil {
		return nil, 0, err
	}
	records, err := h.engine.List(ctx, f, req.Limit)
	if err != nil {
		return nil, 0, err
	}
	return map[string]any{"transactions": records, "count": len(records)}, http.StatusOK, nil
}

func (h *ToolsHandler) getTransaction(ctx context.Context, body []byte) (any, int, error) {
	var req idRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	if err := req.validate(); err != nil {
		return nil, 0, err
	}
	tx, err := h.engine.Get(ctx, req.ID)
	if err != nil {
		return nil, 0, err
	}
	return tx, http.StatusOK, nil
}

func (h *ToolsHandler) addTransaction(ctx context.Context, body []byte) (any, int, error) {
	var in ledger.Input
	if err := decode(body, &in); err != nil {
		return nil, 0, err
	}
	tx, err := h.engine.AddTransaction(ctx, in)
	if err != nil {
		return nil, 0, err
	}
	return tx, http.StatusCreated, nil
}

func (h *ToolsHandler) addTransactionsBatch(ctx context.Context, body []byte) (any, int, error) {
	var req batchRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	records, err := h.engine.AddTransactionsBatch(ctx, req.Transactions)
	if err != nil {
		return nil, 0, err
	}
	return map[string]any{"transactions": records, "count": len(records)}, http.StatusCreated, nil
}

func (h *ToolsHandler) updateTransaction(ctx context.Context, body []byte) (any, int, error) {
	var req updateRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	if err := (idRequest{ID: req.ID}).validate(); err != nil {
		return nil, 0, err
	}
	tx, err := h.engine.UpdateTransaction(ctx, req.ID, req.Changes)
	if err != nil {
		return nil, 0, err
	}
	return tx, http.StatusOK, nil
}

func (h *ToolsHandler) deleteTransaction(ctx context.Context, body []byte) (any, int, error) {
	var req idRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	if err := req.validate(); err != nil {
		return nil, 0, err
	}
	tx, err := h.engine.DeleteTransaction(ctx, req.ID)
	if err != nil {
		return nil, 0, err
	}
	return map[string]any{"deleted": tx}, http.StatusOK, nil
}

func (h *ToolsHandler) expensesByCategory(ctx context.Context, body []byte) (any, int, error) {
	var req periodRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	totals, err := h.engine.ExpensesByCategory(ctx, query.Period{Year: req.Year, Month: req.Month})
	if err != nil {
		return nil, 0, err
	}
	return map[string]any{"categories": totals}, http.StatusOK, nil
}

func (h *ToolsHandler) expensesByMonth(ctx context.Context, body []byte) (any, int, error) {
	var req byMonthRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	months, err := h.engine.ExpensesByMonth(ctx, req.Category, req.Year)
	if err != nil {
		return nil, 0, err
	}
	return map[string]any{"category": req.Category, "year": req.Year, "months": months}, http.StatusOK, nil
}

func (h *ToolsHandler) monthlySummary(ctx context.Context, body []byte) (any, int, error) {
	var req yearRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	months, err := h.engine.MonthlySummary(ctx, req.Year)
	if err != nil {
		return nil, 0, err
	}
	return map[string]any{"year": req.Year, "months": months}, http.StatusOK, nil
}

func (h *ToolsHandler) proposeTransactions(ctx context.Context, body []byte) (any, int, error) {
	var req batchRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	p, err := h.engine.Propose(ctx, req.Transactions, domain.SourceBatch)
	if err != nil {
		return nil, 0, err
	}
	return proposalView(p), http.StatusCreated, nil
}

func (h *ToolsHandler) proposeReceipt(ctx context.Context, body []byte) (any, int, error) {
	var req receiptRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	p, err := h.receipts.ProposeReceipt(ctx, req.state())
	if err != nil {
		return nil, 0, err
	}
	return proposalView(p), http.StatusCreated, nil
}

func (h *ToolsHandler) getProposal(ctx context.Context, body []byte) (any, int, error) {
	var req proposalRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	if err := req.validate(); err != nil {
		return nil, 0, err
	}
	p, err := h.engine.GetProposal(ctx, req.ProposalID)
	if err != nil {
		return nil, 0, err
	}
	return proposalView(p), http.StatusOK, nil
}

func (h *ToolsHandler) listProposals(ctx context.Context, body []byte) (any, int, error) {
	var req listProposalsRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	list, err := h.engine.ListProposals(ctx, domain.Source(strings.ToLower(strings.TrimSpace(req.Source))), req.Limit)
	if err != nil {
		return nil, 0, err
	}
	views := make([]map[string]any, 0, len(list))
	for _, p := range list {
		views = append(views, proposalView(p))
	}
	return map[string]any{"proposals": views, "count": len(views)}, http.StatusOK, nil
}

func (h *ToolsHandler) commitProposal(ctx context.Context, body []byte) (any, int, error) {
	var req proposalRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	if err := req.validate(); err != nil {
		return nil, 0, err
	}
	records, err := h.engine.Commit(ctx, req.ProposalID)
	if err != nil {
		return nil, 0, err
	}
	return map[string]any{"proposal_id": req.ProposalID, "transactions": records, "count": len(records)}, http.StatusCreated, nil
}

func (h *ToolsHandler) discardProposal(ctx context.Context, body []byte) (any, int, error) {
	var req proposalRequest
	if err := decode(body, &req); err != nil {
		return nil, 0, err
	}
	if err := req.validate(); err != nil {
		return nil, 0, err
	}
	if err := h.engine.Discard(ctx, req.ProposalID); err != nil {
		return nil, 0, err
	}
	return map[string]any{"proposal_id": req.ProposalID, "status": "discarded"}, http.StatusOK, nil
}

// proposalView adds the review flag the caller must act on.
func proposalView(p *proposals.Proposal) map[string]any {
	return map[string]any{
		"proposal_id":  p.ID,
		"source":       p.Source,
		"records":      p.Records,
		"warnings":     p.Warnings,
		"needs_review": p.NeedsReview(),
		"expires_at":   p.ExpiresAt,
	}
}

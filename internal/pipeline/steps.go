package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/ledger"
	"github.com/dvloznov/pfm-ledger/internal/normalize"
	"github.com/dvloznov/pfm-ledger/internal/proposals"
	"github.com/shopspring/decimal"
)

// PipelineStep represents a single step in the receipt pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps. Callers
// set either ImageURI, Image or Receipt, and optionally Date.
type PipelineState struct {
	ImageURI string
	Image    []byte
	MIMEType string
	Receipt  *Receipt

	// Date, when set, is used instead of the date printed on the receipt.
	Date string

	Rows       []row
	Candidates []*Candidate
	Records    []domain.Transaction
	Warnings   []string
	Proposal   *proposals.Proposal
}

// Step 1: FetchReceiptStep loads the receipt image from object storage.
type FetchReceiptStep struct {
	Fetcher ObjectFetcher
}

func (s *FetchReceiptStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Receipt != nil || len(state.Image) > 0 || state.ImageURI == "" {
		return nil
	}
	if s.Fetcher == nil {
		return fmt.Errorf("FetchReceiptStep: %w: no object storage configured for %s", domain.ErrInvalidInput, state.ImageURI)
	}
	data, mimeType, err := s.Fetcher.FetchObject(ctx, state.ImageURI)
	if err != nil {
		return fmt.Errorf("FetchReceiptStep: %w", err)
	}
	state.Image = data
	if state.MIMEType == "" {
		state.MIMEType = mimeType
	}
	return nil
}

// Step 2: ExtractReceiptStep reads rows off the image.
type ExtractReceiptStep struct {
	Extractor Extractor
}

func (s *ExtractReceiptStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Receipt != nil {
		return nil
	}
	if len(state.Image) == 0 {
		return fmt.Errorf("ExtractReceiptStep: %w: no receipt rows or image given", domain.ErrInvalidInput)
	}
	if s.Extractor == nil {
		return fmt.Errorf("ExtractReceiptStep: %w: no extractor configured", domain.ErrInvalidInput)
	}
	receipt, err := s.Extractor.ExtractReceipt(ctx, state.Image, state.MIMEType)
	if err != nil {
		return fmt.Errorf("ExtractReceiptStep: %w", err)
	}
	state.Receipt = receipt
	return nil
}

// Step 3: ExtractRowsStep parses row amounts and drops rows where both
// columns are zero. A blank column counts as zero.
type ExtractRowsStep struct{}

func (s *ExtractRowsStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Receipt == nil {
		return fmt.Errorf("ExtractRowsStep: %w: no receipt", domain.ErrInvalidInput)
	}
	if n := len(state.Receipt.Rows); n > MaxReceiptRows {
		return fmt.Errorf("ExtractRowsStep: %w: %d rows, at most %d allowed", domain.ErrInvalidInput, n, MaxReceiptRows)
	}

	state.Rows = state.Rows[:0]
	for i, r := range state.Receipt.Rows {
		earnings, err := parseColumn(r.Earnings)
		if err != nil {
			return &domain.ValidationError{Index: i, Field: "earnings", Value: string(r.Earnings), Reason: err.Error(), Err: err}
		}
		deductions, err := parseColumn(r.Deductions)
		if err != nil {
			return &domain.ValidationError{Index: i, Field: "deductions", Value: string(r.Deductions), Reason: err.Error(), Err: err}
		}
		if earnings.IsZero() && deductions.IsZero() {
			continue
		}
		concept := strings.TrimSpace(r.Concept)
		if concept == "" {
			return &domain.ValidationError{Index: i, Field: "concept", Reason: "concept is required", Err: domain.ErrInvalidInput}
		}
		state.Rows = append(state.Rows, row{Index: i, Concept: concept, Earnings: earnings, Deductions: deductions})
	}
	if len(state.Rows) == 0 {
		return fmt.Errorf("ExtractRowsStep: %w: receipt has no rows with amounts", domain.ErrInvalidInput)
	}
	return nil
}

func parseColumn(raw ledger.RawAmount) (decimal.Decimal, error) {
	if strings.TrimSpace(string(raw)) == "" {
		return decimal.Zero, nil
	}
	return normalize.ParseAmount(string(raw))
}

// Step 4: ClassifyStep turns each row into one income or expense candidate.
// A row with both columns set is malformed and stops the pipeline.
type ClassifyStep struct{}

func (s *ClassifyStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Candidates = state.Candidates[:0]
	for _, r := range state.Rows {
		c := &Candidate{Concept: r.Concept, Rows: []int{r.Index}}
		switch {
		case r.Earnings.IsPositive() && r.Deductions.IsPositive():
			return &domain.ValidationError{
				Index:  r.Index,
				Field:  "amounts",
				Value:  r.Concept,
				Reason: fmt.Sprintf("both earnings (%s) and deductions (%s) are set", normalize.FormatAmount(r.Earnings), normalize.FormatAmount(r.Deductions)),
				Err:    domain.ErrMalformedRow,
			}
		case r.Earnings.IsPositive():
			c.Type, c.Amount = domain.TypeIncome, r.Earnings
		default:
			c.Type, c.Amount = domain.TypeExpense, r.Deductions
		}
		c.Key = normalize.NormalizeConcept(r.Concept) + "|" + string(c.Type)
		state.Candidates = append(state.Candidates, c)
	}
	return nil
}

// Step 5: DeduplicateStep merges candidates with the same normalized concept
// by summing their amounts. The key also carries the direction, so an earning
// and a deduction under one concept stay two records instead of netting out.
// First appearance decides the order.
type DeduplicateStep struct{}

func (s *DeduplicateStep) Execute(ctx context.Context, state *PipelineState) error {
	merged := make([]*Candidate, 0, len(state.Candidates))
	byKey := make(map[string]*Candidate, len(state.Candidates))
	for _, c := range state.Candidates {
		if prev, ok := byKey[c.Key]; ok {
			prev.Amount = prev.Amount.Add(c.Amount)
			prev.Rows = append(prev.Rows, c.Rows...)
			continue
		}
		byKey[c.Key] = c
		merged = append(merged, c)
	}
	state.Candidates = merged
	return nil
}

// Step 6: MapConceptsStep assigns a category to every candidate. Unknown
// concepts become "other" and are flagged; so are concepts booked in the
// opposite direction to the one their table entry expects.
type MapConceptsStep struct {
	DefaultCurrency string
}

func (s *MapConceptsStep) Execute(ctx context.Context, state *PipelineState) error {
	var raw string
	if state.Receipt != nil {
		raw = state.Receipt.Currency
	}
	currency, err := normalize.NormalizeCurrency(raw, s.DefaultCurrency)
	if err != nil {
		return &domain.ValidationError{Index: -1, Field: "currency", Value: raw, Reason: err.Error(), Err: err}
	}

	state.Records = make([]domain.Transaction, 0, len(state.Candidates))
	for _, c := range state.Candidates {
		m, unmapped := normalize.MapConcept(c.Concept)
		tx := domain.Transaction{
			Amount:      c.Amount,
			Currency:    currency,
			Type:        c.Type,
			Category:    m.Category,
			Description: c.Concept,
			Source:      domain.SourceReceipt,
			NeedsReview: unmapped,
		}
		switch {
		case unmapped:
			state.Warnings = append(state.Warnings, fmt.Sprintf("concept %q not recognized, proposed as %q", c.Concept, tx.Category))
		case m.Type != "" && m.Type != c.Type:
			tx.NeedsReview = true
			state.Warnings = append(state.Warnings, fmt.Sprintf("concept %q is usually %s but appears as %s", c.Concept, m.Type, c.Type))
		}
		state.Records = append(state.Records, tx)
	}
	return nil
}

// Step 7: ResolveDateStep dates every record with the pay date. There is no
// default: a receipt without a date is sent back to the caller.
type ResolveDateStep struct{}

func (s *ResolveDateStep) Execute(ctx context.Context, state *PipelineState) error {
	raw := strings.TrimSpace(state.Date)
	if raw == "" && state.Receipt != nil {
		raw = strings.TrimSpace(state.Receipt.Date)
	}
	if raw == "" {
		return fmt.Errorf("ResolveDateStep: %w", domain.ErrMissingDate)
	}
	date, err := normalize.ParseDate(raw)
	if err != nil {
		return &domain.ValidationError{Index: -1, Field: "date", Value: raw, Reason: err.Error(), Err: err}
	}
	for i := range state.Records {
		state.Records[i].Date = date
	}
	return nil
}

// Step 8: ProposeStep parks the records for confirmation. Nothing reaches
// the ledger until the proposal is committed.
type ProposeStep struct {
	Proposer Proposer
}

func (s *ProposeStep) Execute(ctx context.Context, state *PipelineState) error {
	p, err := s.Proposer.ProposeRecords(ctx, state.Records, domain.SourceReceipt, state.Warnings)
	if err != nil {
		return fmt.Errorf("ProposeStep: %w", err)
	}
	state.Proposal = p
	return nil
}

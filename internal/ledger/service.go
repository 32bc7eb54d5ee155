package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/proposals"
	"github.com/dvloznov/pfm-ledger/internal/query"
	"github.com/dvloznov/pfm-ledger/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxBatchSize = 20
	DefaultProposalTTL  = 30 * time.Minute
)

// Options configures a Service. Zero values fall back to the defaults.
type Options struct {
	DefaultCurrency string
	MaxBatchSize    int
	ProposalTTL     time.Duration
	// Now is the clock used for default dates and proposal expiry.
	Now    func() time.Time
	Logger zerolog.Logger
}

// Service is the engine facade: every read and write of the ledger goes
// through it.
type Service struct {
	store     *store.Store
	proposals proposals.Store

	defaultCurrency string
	maxBatch        int
	ttl             time.Duration
	now             func() time.Time
	log             zerolog.Logger
}

// NewService wires a loaded store and a proposal store.
func NewService(st *store.Store, ps proposals.Store, opts Options) *Service {
	s := &Service{
		store:           st,
		proposals:       ps,
		defaultCurrency: opts.DefaultCurrency,
		maxBatch:        opts.MaxBatchSize,
		ttl:             opts.ProposalTTL,
		now:             opts.Now,
		log:             opts.Logger,
	}
	if s.defaultCurrency == "" {
		s.defaultCurrency = "COP"
	}
	if s.maxBatch <= 0 {
		s.maxBatch = DefaultMaxBatchSize
	}
	if s.ttl <= 0 {
		s.ttl = DefaultProposalTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) today() civil.Date {
	return civil.DateOf(s.now())
}

// AddTransaction validates in and stores it as a manual entry. A missing
// date defaults to today and a missing currency to the default currency.
func (s *Service) AddTransaction(ctx context.Context, in Input) (domain.Transaction, error) {
	tx, err := buildTransaction(in, -1, s.today(), s.defaultCurrency, domain.SourceManual)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: %w", err)
	}

	res, err := s.store.Apply(ctx, store.Insert{Records: []domain.Transaction{tx}})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: %w", err)
	}
	created := res.Records[0]
	s.log.Info().Int64("transaction_id", created.ID).Str("type", string(created.Type)).
		Str("category", string(created.Category)).Bool("needs_review", created.NeedsReview).Msg("Transaction added")
	return created, nil
}

// AddTransactionsBatch stores up to the batch limit of entries as one unit.
// Every entry is validated first; the first invalid one rejects the whole
// batch with a *domain.ValidationError naming its index.
func (s *Service) AddTransactionsBatch(ctx context.Context, ins []Input) ([]domain.Transaction, error) {
	records, err := s.validateBatch(ins, domain.SourceBatch)
	if err != nil {
		return nil, fmt.Errorf("AddTransactionsBatch: %w", err)
	}

	res, err := s.store.Apply(ctx, store.Insert{Records: records})
	if err != nil {
		return nil, fmt.Errorf("AddTransactionsBatch: %w", err)
	}
	s.log.Info().Int("rows", len(res.Records)).Msg("Transaction batch added")
	return res.Records, nil
}

func (s *Service) validateBatch(ins []Input, source domain.Source) ([]domain.Transaction, error) {
	if len(ins) == 0 {
		return nil, fmt.Errorf("%w: batch is empty", domain.ErrInvalidInput)
	}
	if len(ins) > s.maxBatch {
		return nil, fmt.Errorf("%w: %d entries, at most %d allowed", domain.ErrBatchTooLarge, len(ins), s.maxBatch)
	}

	today := s.today()
	records := make([]domain.Transaction, 0, len(ins))
	for i, in := range ins {
		tx, err := buildTransaction(in, i, today, s.defaultCurrency, source)
		if err != nil {
			return nil, err
		}
		records = append(records, tx)
	}
	return records, nil
}

// UpdateTransaction applies a partial update. ID and Source cannot be
// changed; changed fields are validated like new input.
func (s *Service) UpdateTransaction(ctx context.Context, id int64, p Patch) (domain.Transaction, error) {
	if p.ID != nil {
		return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %w: id", domain.ErrImmutableField)
	}
	if p.Source != nil {
		return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %w: source", domain.ErrImmutableField)
	}
	if p.Empty() {
		return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %w: no fields to update", domain.ErrInvalidInput)
	}

	res, err := s.store.Apply(ctx, store.Update{ID: id, Change: func(tx *domain.Transaction) error {
		return applyPatch(tx, p, s.defaultCurrency)
	}})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %w", err)
	}
	s.log.Info().Int64("transaction_id", id).Msg("Transaction updated")
	return res.Records[0], nil
}

// DeleteTransaction removes a record. Deleting an unknown or already deleted
// id returns domain.ErrNotFound.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	res, err := s.store.Apply(ctx, store.Delete{ID: id})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("DeleteTransaction: %w", err)
	}
	s.log.Info().Int64("transaction_id", id).Msg("Transaction deleted")
	return res.Records[0], nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	tx, ok := s.store.Get(id)
	if !ok {
		return domain.Transaction{}, fmt.Errorf("Get %d: %w", id, domain.ErrNotFound)
	}
	return tx, nil
}

// Export returns every record ordered by id.
func (s *Service) Export(ctx context.Context) []domain.Transaction {
	return s.store.Snapshot()
}

// Totals aggregates income and expense.
func (s *Service) Totals(ctx context.Context, f query.TotalsFilter) (query.Totals, error) {
	return query.CalculateTotals(s.store.Snapshot(), f)
}

// List returns matching records, most recent first.
func (s *Service) List(ctx context.Context, f query.ListFilter, limit *int) ([]domain.Transaction, error) {
	return query.ListTransactions(s.store.Snapshot(), f, limit)
}

// ExpensesByCategory groups expenses by category.
func (s *Service) ExpensesByCategory(ctx context.Context, p query.Period) ([]query.CategoryTotal, error) {
	return query.ExpensesByCategory(s.store.Snapshot(), p)
}

// ExpensesByMonth returns the monthly expenses of one category.
func (s *Service) ExpensesByMonth(ctx context.Context, category string, year int) ([]query.MonthTotal, error) {
	return query.ExpensesByMonth(s.store.Snapshot(), category, year)
}

// MonthlySummary returns per month totals of year.
func (s *Service) MonthlySummary(ctx context.Context, year int) ([]query.MonthSummary, error) {
	return query.MonthlySummary(s.store.Snapshot(), year)
}

// Propose validates a batch of caller input and parks it for confirmation.
// Nothing is written until Commit.
func (s *Service) Propose(ctx context.Context, ins []Input, source domain.Source) (*proposals.Proposal, error) {
	records, err := s.validateBatch(ins, source)
	if err != nil {
		return nil, fmt.Errorf("Propose: %w", err)
	}
	var warnings []string
	for i, tx := range records {
		if tx.NeedsReview {
			warnings = append(warnings, fmt.Sprintf("entry %d: category %q not recognized, proposed as %q", i, ins[i].Category, tx.Category))
		}
	}
	return s.ProposeRecords(ctx, records, source, warnings)
}

// ProposeRecords parks already normalized records for confirmation.
func (s *Service) ProposeRecords(ctx context.Context, records []domain.Transaction, source domain.Source, warnings []string) (*proposals.Proposal, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("ProposeRecords: %w: nothing to propose", domain.ErrInvalidInput)
	}
	if !source.Valid() {
		return nil, fmt.Errorf("ProposeRecords: %w: source %q", domain.ErrInvalidInput, source)
	}

	now := s.now()
	p := &proposals.Proposal{
		ID:        uuid.New().String(),
		Source:    source,
		Records:   make([]domain.Transaction, len(records)),
		Warnings:  warnings,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	for i, tx := range records {
		tx.ID = 0
		tx.Source = source
		p.Records[i] = tx
	}

	if err := s.proposals.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("ProposeRecords: %w", err)
	}
	s.log.Info().Str("proposal_id", p.ID).Int("rows", len(p.Records)).Bool("needs_review", p.NeedsReview()).Msg("Proposal created")
	return p, nil
}

// GetProposal returns a pending proposal.
func (s *Service) GetProposal(ctx context.Context, id string) (*proposals.Proposal, error) {
	p, err := s.proposals.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetProposal: %w", err)
	}
	return p, nil
}

// ListProposals returns pending proposals, oldest first. An empty source
// matches every provenance; limit <= 0 means no limit.
func (s *Service) ListProposals(ctx context.Context, source domain.Source, limit int) ([]*proposals.Proposal, error) {
	if source != "" && !source.Valid() {
		return nil, fmt.Errorf("ListProposals: %w: source %q", domain.ErrInvalidInput, source)
	}
	list, err := s.proposals.List(ctx, proposals.Filter{Source: source, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("ListProposals: %w", err)
	}
	return list, nil
}

// Commit stores every record of a proposal as one insert. A proposal can be
// committed once; if the write fails it stays pending so the caller can retry.
func (s *Service) Commit(ctx context.Context, id string) ([]domain.Transaction, error) {
	p, err := s.proposals.Take(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}

	res, err := s.store.Apply(ctx, store.Insert{Records: p.Records})
	if err != nil {
		if errors.Is(err, domain.ErrPersistFailed) {
			if saveErr := s.proposals.Save(ctx, p); saveErr != nil {
				s.log.Error().Err(saveErr).Str("proposal_id", id).Msg("Failed to restore proposal after write failure")
			}
		}
		return nil, fmt.Errorf("Commit %s: %w", id, err)
	}
	s.log.Info().Str("proposal_id", id).Int("rows", len(res.Records)).Msg("Proposal committed")
	return res.Records, nil
}

// Discard drops a pending proposal.
func (s *Service) Discard(ctx context.Context, id string) error {
	if err := s.proposals.Delete(ctx, id); err != nil {
		return fmt.Errorf("Discard: %w", err)
	}
	s.log.Info().Str("proposal_id", id).Msg("Proposal discarded")
	return nil
}

package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/rs/zerolog"
)

// Store is the in-memory ledger backed by a Source.
//
// Mutations are serialized by writeMu and run validate, build, flush in that
// order. The published record set is only swapped after a successful flush,
// so readers never wait on storage I/O and never observe a partial mutation.
type Store struct {
	source          Source
	defaultCurrency string
	log             zerolog.Logger

	writeMu     sync.Mutex
	quarantined []RawRow // rows skipped at load, guarded by writeMu

	mu      sync.RWMutex
	records []domain.Transaction // sorted by ID, never modified in place
	nextID  int64
}

// LoadReport summarizes a Load.
type LoadReport struct {
	Loaded  int
	Corrupt []*domain.CorruptRecordError
}

// Result carries the records affected by a mutation. For a Delete it holds
// the removed record.
type Result struct {
	Records []domain.Transaction
}

// New creates an empty store on top of source. Call Load before serving.
func New(source Source, defaultCurrency string, log zerolog.Logger) *Store {
	return &Store{
		source:          source,
		defaultCurrency: defaultCurrency,
		log:             log,
		nextID:          1,
	}
}

// Load materializes every record from the source. Rows that fail validation
// are skipped and listed in the report; they stay in storage and are written
// back by every later flush. Rows without an id get one after the highest id
// found, corrupt rows and the persisted high-water mark included.
func (s *Store) Load(ctx context.Context) (LoadReport, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	contents, err := s.source.LoadAll(ctx)
	if err != nil {
		return LoadReport{}, fmt.Errorf("Load: %w: %w", domain.ErrStoreUnavailable, err)
	}
	rows := contents.Rows

	var (
		report      LoadReport
		records     = make([]domain.Transaction, 0, len(rows))
		seen        = make(map[int64]bool, len(rows))
		pending     []domain.Transaction
		quarantined []RawRow
		maxID       int64
	)
	skip := func(row RawRow, c *domain.CorruptRecordError) {
		report.Corrupt = append(report.Corrupt, c)
		// a line the decoder could not split has no fields to write back
		if row.Err == nil {
			quarantined = append(quarantined, row)
		}
	}
	for _, row := range rows {
		tx, err := parseRow(row, s.defaultCurrency)
		maxID = max(maxID, tx.ID)
		if err != nil {
			skip(row, asCorrupt(row.Line, err))
			continue
		}
		if tx.ID == 0 {
			pending = append(pending, tx)
			continue
		}
		if seen[tx.ID] {
			skip(row, &domain.CorruptRecordError{
				Line:   row.Line,
				Reason: fmt.Sprintf("duplicate id %d", tx.ID),
				Err:    domain.ErrInvalidInput,
			})
			continue
		}
		seen[tx.ID] = true
		records = append(records, tx)
	}

	nextID := max(maxID+1, contents.NextID)
	for _, tx := range pending {
		tx.ID = nextID
		nextID++
		records = append(records, tx)
	}
	slices.SortFunc(records, func(a, b domain.Transaction) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	for _, c := range report.Corrupt {
		s.log.Warn().Int("line", c.Line).Str("reason", c.Reason).Msg("Skipping corrupt ledger row")
	}
	report.Loaded = len(records)

	s.quarantined = quarantined
	s.mu.Lock()
	s.records = records
	s.nextID = nextID
	s.mu.Unlock()

	s.log.Info().Int("loaded", report.Loaded).Int("corrupt", len(report.Corrupt)).Msg("Ledger loaded")
	return report, nil
}

// Snapshot returns a copy of the current records ordered by ID.
func (s *Store) Snapshot() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Get returns a copy of the record with the given ID.
func (s *Store) Get(id int64) (domain.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := indexOf(s.records, id)
	if !ok {
		return domain.Transaction{}, false
	}
	return s.records[i], true
}

// Len returns the number of live records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Apply runs m against the current records and flushes the whole result to
// the source. If the flush fails nothing is published and the error wraps
// domain.ErrPersistFailed.
func (s *Store) Apply(ctx context.Context, m Mutation) (Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	current, nextID := s.records, s.nextID
	s.mu.RUnlock()

	next, affected, newNextID, err := m.apply(current, nextID)
	if err != nil {
		return Result{}, err
	}

	flush := Flush{Records: next, Quarantined: s.quarantined, NextID: newNextID}
	if err := s.source.ReplaceAll(ctx, flush); err != nil {
		s.log.Error().Err(err).Str("mutation", m.name()).Msg("Flush failed, keeping previous ledger state")
		return Result{}, fmt.Errorf("Apply %s: %w: %w", m.name(), domain.ErrPersistFailed, err)
	}

	s.mu.Lock()
	s.records = next
	s.nextID = newNextID
	s.mu.Unlock()

	s.log.Debug().Str("mutation", m.name()).Int("affected", len(affected)).Int("records", len(next)).Msg("Ledger mutation applied")
	return Result{Records: affected}, nil
}

func asCorrupt(line int, err error) *domain.CorruptRecordError {
	if c, ok := err.(*domain.CorruptRecordError); ok {
		return c
	}
	return &domain.CorruptRecordError{Line: line, Reason: err.Error(), Err: err}
}

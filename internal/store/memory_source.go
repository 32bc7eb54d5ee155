package store

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/normalize"
)

// MemorySource is a Source that keeps rows in memory. It is used for the
// "memory" storage backend and in tests.
type MemorySource struct {
	mu     sync.Mutex
	rows   []RawRow
	nextID int64

	// FailWrites, when set, is returned by every ReplaceAll.
	FailWrites error
	// FailReads, when set, is returned by every LoadAll.
	FailReads error

	writes int
}

// NewMemorySource returns a source seeded with rows.
func NewMemorySource(rows ...RawRow) *MemorySource {
	return &MemorySource{rows: rows}
}

func (m *MemorySource) LoadAll(ctx context.Context) (Contents, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads != nil {
		return Contents{}, m.FailReads
	}
	return Contents{Rows: slices.Clone(m.rows), NextID: m.nextID}, nil
}

func (m *MemorySource) ReplaceAll(ctx context.Context, f Flush) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	rows := make([]RawRow, 0, len(f.Records)+len(f.Quarantined))
	for _, tx := range f.Records {
		rows = append(rows, RowFromTransaction(len(rows)+1, tx))
	}
	for _, row := range f.Quarantined {
		row.Line = len(rows) + 1
		rows = append(rows, row)
	}
	m.rows = rows
	m.nextID = f.NextID
	m.writes++
	return nil
}

// Rows returns what was last written.
func (m *MemorySource) Rows() []RawRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rows)
}

// NextID returns the high-water mark last written.
func (m *MemorySource) NextID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextID
}

// Writes counts successful ReplaceAll calls.
func (m *MemorySource) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// RowFromTransaction renders tx in its durable text form.
func RowFromTransaction(line int, tx domain.Transaction) RawRow {
	return RawRow{
		Line:        line,
		ID:          strconv.FormatInt(tx.ID, 10),
		Date:        normalize.FormatDate(tx.Date),
		Amount:      normalize.FormatAmount(tx.Amount),
		Currency:    tx.Currency,
		Type:        string(tx.Type),
		Category:    string(tx.Category),
		Description: tx.Description,
		Source:      string(tx.Source),
		NeedsReview: strconv.FormatBool(tx.NeedsReview),
	}
}

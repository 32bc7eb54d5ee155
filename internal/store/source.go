package store

import (
	"context"

	"github.com/dvloznov/pfm-ledger/internal/domain"
)

// Source is the durable backing of a Store. Implementations decide the
// medium (local file, GCS object, BigQuery table); the store only loads
// everything at start and replaces everything after each mutation.
type Source interface {
	// LoadAll returns every durable row in storage order. A missing ledger is
	// not an error; it yields no rows.
	LoadAll(ctx context.Context) (Contents, error)

	// ReplaceAll atomically replaces the durable set with f.
	ReplaceAll(ctx context.Context, f Flush) error
}

// Contents is what a Source holds.
type Contents struct {
	Rows []RawRow

	// NextID is the persisted id high-water mark, 0 when the medium has none.
	NextID int64
}

// Flush is the full durable state written after a mutation.
type Flush struct {
	Records []domain.Transaction

	// Quarantined rows failed validation at load. They are written back
	// unchanged after the records so an unrelated write never erases them.
	Quarantined []RawRow

	// NextID is the first id not yet handed out, deleted ids included.
	NextID int64
}

// RawRow is one durable record before validation. Every field is kept as
// the text found in storage; Line is the 1-based position used in reports.
type RawRow struct {
	Line        int
	ID          string
	Date        string
	Amount      string
	Currency    string
	Type        string
	Category    string
	Description string
	Source      string
	NeedsReview string

	// Err is set when the row could not be decoded at all.
	Err error
}

package store

import (
	"fmt"
	"slices"

	"github.com/dvloznov/pfm-ledger/internal/domain"
)

// Mutation is one of Insert, Update or Delete.
type Mutation interface {
	// apply builds the next record set from records, which it must not modify.
	// It returns the next set, the affected records, and the next free id.
	apply(records []domain.Transaction, nextID int64) (next, affected []domain.Transaction, newNextID int64, err error)
	name() string
}

// Insert adds one or more records as a single unit. Incoming IDs are
// ignored; the store assigns them in order.
type Insert struct {
	Records []domain.Transaction
}

func (Insert) name() string { return "insert" }

func (m Insert) apply(records []domain.Transaction, nextID int64) ([]domain.Transaction, []domain.Transaction, int64, error) {
	if len(m.Records) == 0 {
		return nil, nil, nextID, fmt.Errorf("insert: %w: no records", domain.ErrInvalidInput)
	}
	next := make([]domain.Transaction, len(records), len(records)+len(m.Records))
	copy(next, records)

	affected := make([]domain.Transaction, 0, len(m.Records))
	for _, tx := range m.Records {
		tx.ID = nextID
		nextID++
		if err := checkRecord(tx); err != nil {
			return nil, nil, 0, fmt.Errorf("insert: %w", err)
		}
		next = append(next, tx)
		affected = append(affected, tx)
	}
	return next, affected, nextID, nil
}

// Update replaces the record with the given ID by the result of Change.
// Change receives a copy; ID and Source are restored after it returns.
type Update struct {
	ID     int64
	Change func(tx *domain.Transaction) error
}

func (Update) name() string { return "update" }

func (m Update) apply(records []domain.Transaction, nextID int64) ([]domain.Transaction, []domain.Transaction, int64, error) {
	i, ok := indexOf(records, m.ID)
	if !ok {
		return nil, nil, 0, fmt.Errorf("update %d: %w", m.ID, domain.ErrNotFound)
	}

	tx := records[i]
	if m.Change != nil {
		if err := m.Change(&tx); err != nil {
			return nil, nil, 0, fmt.Errorf("update %d: %w", m.ID, err)
		}
	}
	tx.ID = records[i].ID
	tx.Source = records[i].Source
	if err := checkRecord(tx); err != nil {
		return nil, nil, 0, fmt.Errorf("update: %w", err)
	}

	next := slices.Clone(records)
	next[i] = tx
	return next, []domain.Transaction{tx}, nextID, nil
}

// Delete removes the record with the given ID.
type Delete struct {
	ID int64
}

func (Delete) name() string { return "delete" }

func (m Delete) apply(records []domain.Transaction, nextID int64) ([]domain.Transaction, []domain.Transaction, int64, error) {
	i, ok := indexOf(records, m.ID)
	if !ok {
		return nil, nil, 0, fmt.Errorf("delete %d: %w", m.ID, domain.ErrNotFound)
	}
	removed := records[i]

	next := make([]domain.Transaction, 0, len(records)-1)
	next = append(next, records[:i]...)
	next = append(next, records[i+1:]...)
	return next, []domain.Transaction{removed}, nextID, nil
}

// indexOf finds id in records, which are kept sorted by ID.
func indexOf(records []domain.Transaction, id int64) (int, bool) {
	return slices.BinarySearchFunc(records, id, func(tx domain.Transaction, id int64) int {
		switch {
		case tx.ID < id:
			return -1
		case tx.ID > id:
			return 1
		}
		return 0
	})
}

package query

import (
	"fmt"
	"slices"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/normalize"
)

// ListFilter selects records for ListTransactions. Nil and empty fields
// are ignored.
type ListFilter struct {
	Category  string
	StartDate *civil.Date
	EndDate   *civil.Date
	Type      domain.Type
	Year      *int
	Month     *int
	// Text matches descriptions, ignoring case and accents.
	Text string
	// NeedsReview restricts the result to flagged (or unflagged) records.
	NeedsReview *bool
}

// ListTransactions returns the matching records most recent first, ties
// broken by descending id. A nil limit returns every match.
func ListTransactions(records []domain.Transaction, f ListFilter, limit *int) ([]domain.Transaction, error) {
	if limit != nil && *limit <= 0 {
		return nil, fmt.Errorf("ListTransactions: %w: %d", domain.ErrInvalidLimit, *limit)
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("ListTransactions: %w: %q", domain.ErrInvalidType, f.Type)
	}
	period, err := periodPredicate(f.Year, f.Month)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	dates, err := rangePredicate(f.StartDate, f.EndDate)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}

	preds := []predicate{period, dates, categoryPredicate(f.Category)}
	if f.Type != "" {
		preds = append(preds, func(tx *domain.Transaction) bool { return tx.Type == f.Type })
	}
	if text := normalize.Fold(f.Text); text != "" {
		preds = append(preds, func(tx *domain.Transaction) bool {
			return strings.Contains(normalize.Fold(tx.Description), text)
		})
	}
	if f.NeedsReview != nil {
		want := *f.NeedsReview
		preds = append(preds, func(tx *domain.Transaction) bool { return tx.NeedsReview == want })
	}
	match := all(preds...)

	out := make([]domain.Transaction, 0)
	for i := range records {
		if match(&records[i]) {
			out = append(out, records[i])
		}
	}
	slices.SortFunc(out, func(a, b domain.Transaction) int {
		if c := normalize.CompareDates(b.Date, a.Date); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})

	if limit != nil && *limit < len(out) {
		out = out[:*limit]
	}
	return out, nil
}

package query

import (
	"fmt"
	"slices"
	"time"

	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Period is an optional year, optionally narrowed to a month.
type Period struct {
	Year  *int
	Month *int
}

// CategoryTotal is the expense total of one category.
type CategoryTotal struct {
	Category domain.Category `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// ExpensesByCategory groups expenses in the period by category, largest
// total first. Categories with no expenses are omitted.
func ExpensesByCategory(records []domain.Transaction, p Period) ([]CategoryTotal, error) {
	match, err := periodPredicate(p.Year, p.Month)
	if err != nil {
		return nil, fmt.Errorf("ExpensesByCategory: %w", err)
	}
	match = all(match)

	totals := make(map[domain.Category]*CategoryTotal)
	for i := range records {
		tx := &records[i]
		if tx.Type != domain.TypeExpense || !match(tx) {
			continue
		}
		ct, ok := totals[tx.Category]
		if !ok {
			ct = &CategoryTotal{Category: tx.Category}
			totals[tx.Category] = ct
		}
		ct.Total = ct.Total.Add(tx.Amount)
		ct.Count++
	}

	out := make([]CategoryTotal, 0, len(totals))
	for _, ct := range totals {
		out = append(out, *ct)
	}
	slices.SortFunc(out, func(a, b CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		if a.Category < b.Category {
			return -1
		}
		if a.Category > b.Category {
			return 1
		}
		return 0
	})
	return out, nil
}

// MonthTotal is the expense total of one calendar month.
type MonthTotal struct {
	Month time.Month      `json:"month"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// ExpensesByMonth returns twelve entries, January first, with the expenses
// of the matching category in each month of year.
func ExpensesByMonth(records []domain.Transaction, category string, year int) ([]MonthTotal, error) {
	period, err := periodPredicate(&year, nil)
	if err != nil {
		return nil, fmt.Errorf("ExpensesByMonth: %w", err)
	}
	match := all(period, categoryPredicate(category))

	out := make([]MonthTotal, 12)
	for i := range out {
		out[i].Month = time.Month(i + 1)
	}
	for i := range records {
		tx := &records[i]
		if tx.Type != domain.TypeExpense || !match(tx) {
			continue
		}
		m := &out[tx.Date.Month-1]
		m.Total = m.Total.Add(tx.Amount)
		m.Count++
	}
	return out, nil
}

// MonthSummary is the Totals of one calendar month.
type MonthSummary struct {
	Month time.Month `json:"month"`
	Totals
}

// MonthlySummary returns income, expense and balance for each month of year.
func MonthlySummary(records []domain.Transaction, year int) ([]MonthSummary, error) {
	period, err := periodPredicate(&year, nil)
	if err != nil {
		return nil, fmt.Errorf("MonthlySummary: %w", err)
	}

	out := make([]MonthSummary, 12)
	for i := range out {
		out[i].Month = time.Month(i + 1)
	}
	for i := range records {
		tx := &records[i]
		if period(tx) {
			out[tx.Date.Month-1].add(tx)
		}
	}
	return out, nil
}

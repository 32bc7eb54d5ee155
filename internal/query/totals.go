package query

import (
	"fmt"

	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// TotalsFilter selects the records that CalculateTotals aggregates. Zero
// values mean "no filter".
type TotalsFilter struct {
	Year     *int
	Month    *int
	Category string
}

// Totals is an income/expense aggregate. Count includes both types.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	Count   int             `json:"count"`
}

func (t *Totals) add(tx *domain.Transaction) {
	switch tx.Type {
	case domain.TypeIncome:
		t.Income = t.Income.Add(tx.Amount)
	case domain.TypeExpense:
		t.Expense = t.Expense.Add(tx.Amount)
	}
	t.Balance = t.Income.Sub(t.Expense)
	t.Count++
}

// CalculateTotals sums the records matching every supplied filter field.
// A month without a year is rejected with domain.ErrAmbiguousPeriod.
func CalculateTotals(records []domain.Transaction, f TotalsFilter) (Totals, error) {
	period, err := periodPredicate(f.Year, f.Month)
	if err != nil {
		return Totals{}, fmt.Errorf("CalculateTotals: %w", err)
	}
	match := all(period, categoryPredicate(f.Category))

	var t Totals
	for i := range records {
		if match(&records[i]) {
			t.add(&records[i])
		}
	}
	return t, nil
}

package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is one canonical ledger record.
// Amount is always positive; the direction of money is carried by Type.
type Transaction struct {
	ID          int64           `json:"id"`
	Date        civil.Date      `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Type        Type            `json:"type"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
	Source      Source          `json:"source"`

	// NeedsReview is set when the category could not be resolved from the
	// input label and fell back to CategoryOther, or when a receipt concept
	// was booked in the opposite direction to the one its table entry expects.
	NeedsReview bool `json:"needs_review,omitempty"`
}

// SignedAmount returns the amount with income positive and expense negative.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Type is the direction of a transaction.
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// Valid reports whether t is one of the closed set of types.
func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Source records how a transaction entered the ledger. It is kept for
// auditing and display only.
type Source string

const (
	SourceManual  Source = "manual"
	SourceBatch   Source = "batch"
	SourceReceipt Source = "receipt"
	// SourceImport marks rows loaded from a backing file that carried no
	// provenance column.
	SourceImport Source = "import"
)

// Valid reports whether s is a known provenance tag.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceBatch, SourceReceipt, SourceImport:
		return true
	}
	return false
}

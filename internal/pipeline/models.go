package pipeline

import (
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// Receipt is what the OCR step reads off a payslip or receipt.
type Receipt struct {
	// Date is the pay date as printed, empty when the document shows none.
	Date     string       `json:"date"`
	Currency string       `json:"currency,omitempty"`
	Rows     []ReceiptRow `json:"rows"`
}

// ReceiptRow is one concept line with its earnings and deductions columns.
// Amounts are in the ledger's locale format; blank means zero.
type ReceiptRow struct {
	Concept    string           `json:"concept"`
	Earnings   ledger.RawAmount `json:"earnings"`
	Deductions ledger.RawAmount `json:"deductions"`
}

// row is a receipt line with parsed amounts.
type row struct {
	Index      int
	Concept    string
	Earnings   decimal.Decimal
	Deductions decimal.Decimal
}

// Candidate is one proposed transaction before category mapping. Rows are
// the receipt lines merged into it.
type Candidate struct {
	Key     string
	Concept string
	Type    domain.Type
	Amount  decimal.Decimal
	Rows    []int
}

package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// LedgerRow is one record of the ledger table.
type LedgerRow struct {
	ID          int64      `bigquery:"id"`           // REQUIRED
	Date        civil.Date `bigquery:"date"`         // REQUIRED
	Amount      *big.Rat   `bigquery:"amount"`       // REQUIRED NUMERIC
	Currency    string     `bigquery:"currency"`     // REQUIRED
	Type        string     `bigquery:"type"`         // REQUIRED
	Category    string     `bigquery:"category"`     // REQUIRED
	Description string     `bigquery:"description"`  // REQUIRED
	Source      string     `bigquery:"source"`       // NULLABLE
	NeedsReview bool       `bigquery:"needs_review"` // NULLABLE
}

// ledgerSchema is used when the table is created by the first write.
var ledgerSchema = bigquery.Schema{
	{Name: "id", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "date", Type: bigquery.DateFieldType, Required: true},
	{Name: "amount", Type: bigquery.NumericFieldType, Required: true},
	{Name: "currency", Type: bigquery.StringFieldType, Required: true},
	{Name: "type", Type: bigquery.StringFieldType, Required: true},
	{Name: "category", Type: bigquery.StringFieldType, Required: true},
	{Name: "description", Type: bigquery.StringFieldType, Required: true},
	{Name: "source", Type: bigquery.StringFieldType},
	{Name: "needs_review", Type: bigquery.BooleanFieldType},
}

// loadRow is the newline-delimited JSON form used by load jobs. NUMERIC and
// DATE columns accept their canonical string forms.
type loadRow struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Source      string `json:"source"`
	NeedsReview bool   `json:"needs_review"`
}

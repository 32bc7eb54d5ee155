package bigquery

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/store"
	"github.com/shopspring/decimal"
	"google.golang.org/api/googleapi"
)

func TestRawRow(t *testing.T) {
	r := LedgerRow{
		ID:          12,
		Date:        civil.Date{Year: 2025, Month: 1, Day: 30},
		Amount:      big.NewRat(24691, 2),
		Currency:    "COP",
		Type:        "expense",
		Category:    "food",
		Description: "Mercado",
		Source:      "manual",
		NeedsReview: true,
	}

	got := rawRow(3, r)
	if got.Line != 3 || got.ID != "12" || got.Date != "2025-01-30" {
		t.Errorf("got %+v", got)
	}
	if got.Amount != "12.345,5" {
		t.Errorf("Amount = %q, want 12.345,5", got.Amount)
	}
	if got.NeedsReview != "true" {
		t.Errorf("NeedsReview = %q", got.NeedsReview)
	}

	r.Amount = nil
	if got := rawRow(1, r); got.Amount != "" {
		t.Errorf("nil amount rendered as %q", got.Amount)
	}
}

func TestToLoadRow(t *testing.T) {
	tx := domain.Transaction{
		ID:          5,
		Date:        civil.Date{Year: 2024, Month: 12, Day: 1},
		Amount:      decimal.RequireFromString("3000000"),
		Currency:    "COP",
		Type:        domain.TypeIncome,
		Category:    domain.CategorySalary,
		Description: "Nómina",
		Source:      domain.SourceReceipt,
	}

	got := toLoadRow(tx)
	if got.Amount != "3000000.000000000" || got.Date != "2024-12-01" || got.Type != "income" {
		t.Errorf("got %+v", got)
	}
}

func TestIsNotFound(t *testing.T) {
	notFound := fmt.Errorf("query: %w", &googleapi.Error{Code: http.StatusNotFound})
	if !isNotFound(notFound) {
		t.Error("404 not detected")
	}
	if isNotFound(&googleapi.Error{Code: http.StatusForbidden}) {
		t.Error("403 treated as not found")
	}
	if isNotFound(errors.New("boom")) || isNotFound(nil) {
		t.Error("plain error treated as not found")
	}
}

func TestQuarantinedLoadRow(t *testing.T) {
	// a row that failed on meaning: negative amount, unknown type
	r := LedgerRow{
		ID:          7,
		Date:        civil.Date{Year: 2025, Month: 2, Day: 3},
		Amount:      big.NewRat(-123450, 100),
		Currency:    "COP",
		Type:        "transfer",
		Category:    "food",
		Description: "Mercado",
	}

	got, err := quarantinedLoadRow(rawRow(4, r))
	if err != nil {
		t.Fatalf("quarantinedLoadRow failed: %v", err)
	}
	if got.ID != 7 || got.Date != "2025-02-03" || got.Type != "transfer" {
		t.Errorf("got %+v", got)
	}
	if got.Amount != "-1234.500000000" {
		t.Errorf("Amount = %q, want -1234.500000000", got.Amount)
	}

	if _, err := quarantinedLoadRow(store.RawRow{Line: 2, Date: "2025-13-40", Amount: "1"}); err == nil {
		t.Error("expected error for a date the table cannot hold")
	}
}

func TestNextIDFromLabels(t *testing.T) {
	tests := []struct {
		labels map[string]string
		want   int64
	}{
		{labels: nil, want: 0},
		{labels: map[string]string{"next_id": "42"}, want: 42},
		{labels: map[string]string{"next_id": "x"}, want: 0},
		{labels: map[string]string{"other": "3"}, want: 0},
	}
	for _, tt := range tests {
		if got := nextIDFromLabels(tt.labels); got != tt.want {
			t.Errorf("nextIDFromLabels(%v) = %d, want %d", tt.labels, got, tt.want)
		}
	}
}

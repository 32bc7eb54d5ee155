package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/proposals"
	"github.com/dvloznov/pfm-ledger/internal/query"
	"github.com/dvloznov/pfm-ledger/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.MemorySource) {
	t.Helper()
	src := store.NewMemorySource()
	st := store.New(src, "COP", zerolog.Nop())
	if _, err := st.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	now := func() time.Time { return fixedNow }
	svc := NewService(st, proposals.NewMemoryStore(now), Options{
		DefaultCurrency: "COP",
		Now:             now,
		Logger:          zerolog.Nop(),
	})
	return svc, src
}

func validInput(desc string) Input {
	return Input{Date: "2025-01-10", Amount: "50.000", Type: "gasto", Category: "comida", Description: desc}
}

func strPtr(s string) *string { return &s }

func TestAddTransaction_Defaults(t *testing.T) {
	svc, _ := newTestService(t)

	tx, err := svc.AddTransaction(context.Background(), Input{Amount: "45.000", Type: "expense", Category: "restaurante", Description: "Almuerzo"})
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if tx.ID != 1 {
		t.Errorf("ID = %d, want 1", tx.ID)
	}
	if tx.Date != (civil.Date{Year: 2025, Month: 3, Day: 14}) {
		t.Errorf("Date = %v, want today", tx.Date)
	}
	if tx.Currency != "COP" || tx.Source != domain.SourceManual {
		t.Errorf("Currency/Source = %s/%s", tx.Currency, tx.Source)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(45000)) {
		t.Errorf("Amount = %s", tx.Amount)
	}
}

func TestAddTransaction_AppearsInQueries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	before, err := svc.Totals(ctx, query.TotalsFilter{})
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}

	tx, err := svc.AddTransaction(ctx, validInput("Mercado"))
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	list, err := svc.List(ctx, query.ListFilter{}, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	seen := 0
	for _, r := range list {
		if r.ID == tx.ID {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("new record listed %d times, want 1", seen)
	}

	after, err := svc.Totals(ctx, query.TotalsFilter{})
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if !after.Expense.Sub(before.Expense).Equal(tx.Amount) || after.Count != before.Count+1 {
		t.Errorf("totals did not reflect new record: before %+v after %+v", before, after)
	}
}

func TestAddTransaction_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name      string
		input     Input
		wantField string
		wantErr   error
	}{
		{name: "bad date", input: Input{Date: "31/02/2025", Amount: "1", Type: "expense", Category: "food", Description: "x"}, wantField: "date", wantErr: domain.ErrInvalidDate},
		{name: "zero amount", input: Input{Amount: "0", Type: "expense", Category: "food", Description: "x"}, wantField: "amount", wantErr: domain.ErrInvalidAmount},
		{name: "bad currency", input: Input{Amount: "1", Currency: "ABC", Type: "expense", Category: "food", Description: "x"}, wantField: "currency", wantErr: domain.ErrInvalidCurrency},
		{name: "bad type", input: Input{Amount: "1", Type: "transfer", Category: "food", Description: "x"}, wantField: "type", wantErr: domain.ErrInvalidType},
		{name: "blank description", input: Input{Amount: "1", Type: "expense", Category: "food", Description: "  "}, wantField: "description", wantErr: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddTransaction(context.Background(), tt.input)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantField || ve.Index != -1 {
				t.Errorf("Field/Index = %s/%d, want %s/-1", ve.Field, ve.Index, tt.wantField)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if len(svc.Export(context.Background())) != 0 {
		t.Error("invalid input was stored")
	}
}

func TestAddTransaction_UnknownCategoryIsFlagged(t *testing.T) {
	svc, _ := newTestService(t)

	in := validInput("Suscripción")
	in.Category = "streaming stuff"
	tx, err := svc.AddTransaction(context.Background(), in)
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if tx.Category != domain.CategoryOther || !tx.NeedsReview {
		t.Errorf("got %s review=%v, want other review=true", tx.Category, tx.NeedsReview)
	}
}

func TestAddTransactionsBatch_TooLarge(t *testing.T) {
	svc, src := newTestService(t)

	ins := make([]Input, 21)
	for i := range ins {
		ins[i] = validInput("x")
	}
	_, err := svc.AddTransactionsBatch(context.Background(), ins)
	if !errors.Is(err, domain.ErrBatchTooLarge) {
		t.Fatalf("err = %v, want ErrBatchTooLarge", err)
	}
	if n := len(svc.Export(context.Background())); n != 0 {
		t.Errorf("store has %d records, want 0", n)
	}
	if src.Writes() != 0 {
		t.Errorf("source written %d times, want 0", src.Writes())
	}
}

func TestAddTransactionsBatch_InvalidEntryRejectsAll(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.AddTransaction(ctx, validInput("existing")); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	ins := []Input{validInput("a"), validInput("b"), validInput("c"), validInput("d"), validInput("e")}
	ins[3].Amount = "abc"

	_, err := svc.AddTransactionsBatch(ctx, ins)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if ve.Index != 3 || ve.Field != "amount" {
		t.Errorf("Index/Field = %d/%s, want 3/amount", ve.Index, ve.Field)
	}
	if n := len(svc.Export(ctx)); n != 1 {
		t.Errorf("store has %d records, want 1", n)
	}
}

func TestAddTransactionsBatch_Success(t *testing.T) {
	svc, _ := newTestService(t)

	ins := make([]Input, 20)
	for i := range ins {
		ins[i] = validInput("x")
	}
	got, err := svc.AddTransactionsBatch(context.Background(), ins)
	if err != nil {
		t.Fatalf("AddTransactionsBatch failed: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("len = %d, want 20", len(got))
	}
	for i, tx := range got {
		if tx.ID != int64(i+1) || tx.Source != domain.SourceBatch {
			t.Errorf("got[%d] = id %d source %s", i, tx.ID, tx.Source)
		}
	}
}

func TestAddTransactionsBatch_PersistFailure(t *testing.T) {
	svc, src := newTestService(t)
	src.FailWrites = errors.New("bucket unavailable")

	_, err := svc.AddTransactionsBatch(context.Background(), []Input{validInput("a"), validInput("b")})
	if !errors.Is(err, domain.ErrPersistFailed) {
		t.Fatalf("err = %v, want ErrPersistFailed", err)
	}
	if n := len(svc.Export(context.Background())); n != 0 {
		t.Errorf("store has %d records after failed flush, want 0", n)
	}
}

func TestUpdateTransaction(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.AddTransaction(ctx, validInput("Mercado"))
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	amount := RawAmount("75.500")
	got, err := svc.UpdateTransaction(ctx, created.ID, Patch{Amount: &amount, Category: strPtr("Alimentación")})
	if err != nil {
		t.Fatalf("UpdateTransaction failed: %v", err)
	}
	if !got.Amount.Equal(decimal.NewFromInt(75500)) || got.Category != domain.CategoryFood {
		t.Errorf("got %s %s", got.Amount, got.Category)
	}
	if got.Description != "Mercado" || got.Date != created.Date {
		t.Errorf("unchanged fields modified: %+v", got)
	}

	tests := []struct {
		name    string
		id      int64
		patch   Patch
		wantErr error
	}{
		{name: "id in payload", id: created.ID, patch: Patch{ID: &created.ID}, wantErr: domain.ErrImmutableField},
		{name: "source in payload", id: created.ID, patch: Patch{Source: strPtr("receipt")}, wantErr: domain.ErrImmutableField},
		{name: "unknown id", id: 99, patch: Patch{Description: strPtr("x")}, wantErr: domain.ErrNotFound},
		{name: "invalid date", id: created.ID, patch: Patch{Date: strPtr("2025-02-30")}, wantErr: domain.ErrInvalidDate},
		{name: "empty patch", id: created.ID, patch: Patch{}, wantErr: domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateTransaction(ctx, tt.id, tt.patch)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	current, _ := svc.Get(ctx, created.ID)
	if !current.Amount.Equal(decimal.NewFromInt(75500)) {
		t.Errorf("rejected update changed record: %+v", current)
	}
}

func TestDeleteTransaction(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.AddTransaction(ctx, validInput("Mercado"))
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	if _, err := svc.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTransaction failed: %v", err)
	}
	list, _ := svc.List(ctx, query.ListFilter{}, nil)
	for _, r := range list {
		if r.ID == created.ID {
			t.Errorf("deleted record %d still listed", created.ID)
		}
	}
	if _, err := svc.DeleteTransaction(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestProposeCommit(t *testing.T) {
	svc, src := newTestService(t)
	ctx := context.Background()

	in := validInput("Factura")
	in.Category = "no idea"
	p, err := svc.Propose(ctx, []Input{validInput("Mercado"), in}, domain.SourceManual)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if p.ID == "" || len(p.Records) != 2 || len(p.Warnings) != 1 {
		t.Fatalf("unexpected proposal: %+v", p)
	}
	if !p.ExpiresAt.Equal(fixedNow.Add(DefaultProposalTTL)) {
		t.Errorf("ExpiresAt = %v", p.ExpiresAt)
	}
	if src.Writes() != 0 || len(svc.Export(ctx)) != 0 {
		t.Fatal("proposal wrote to the ledger")
	}

	committed, err := svc.Commit(ctx, p.ID)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if len(committed) != 2 || committed[0].ID != 1 || committed[1].ID != 2 {
		t.Errorf("committed = %+v", committed)
	}
	if !committed[1].NeedsReview {
		t.Error("flag lost on commit")
	}

	if _, err := svc.Commit(ctx, p.ID); !errors.Is(err, domain.ErrProposalNotFound) {
		t.Errorf("second commit err = %v, want ErrProposalNotFound", err)
	}
}

func TestCommit_PersistFailureKeepsProposal(t *testing.T) {
	svc, src := newTestService(t)
	ctx := context.Background()

	p, err := svc.Propose(ctx, []Input{validInput("Mercado")}, domain.SourceManual)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	src.FailWrites = errors.New("timeout")
	if _, err := svc.Commit(ctx, p.ID); !errors.Is(err, domain.ErrPersistFailed) {
		t.Fatalf("err = %v, want ErrPersistFailed", err)
	}

	src.FailWrites = nil
	if _, err := svc.Commit(ctx, p.ID); err != nil {
		t.Fatalf("retry Commit failed: %v", err)
	}
}

func TestDiscard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Propose(ctx, []Input{validInput("Mercado")}, domain.SourceManual)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if err := svc.Discard(ctx, p.ID); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if _, err := svc.Commit(ctx, p.ID); !errors.Is(err, domain.ErrProposalNotFound) {
		t.Errorf("err = %v, want ErrProposalNotFound", err)
	}
	if err := svc.Discard(ctx, "unknown"); !errors.Is(err, domain.ErrProposalNotFound) {
		t.Errorf("err = %v, want ErrProposalNotFound", err)
	}
}

func TestRawAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		json string
		want RawAmount
	}{
		{`{"amount": 50000}`, "50.000"},
		{`{"amount": 1234.5}`, "1.234,5"},
		{`{"amount": "3.000.000"}`, "3.000.000"},
		{`{"amount": null}`, ""},
	}

	for _, tt := range tests {
		var in Input
		if err := json.Unmarshal([]byte(tt.json), &in); err != nil {
			t.Errorf("Unmarshal(%s) failed: %v", tt.json, err)
			continue
		}
		if in.Amount != tt.want {
			t.Errorf("Unmarshal(%s) amount = %q, want %q", tt.json, in.Amount, tt.want)
		}
	}
}

func TestListProposals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	manual, err := svc.Propose(ctx, []Input{validInput("Mercado")}, domain.SourceManual)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if _, err := svc.Propose(ctx, []Input{validInput("Cine")}, domain.SourceBatch); err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	tests := []struct {
		name    string
		source  domain.Source
		limit   int
		want    int
		wantErr error
	}{
		{name: "all", want: 2},
		{name: "by source", source: domain.SourceManual, want: 1},
		{name: "limit", limit: 1, want: 1},
		{name: "unknown source", source: "fax", wantErr: domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListProposals(ctx, tt.source, tt.limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListProposals failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}

	if _, err := svc.Commit(ctx, manual.ID); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	got, err := svc.ListProposals(ctx, domain.SourceManual, 0)
	if err != nil || len(got) != 0 {
		t.Errorf("after commit: %d proposals, err %v; want none", len(got), err)
	}
}

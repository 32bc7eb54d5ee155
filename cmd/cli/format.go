package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/normalize"
	"github.com/shopspring/decimal"
)

// formatMoney renders an amount with the currency's symbol and separators.
func formatMoney(d decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return normalize.FormatAmount(d) + " " + currency
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, currency).Display()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printTransactions(w io.Writer, records []domain.Transaction) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION\tREVIEW")
	for _, tx := range records {
		review := ""
		if tx.NeedsReview {
			review = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Date, tx.Type, tx.Category, formatMoney(tx.Amount, tx.Currency), tx.Description, review)
	}
	tw.Flush()
}

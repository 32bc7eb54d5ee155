package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/normalize"
)

// parseRow validates a raw row into a transaction. The returned ID is 0
// when the row carries none and one must be assigned. A readable id is
// returned even when a later field fails, so it is never handed out again.
func parseRow(row RawRow, defaultCurrency string) (domain.Transaction, error) {
	corrupt := func(reason string, err error) error {
		return &domain.CorruptRecordError{Line: row.Line, Reason: reason, Err: err}
	}

	var tx domain.Transaction
	if row.Err != nil {
		return tx, corrupt(row.Err.Error(), row.Err)
	}

	if id := strings.TrimSpace(row.ID); id != "" {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n <= 0 {
			return tx, corrupt(fmt.Sprintf("invalid id %q", row.ID), domain.ErrInvalidInput)
		}
		tx.ID = n
	}

	date, err := normalize.ParseDate(row.Date)
	if err != nil {
		return tx, corrupt(err.Error(), err)
	}
	tx.Date = date

	amount, err := normalize.ParsePositiveAmount(row.Amount)
	if err != nil {
		return tx, corrupt(err.Error(), err)
	}
	tx.Amount = amount

	currency, err := normalize.NormalizeCurrency(row.Currency, defaultCurrency)
	if err != nil {
		return tx, corrupt(err.Error(), err)
	}
	tx.Currency = currency

	typ, err := normalize.NormalizeType(row.Type)
	if err != nil {
		return tx, corrupt(err.Error(), err)
	}
	tx.Type = typ

	tx.Category, tx.NeedsReview = normalize.MapCategory(row.Category)

	tx.Description = strings.TrimSpace(row.Description)
	if tx.Description == "" {
		return tx, corrupt("empty description", domain.ErrInvalidInput)
	}

	tx.Source = domain.Source(strings.ToLower(strings.TrimSpace(row.Source)))
	if !tx.Source.Valid() {
		tx.Source = domain.SourceImport
	}

	if flag := strings.TrimSpace(row.NeedsReview); flag != "" {
		review, err := strconv.ParseBool(flag)
		if err != nil {
			return tx, corrupt(fmt.Sprintf("invalid review flag %q", row.NeedsReview), domain.ErrInvalidInput)
		}
		tx.NeedsReview = tx.NeedsReview || review
	}

	return tx, nil
}

// checkRecord enforces the invariants every stored record must hold.
func checkRecord(tx domain.Transaction) error {
	switch {
	case tx.ID <= 0:
		return fmt.Errorf("record has no id")
	case !tx.Amount.IsPositive():
		return fmt.Errorf("record %d: %w: amount must be greater than zero", tx.ID, domain.ErrInvalidAmount)
	case !tx.Type.Valid():
		return fmt.Errorf("record %d: %w: %q", tx.ID, domain.ErrInvalidType, tx.Type)
	case !tx.Category.Valid():
		return fmt.Errorf("record %d: %w: unknown category %q", tx.ID, domain.ErrInvalidInput, tx.Category)
	case strings.TrimSpace(tx.Description) == "":
		return fmt.Errorf("record %d: %w: empty description", tx.ID, domain.ErrInvalidInput)
	case tx.Currency == "":
		return fmt.Errorf("record %d: %w: empty currency", tx.ID, domain.ErrInvalidCurrency)
	case !tx.Date.IsValid():
		return fmt.Errorf("record %d: %w", tx.ID, domain.ErrInvalidDate)
	}
	return nil
}

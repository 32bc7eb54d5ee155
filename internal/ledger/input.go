package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/normalize"
	"github.com/shopspring/decimal"
)

// RawAmount is an amount as received from a caller. JSON strings are kept
// verbatim ("3.000.000", "$ 45.000"); JSON numbers are rendered in the
// ledger's locale format so both reach the same parser.
type RawAmount string

func (a *RawAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = RawAmount(s)
		return nil
	}
	if string(data) == "null" {
		*a = ""
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidAmount, data)
	}
	*a = RawAmount(normalize.FormatAmount(d))
	return nil
}

// Input is the caller supplied form of a new transaction. Every field is
// free text and goes through the normalizer.
type Input struct {
	Date        string    `json:"date,omitempty"`
	Amount      RawAmount `json:"amount"`
	Currency    string    `json:"currency,omitempty"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
}

// Patch is a partial update. Nil fields are left unchanged. ID and Source
// exist only so that their presence can be rejected.
type Patch struct {
	ID          *int64     `json:"id,omitempty"`
	Source      *string    `json:"source,omitempty"`
	Date        *string    `json:"date,omitempty"`
	Amount      *RawAmount `json:"amount,omitempty"`
	Currency    *string    `json:"currency,omitempty"`
	Type        *string    `json:"type,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Description *string    `json:"description,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Date == nil && p.Amount == nil && p.Currency == nil && p.Type == nil &&
		p.Category == nil && p.Description == nil
}

func invalid(index int, field, value string, err error) *domain.ValidationError {
	return &domain.ValidationError{Index: index, Field: field, Value: value, Reason: err.Error(), Err: err}
}

// buildTransaction validates in into a record without an ID. index is the
// batch position reported on failure.
func buildTransaction(in Input, index int, today civil.Date, defaultCurrency string, source domain.Source) (domain.Transaction, error) {
	tx := domain.Transaction{Date: today, Source: source}

	if strings.TrimSpace(in.Date) != "" {
		d, err := normalize.ParseDate(in.Date)
		if err != nil {
			return tx, invalid(index, "date", in.Date, err)
		}
		tx.Date = d
	}

	amount, err := normalize.ParsePositiveAmount(string(in.Amount))
	if err != nil {
		return tx, invalid(index, "amount", string(in.Amount), err)
	}
	tx.Amount = amount

	currency, err := normalize.NormalizeCurrency(in.Currency, defaultCurrency)
	if err != nil {
		return tx, invalid(index, "currency", in.Currency, err)
	}
	tx.Currency = currency

	typ, err := normalize.NormalizeType(in.Type)
	if err != nil {
		return tx, invalid(index, "type", in.Type, err)
	}
	tx.Type = typ

	tx.Category, tx.NeedsReview = normalize.MapCategory(in.Category)

	tx.Description = strings.TrimSpace(in.Description)
	if tx.Description == "" {
		return tx, &domain.ValidationError{Index: index, Field: "description", Reason: "description is required", Err: domain.ErrInvalidInput}
	}
	return tx, nil
}

// applyPatch validates the changed fields of p onto tx.
func applyPatch(tx *domain.Transaction, p Patch, defaultCurrency string) error {
	if p.Date != nil {
		d, err := normalize.ParseDate(*p.Date)
		if err != nil {
			return invalid(-1, "date", *p.Date, err)
		}
		tx.Date = d
	}
	if p.Amount != nil {
		amount, err := normalize.ParsePositiveAmount(string(*p.Amount))
		if err != nil {
			return invalid(-1, "amount", string(*p.Amount), err)
		}
		tx.Amount = amount
	}
	if p.Currency != nil {
		currency, err := normalize.NormalizeCurrency(*p.Currency, defaultCurrency)
		if err != nil {
			return invalid(-1, "currency", *p.Currency, err)
		}
		tx.Currency = currency
	}
	if p.Type != nil {
		typ, err := normalize.NormalizeType(*p.Type)
		if err != nil {
			return invalid(-1, "type", *p.Type, err)
		}
		tx.Type = typ
	}
	if p.Category != nil {
		tx.Category, tx.NeedsReview = normalize.MapCategory(*p.Category)
	}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		if desc == "" {
			return &domain.ValidationError{Index: -1, Field: "description", Reason: "description is required", Err: domain.ErrInvalidInput}
		}
		tx.Description = desc
	}
	return nil
}

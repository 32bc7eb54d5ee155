package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/store"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat resolves a format name; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidInput, s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/json"
}

// Write encodes records in format f.
func Write(w io.Writer, f Format, records []domain.Transaction) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatXLSX:
		return WriteXLSX(w, records)
	}
	return WriteJSON(w, records)
}

// Document is the JSON export envelope.
type Document struct {
	Count        int                  `json:"count"`
	Transactions []domain.Transaction `json:"transactions"`
}

// WriteJSON writes records as a single JSON document.
func WriteJSON(w io.Writer, records []domain.Transaction) error {
	if records == nil {
		records = []domain.Transaction{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Document{Count: len(records), Transactions: records}); err != nil {
		return fmt.Errorf("WriteJSON: %w", err)
	}
	return nil
}

// WriteCSV writes records in the ledger file layout, so an export can be
// used as a file backend directly.
func WriteCSV(w io.Writer, records []domain.Transaction) error {
	return store.EncodeCSV(w, records)
}

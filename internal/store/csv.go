package store

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/normalize"
)

// The ledger file is semicolon separated. Older files only carry
// Description;Income/expensive;Amount;Category;Date.
const csvSeparator = ';'

var csvHeader = []string{"ID", "Date", "Description", "Type", "Amount", "Currency", "Category", "Source", "NeedsReview"}

// column aliases keyed by folded header name
var csvColumns = map[string]string{
	"id":               "id",
	"date":             "date",
	"fecha":            "date",
	"description":      "description",
	"descripcion":      "description",
	"type":             "type",
	"income/expensive": "type",
	"income/expense":   "type",
	"tipo":             "type",
	"amount":           "amount",
	"valor":            "amount",
	"currency":         "currency",
	"moneda":           "currency",
	"category":         "category",
	"categoria":        "category",
	"source":           "source",
	"needsreview":      "needs_review",
	"needs review":     "needs_review",
}

var requiredColumns = []string{"date", "description", "type", "amount", "category"}

// nextIDMarker starts the optional first line holding the id high-water mark.
const nextIDMarker = "#next_id="

// DecodeLedger reads a ledger file: an optional next id marker line followed
// by the CSV rows. An unreadable marker is ignored; ids then follow the
// highest id in the file.
func DecodeLedger(r io.Reader) (Contents, error) {
	br := bufio.NewReader(r)
	var (
		contents Contents
		offset   int
	)
	if b, err := br.Peek(1); err == nil && b[0] == '#' {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return Contents{}, fmt.Errorf("DecodeLedger: read marker: %w", err)
		}
		offset = 1
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), nextIDMarker); ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				contents.NextID = n
			}
		}
	}

	rows, err := DecodeCSV(br)
	if err != nil {
		return Contents{}, err
	}
	for i := range rows {
		rows[i].Line += offset
	}
	contents.Rows = rows
	return contents, nil
}

// DecodeCSV reads ledger rows from r. A line the CSV reader cannot parse is
// returned as a row with Err set, so one bad line never hides the rest.
func DecodeCSV(r io.Reader) ([]RawRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = csvSeparator
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("DecodeCSV: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		if col, ok := csvColumns[normalize.Fold(h)]; ok {
			index[col] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("DecodeCSV: missing column %q", col)
		}
	}

	var rows []RawRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			rows = append(rows, RawRow{Line: parseErr.Line, Err: parseErr.Err})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("DecodeCSV: read row: %w", err)
		}
		if isBlank(rec) {
			continue
		}

		line, _ := cr.FieldPos(0)
		field := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		rows = append(rows, RawRow{
			Line:        line,
			ID:          field("id"),
			Date:        field("date"),
			Amount:      field("amount"),
			Currency:    field("currency"),
			Type:        field("type"),
			Category:    field("category"),
			Description: field("description"),
			Source:      field("source"),
			NeedsReview: field("needs_review"),
		})
	}
	return rows, nil
}

// EncodeCSV writes records in the canonical ledger layout.
func EncodeCSV(w io.Writer, records []domain.Transaction) error {
	cw := csv.NewWriter(w)
	cw.Comma = csvSeparator
	if err := writeRecords(cw, records); err != nil {
		return fmt.Errorf("EncodeCSV: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("EncodeCSV: flush: %w", err)
	}
	return nil
}

// EncodeLedger writes the full durable state: the next id marker, the
// records, then quarantined rows exactly as they were read.
func EncodeLedger(w io.Writer, f Flush) error {
	if f.NextID > 0 {
		if _, err := fmt.Fprintf(w, "%s%d\n", nextIDMarker, f.NextID); err != nil {
			return fmt.Errorf("EncodeLedger: write marker: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = csvSeparator
	if err := writeRecords(cw, f.Records); err != nil {
		return fmt.Errorf("EncodeLedger: %w", err)
	}
	for _, row := range f.Quarantined {
		rec := []string{row.ID, row.Date, row.Description, row.Type, row.Amount, row.Currency, row.Category, row.Source, row.NeedsReview}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("EncodeLedger: write quarantined line %d: %w", row.Line, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("EncodeLedger: flush: %w", err)
	}
	return nil
}

func writeRecords(cw *csv.Writer, records []domain.Transaction) error {
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range records {
		rec := []string{
			strconv.FormatInt(tx.ID, 10),
			normalize.FormatDate(tx.Date),
			tx.Description,
			string(tx.Type),
			normalize.FormatAmount(tx.Amount),
			tx.Currency,
			string(tx.Category),
			string(tx.Source),
			strconv.FormatBool(tx.NeedsReview),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write record %d: %w", tx.ID, err)
		}
	}
	return nil
}

// MarshalLedger is EncodeLedger into a byte slice.
func MarshalLedger(f Flush) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeLedger(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

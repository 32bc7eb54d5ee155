package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/normalize"
	"github.com/dvloznov/pfm-ledger/internal/store"
	"github.com/shopspring/decimal"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// numericScale is the fractional precision of the NUMERIC type.
const numericScale = 9

// nextIDLabel is the table label holding the id high-water mark.
const nextIDLabel = "next_id"

// TableSource keeps the ledger in a BigQuery table. Every flush is a single
// load job with WRITE_TRUNCATE, which replaces the table contents atomically.
type TableSource struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string
}

// NewTableSource creates a BigQuery client for project and returns a source
// for project.dataset.table.
func NewTableSource(ctx context.Context, project, dataset, table string) (*TableSource, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewTableSource: creating client: %w", err)
	}
	return &TableSource{client: client, project: project, dataset: dataset, table: table}, nil
}

// Close closes the BigQuery client connection.
func (s *TableSource) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *TableSource) tableRef() *bigquery.Table {
	return s.client.DatasetInProject(s.project, s.dataset).Table(s.table)
}

func (s *TableSource) qualifiedName() string {
	return fmt.Sprintf("`%s.%s.%s`", s.project, s.dataset, s.table)
}

// LoadAll reads every row ordered by id. A missing table is an empty ledger.
func (s *TableSource) LoadAll(ctx context.Context) (store.Contents, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			id,
			date,
			amount,
			currency,
			type,
			category,
			description,
			IFNULL(source, '') AS source,
			IFNULL(needs_review, FALSE) AS needs_review
		FROM %s
		ORDER BY id
	`, s.qualifiedName()))

	it, err := q.Read(ctx)
	if isNotFound(err) {
		return store.Contents{}, nil
	}
	if err != nil {
		return store.Contents{}, fmt.Errorf("TableSource.LoadAll: running query: %w", err)
	}

	var rows []store.RawRow
	for line := 1; ; line++ {
		var r LedgerRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return store.Contents{}, fmt.Errorf("TableSource.LoadAll: reading row: %w", err)
		}
		rows = append(rows, rawRow(line, r))
	}

	md, err := s.tableRef().Metadata(ctx)
	if err != nil {
		return store.Contents{}, fmt.Errorf("TableSource.LoadAll: reading metadata: %w", err)
	}
	return store.Contents{Rows: rows, NextID: nextIDFromLabels(md.Labels)}, nil
}

// ReplaceAll truncates the table and loads the records and quarantined rows
// in one job. The id mark is labelled first, so a failed load can only leave
// it ahead of the data.
func (s *TableSource) ReplaceAll(ctx context.Context, f store.Flush) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, tx := range f.Records {
		if err := enc.Encode(toLoadRow(tx)); err != nil {
			return fmt.Errorf("TableSource.ReplaceAll: encoding record %d: %w", tx.ID, err)
		}
	}
	for _, row := range f.Quarantined {
		lr, err := quarantinedLoadRow(row)
		if err != nil {
			return fmt.Errorf("TableSource.ReplaceAll: %w", err)
		}
		if err := enc.Encode(lr); err != nil {
			return fmt.Errorf("TableSource.ReplaceAll: encoding row %d: %w", row.Line, err)
		}
	}

	if err := s.markNextID(ctx, f.NextID); err != nil {
		return fmt.Errorf("TableSource.ReplaceAll: %w", err)
	}

	src := bigquery.NewReaderSource(&buf)
	src.SourceFormat = bigquery.JSON
	src.Schema = ledgerSchema

	loader := s.tableRef().LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.CreateDisposition = bigquery.CreateIfNeeded

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("TableSource.ReplaceAll: starting load job: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("TableSource.ReplaceAll: waiting for load job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("TableSource.ReplaceAll: load job failed: %w", err)
	}
	return nil
}

// markNextID labels the table with next, creating the table when the ledger
// has never been written.
func (s *TableSource) markNextID(ctx context.Context, next int64) error {
	if next <= 0 {
		return nil
	}
	value := strconv.FormatInt(next, 10)
	table := s.tableRef()

	var md bigquery.TableMetadataToUpdate
	md.SetLabel(nextIDLabel, value)
	_, err := table.Update(ctx, md, "")
	if isNotFound(err) {
		err = table.Create(ctx, &bigquery.TableMetadata{
			Schema: ledgerSchema,
			Labels: map[string]string{nextIDLabel: value},
		})
	}
	if err != nil {
		return fmt.Errorf("labelling next id %d: %w", next, err)
	}
	return nil
}

func nextIDFromLabels(labels map[string]string) int64 {
	n, err := strconv.ParseInt(labels[nextIDLabel], 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// quarantinedLoadRow converts a row read from the table back to its load
// form. Such rows failed validation on meaning, not on column types, so the
// conversion only fails for rows that never came from a table.
func quarantinedLoadRow(row store.RawRow) (loadRow, error) {
	lr := loadRow{
		Currency:    row.Currency,
		Type:        row.Type,
		Category:    row.Category,
		Description: row.Description,
		Source:      row.Source,
	}
	if row.ID != "" {
		id, err := strconv.ParseInt(row.ID, 10, 64)
		if err != nil {
			return loadRow{}, fmt.Errorf("quarantined row %d: id %q: %w", row.Line, row.ID, err)
		}
		lr.ID = id
	}
	date, err := civil.ParseDate(row.Date)
	if err != nil {
		return loadRow{}, fmt.Errorf("quarantined row %d: date %q: %w", row.Line, row.Date, err)
	}
	lr.Date = date.String()

	digits, neg := strings.CutPrefix(row.Amount, "-")
	amount, err := normalize.ParseAmount(digits)
	if err != nil {
		return loadRow{}, fmt.Errorf("quarantined row %d: %w", row.Line, err)
	}
	if neg {
		amount = amount.Neg()
	}
	lr.Amount = amount.StringFixedBank(numericScale)

	if row.NeedsReview != "" {
		lr.NeedsReview, _ = strconv.ParseBool(row.NeedsReview)
	}
	return lr, nil
}

func rawRow(line int, r LedgerRow) store.RawRow {
	raw := store.RawRow{
		Line:        line,
		ID:          strconv.FormatInt(r.ID, 10),
		Date:        r.Date.String(),
		Currency:    r.Currency,
		Type:        r.Type,
		Category:    r.Category,
		Description: r.Description,
		Source:      r.Source,
		NeedsReview: strconv.FormatBool(r.NeedsReview),
	}
	if r.Amount != nil {
		raw.Amount = normalize.FormatAmount(decimal.NewFromBigRat(r.Amount, numericScale))
	}
	return raw
}

func toLoadRow(tx domain.Transaction) loadRow {
	return loadRow{
		ID:          tx.ID,
		Date:        tx.Date.String(),
		Amount:      tx.Amount.StringFixedBank(numericScale),
		Currency:    tx.Currency,
		Type:        string(tx.Type),
		Category:    string(tx.Category),
		Description: tx.Description,
		Source:      string(tx.Source),
		NeedsReview: tx.NeedsReview,
	}
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// Ensure TableSource implements store.Source interface.
var _ store.Source = (*TableSource)(nil)

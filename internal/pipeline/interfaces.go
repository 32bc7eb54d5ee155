package pipeline

import (
	"context"

	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/proposals"
)

// Extractor reads the rows of a receipt image. It stands in for the OCR
// step and enables mocking in tests.
type Extractor interface {
	ExtractReceipt(ctx context.Context, data []byte, mimeType string) (*Receipt, error)
}

// ObjectFetcher loads receipt bytes from object storage.
type ObjectFetcher interface {
	FetchObject(ctx context.Context, uri string) ([]byte, string, error)
}

// Proposer parks normalized records until the caller confirms them.
// *ledger.Service implements it.
type Proposer interface {
	ProposeRecords(ctx context.Context, records []domain.Transaction, source domain.Source, warnings []string) (*proposals.Proposal, error)
}

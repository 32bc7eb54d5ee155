// Package app wires configuration into a running ledger engine. It is shared
// by the binaries under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/pfm-ledger/internal/config"
	"github.com/dvloznov/pfm-ledger/internal/gcs"
	infraBQ "github.com/dvloznov/pfm-ledger/internal/infra/bigquery"
	"github.com/dvloznov/pfm-ledger/internal/ledger"
	"github.com/dvloznov/pfm-ledger/internal/pipeline"
	"github.com/dvloznov/pfm-ledger/internal/proposals"
	"github.com/dvloznov/pfm-ledger/internal/store"
	"github.com/rs/zerolog"
)

// App is a loaded ledger with its collaborators.
type App struct {
	Config    *config.Config
	Store     *store.Store
	Proposals *proposals.MemoryStore
	Service   *ledger.Service
	Receipts  *pipeline.Pipeline
	// GCS is nil unless a bucket is configured.
	GCS *gcs.Client

	log     zerolog.Logger
	closers []func() error
}

// Open builds the backing source selected by cfg, loads the ledger and
// assembles the service and the receipt pipeline.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, log: log}

	if cfg.Storage.GCS.Bucket != "" {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.GCS = client
		a.closers = append(a.closers, client.Close)
	}

	source, err := a.openSource(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Store = store.New(source, cfg.Ledger.DefaultCurrency, log.With().Str("component", "store").Logger())
	report, err := a.Store.Load(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: %w", err)
	}
	if len(report.Corrupt) > 0 {
		log.Warn().Int("corrupt", len(report.Corrupt)).Msg("Ledger loaded with skipped rows")
	}

	a.Proposals = proposals.NewMemoryStore(time.Now)
	a.Service = ledger.NewService(a.Store, a.Proposals, ledger.Options{
		DefaultCurrency: cfg.Ledger.DefaultCurrency,
		MaxBatchSize:    cfg.Ledger.MaxBatchSize,
		ProposalTTL:     cfg.Proposals.TTL,
		Logger:          log.With().Str("component", "ledger").Logger(),
	})

	deps := pipeline.Deps{Proposer: a.Service, DefaultCurrency: cfg.Ledger.DefaultCurrency}
	if a.GCS != nil {
		deps.Fetcher = a.GCS
	}
	if cfg.Gemini.APIKey != "" {
		extractor, err := pipeline.NewGeminiExtractor(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
		deps.Extractor = extractor
	} else {
		log.Info().Msg("No Gemini API key configured, receipts must be sent as rows")
	}
	a.Receipts = pipeline.NewReceiptPipeline(deps)

	return a, nil
}

func (a *App) openSource(ctx context.Context) (store.Source, error) {
	s := a.Config.Storage
	switch s.Backend {
	case config.BackendFile:
		a.log.Info().Str("path", s.FilePath).Msg("Using ledger file")
		return store.NewFileSource(s.FilePath), nil
	case config.BackendGCS:
		if a.GCS == nil {
			return nil, errors.New("app: gcs backend needs storage.gcs.bucket")
		}
		src := gcs.NewObjectSource(a.GCS.Storage(), s.GCS.Bucket, s.GCS.Object)
		a.log.Info().Str("uri", src.URI()).Msg("Using ledger object")
		return src, nil
	case config.BackendBigQuery:
		src, err := infraBQ.NewTableSource(ctx, s.BigQuery.Project, s.BigQuery.Dataset, s.BigQuery.Table)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.closers = append(a.closers, src.Close)
		a.log.Info().Str("project", s.BigQuery.Project).Str("dataset", s.BigQuery.Dataset).
			Str("table", s.BigQuery.Table).Msg("Using ledger table")
		return src, nil
	case config.BackendMemory:
		a.log.Warn().Msg("Using in-memory ledger, changes are lost on exit")
		return store.NewMemorySource(), nil
	}
	return nil, fmt.Errorf("app: unknown storage backend %q", s.Backend)
}

// PurgeProposals drops expired proposals every interval until ctx ends.
func (a *App) PurgeProposals(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Proposals.Purge(); n > 0 {
				a.log.Debug().Int("purged", n).Msg("Expired proposals purged")
			}
		}
	}
}

// Close releases cloud clients.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

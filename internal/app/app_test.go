package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/pfm-ledger/internal/config"
	"github.com/dvloznov/pfm-ledger/internal/ledger"
	"github.com/rs/zerolog"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		Storage:   config.StorageConfig{Backend: backend},
		Ledger:    config.LedgerConfig{DefaultCurrency: "COP", MaxBatchSize: 20},
		Proposals: config.ProposalsConfig{TTL: time.Minute},
	}
}

func TestOpenFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	content := "Description;Income/expensive;Amount;Category;Date\n" +
		"Mercado;expensive;50.000;Comida;2025-01-10\n" +
		"Nómina;income;3.000.000;Salario;2025-01-30\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(config.BackendFile)
	cfg.Storage.FilePath = path
	a, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()

	if a.Store.Len() != 2 {
		t.Fatalf("loaded %d records, want 2", a.Store.Len())
	}
	if _, err := a.Service.AddTransaction(context.Background(), ledger.Input{
		Date: "2025-02-01", Amount: "10.000", Type: "gasto", Category: "transporte", Description: "Taxi",
	}); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	reopened, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.Store.Len() != 3 {
		t.Errorf("reopened ledger has %d records, want 3", reopened.Store.Len())
	}
}

func TestOpenMemoryBackend(t *testing.T) {
	a, err := Open(context.Background(), testConfig(config.BackendMemory), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if a.GCS != nil {
		t.Error("no bucket configured, expected no GCS client")
	}
	if a.Receipts == nil || a.Service == nil {
		t.Error("service and receipt pipeline must be wired")
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), testConfig("tape"), zerolog.Nop()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestPurgeProposalsStops(t *testing.T) {
	a, err := Open(context.Background(), testConfig(config.BackendMemory), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.PurgeProposals(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PurgeProposals did not stop after cancel")
	}
}

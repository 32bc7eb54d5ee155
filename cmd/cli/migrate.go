package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dvloznov/pfm-ledger/internal/logger"
	"github.com/dvloznov/pfm-ledger/internal/store"
	"github.com/google/subcommands"
)

type migrateCmd struct {
	from   string
	dryRun bool
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "copy a ledger CSV file into the configured backend" }
func (*migrateCmd) Usage() string {
	return `ledger migrate -from <ledger.csv> [-dry-run]

  Loads the file (legacy Description;Income/expensive;Amount;Category;Date
  files included), reports rows that cannot be read, and stores the rest in
  the configured backend as one insert. The backend must be empty.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Ledger CSV file to copy.")
	f.BoolVar(&c.dryRun, "dry-run", false, "Only report what would be copied.")
}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" {
		return fail(fmt.Errorf("-from is required"))
	}

	ctx, a, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	legacy := store.New(store.NewFileSource(c.from), a.Config.Ledger.DefaultCurrency, logger.FromContext(ctx))
	report, err := legacy.Load(ctx)
	if err != nil {
		return fail(err)
	}
	for _, bad := range report.Corrupt {
		fmt.Fprintf(os.Stderr, "skipped: %v\n", bad)
	}
	fmt.Printf("%d rows readable, %d skipped\n", report.Loaded, len(report.Corrupt))

	if c.dryRun || report.Loaded == 0 {
		return subcommands.ExitSuccess
	}
	if n := a.Store.Len(); n > 0 {
		return fail(fmt.Errorf("target ledger already holds %d transactions", n))
	}

	res, err := a.Store.Apply(ctx, store.Insert{Records: legacy.Snapshot()})
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Copied %d transactions to the %s backend\n", len(res.Records), a.Config.Storage.Backend)
	return subcommands.ExitSuccess
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dvloznov/pfm-ledger/internal/export"
	"github.com/google/subcommands"
)

type exportCmd struct {
	format string
	out    string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write every transaction as json, csv or xlsx" }
func (*exportCmd) Usage() string {
	return `ledger export [-format json|csv|xlsx] [-o <file>]
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", "json", "Output format: json, csv or xlsx.")
	f.StringVar(&c.out, "o", "", "Output file, defaults to stdout.")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	format, err := export.ParseFormat(c.format)
	if err != nil {
		return fail(err)
	}
	if format == export.FormatXLSX && c.out == "" {
		return fail(fmt.Errorf("xlsx export needs -o"))
	}

	ctx, a, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	var w io.Writer = os.Stdout
	if c.out != "" {
		f, err := os.Create(c.out)
		if err != nil {
			return fail(err)
		}
		defer f.Close()
		w = f
	}

	records := a.Service.Export(ctx)
	if err := export.Write(w, format, records); err != nil {
		return fail(err)
	}
	if c.out != "" {
		fmt.Fprintf(os.Stderr, "Exported %d transactions to %s\n", len(records), c.out)
	}
	return subcommands.ExitSuccess
}

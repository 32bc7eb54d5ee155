package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dvloznov/pfm-ledger/internal/domain"
	"github.com/dvloznov/pfm-ledger/internal/ledger"
	"github.com/google/subcommands"
)

var mutationCommands = []subcommands.Command{
	&addCmd{},
	&updateCmd{},
	&deleteCmd{},
}

type addCmd struct {
	in   ledger.Input
	file string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add one transaction, or a batch from a JSON file" }
func (*addCmd) Usage() string {
	return `ledger add -amount <a> -type <t> -category <c> -description <d> [-date <d>] [-currency <c>]
ledger add -file <batch.json>

  The batch file holds a JSON array of objects with the fields date, amount,
  currency, type, category and description. It is stored all or nothing.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.in.Date, "date", "", "Date (YYYY-MM-DD or DD/MM/YYYY), defaults to today.")
	f.Func("amount", "Amount, e.g. 45.000 or 1.234,50.", func(s string) error {
		c.in.Amount = ledger.RawAmount(s)
		return nil
	})
	f.StringVar(&c.in.Currency, "currency", "", "ISO currency code, defaults to the ledger currency.")
	f.StringVar(&c.in.Type, "type", "", "income or expense.")
	f.StringVar(&c.in.Category, "category", "", "Category label.")
	f.StringVar(&c.in.Description, "description", "", "Free text description.")
	f.StringVar(&c.file, "file", "", "Add the JSON batch in this file instead.")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var batch []ledger.Input
	if c.file != "" {
		data, err := os.ReadFile(c.file)
		if err != nil {
			return fail(err)
		}
		if err := json.Unmarshal(data, &batch); err != nil {
			return fail(fmt.Errorf("%s: %w", c.file, err))
		}
	}

	ctx, a, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	var added []domain.Transaction
	if batch != nil {
		added, err = a.Service.AddTransactionsBatch(ctx, batch)
	} else {
		var tx domain.Transaction
		tx, err = a.Service.AddTransaction(ctx, c.in)
		added = []domain.Transaction{tx}
	}
	if err != nil {
		return fail(err)
	}
	printTransactions(os.Stdout, added)
	return subcommands.ExitSuccess
}

type updateCmd struct {
	id    int64
	patch ledger.Patch
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "change fields of a transaction" }
func (*updateCmd) Usage() string {
	return `ledger update -id <n> [-date <d>] [-amount <a>] [-currency <c>] [-type <t>] [-category <c>] [-description <d>]
`
}

// optional returns a flag.Func that sets *dst only when the flag is given.
func optional(dst **string) func(string) error {
	return func(s string) error {
		*dst = &s
		return nil
	}
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Transaction id.")
	f.Func("date", "New date.", optional(&c.patch.Date))
	f.Func("amount", "New amount.", func(s string) error {
		amount := ledger.RawAmount(s)
		c.patch.Amount = &amount
		return nil
	})
	f.Func("currency", "New currency.", optional(&c.patch.Currency))
	f.Func("type", "New type.", optional(&c.patch.Type))
	f.Func("category", "New category.", optional(&c.patch.Category))
	f.Func("description", "New description.", optional(&c.patch.Description))
}

func (c *updateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, a, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	tx, err := a.Service.UpdateTransaction(ctx, c.id, c.patch)
	if err != nil {
		return fail(err)
	}
	printTransactions(os.Stdout, []domain.Transaction{tx})
	return subcommands.ExitSuccess
}

type deleteCmd struct {
	id int64
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a transaction" }
func (*deleteCmd) Usage() string {
	return `ledger delete -id <n>
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Transaction id.")
}

func (c *deleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, a, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	tx, err := a.Service.DeleteTransaction(ctx, c.id)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Deleted transaction %d (%s, %s).\n", tx.ID, tx.Description, formatMoney(tx.Amount, tx.Currency))
	return subcommands.ExitSuccess
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/pfm-ledger/internal/normalize"
	"github.com/dvloznov/pfm-ledger/internal/query"
	"github.com/google/subcommands"
)

var queryCommands = []subcommands.Command{
	&totalsCmd{},
	&listCmd{},
	&byCategoryCmd{},
	&byMonthCmd{},
	&summaryCmd{},
}

// periodFlags holds the optional year/month filter shared by several
// commands. Zero means unset.
type periodFlags struct {
	year  int
	month int
}

func (p *periodFlags) register(f *flag.FlagSet) {
	f.IntVar(&p.year, "year", 0, "Restrict to this year.")
	f.IntVar(&p.month, "month", 0, "Restrict to this month (1-12); needs -year.")
}

func (p *periodFlags) values() (year, month *int) {
	if p.year != 0 {
		year = &p.year
	}
	if p.month != 0 {
		month = &p.month
	}
	return year, month
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}

type totalsCmd struct {
	period   periodFlags
	category string
}

func (*totalsCmd) Name() string     { return "totals" }
func (*totalsCmd) Synopsis() string { return "show income, expense and balance" }
func (*totalsCmd) Usage() string {
	return `ledger totals [-year <y> [-month <m>]] [-category <label>]
`
}

func (c *totalsCmd) SetFlags(f *flag.FlagSet) {
	c.period.register(f)
	f.StringVar(&c.category, "category", "", "Category label, or 'all'.")
}

func (c *totalsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, a, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	year, month := c.period.values()
	totals, err := a.Service.Totals(ctx, query.TotalsFilter{Year: year, Month: month, Category: c.category})
	if err != nil {
		return fail(err)
	}

	cur := a.Config.Ledger.DefaultCurrency
	tw := newTable(os.Stdout)
	fmt.Fprintf(tw, "Income\t%s\n", formatMoney(totals.Income, cur))
	fmt.Fprintf(tw, "Expense\t%s\n", formatMoney(totals.Expense, cur))
	fmt.Fprintf(tw, "Balance\t%s\n", formatMoney(totals.Balance, cur))
	fmt.Fprintf(tw, "Transactions\t%d\n", totals.Count)
	tw.Flush()
	return subcommands.ExitSuccess
}

type listCmd struct {
	period   periodFlags
	category string
	typ      string
	start    string
	end      string
	text     string
	review   bool
	limit    int
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list transactions, most recent first" }
func (*listCmd) Usage() string {
	return `ledger list [-year <y> [-month <m>]] [-start <date>] [-end <date>]
            [-category <label>] [-type income|expense] [-text <words>] [-review] [-n <limit>]
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	c.period.register(f)
	f.StringVar(&c.category, "category", "", "Category label, or 'all'.")
	f.StringVar(&c.typ, "type", "", "income or expense (Spanish labels accepted).")
	f.StringVar(&c.start, "start", "", "First date, inclusive (YYYY-MM-DD or DD/MM/YYYY).")
	f.StringVar(&c.end, "end", "", "Last date, inclusive.")
	f.StringVar(&c.text, "text", "", "Match descriptions, ignoring case and accents.")
	f.BoolVar(&c.review, "review", false, "Only records flagged for review.")
	f.IntVar(&c.limit, "n", 0, "Show at most n records.")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	f := query.ListFilter{Category: c.category, Text: c.text}
	f.Year, f.Month = c.period.values()
	if c.typ != "" {
		typ, err := normalize.NormalizeType(c.typ)
		if err != nil {
			return fail(err)
		}
		f.Type = typ
	}
	for _, d := range []struct {
		raw string
		dst **civil.Date
	}{{c.start, &f.StartDate}, {c.end, &f.EndDate}} {
		if d.raw == "" {
			continue
		}
		date, err := normalize.ParseDate(d.raw)
		if err != nil {
			return fail(err)
		}
		*d.dst = &date
	}
	if c.review {
		f.NeedsReview = &c.review
	}
	var limit *int
	if c.limit != 0 {
		limit = &c.limit
	}

	ctx, a, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	records, err := a.Service.List(ctx, f, limit)
	if err != nil {
		return fail(err)
	}
	printTransactions(os.Stdout, records)
	return subcommands.ExitSuccess
}

type byCategoryCmd struct {
	period periodFlags
}

func (*byCategoryCmd) Name() string     { return "by-category" }
func (*byCategoryCmd) Synopsis() string { return "show expenses grouped by category" }
func (*byCategoryCmd) Usage() string {
	return `ledger by-category [-year <y> [-month <m>]]
`
}

func (c *byCategoryCmd) SetFlags(f *flag.FlagSet) { c.period.register(f) }

func (c *byCategoryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, a, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	year, month := c.period.values()
	totals, err := a.Service.ExpensesByCategory(ctx, query.Period{Year: year, Month: month})
	if err != nil {
		return fail(err)
	}

	cur := a.Config.Ledger.DefaultCurrency
	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "CATEGORY\tTOTAL\tCOUNT")
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", t.Category, formatMoney(t.Total, cur), t.Count)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}

type byMonthCmd struct {
	category string
	year     int
}

func (*byMonthCmd) Name() string     { return "by-month" }
func (*byMonthCmd) Synopsis() string { return "show the monthly expenses of one category" }
func (*byMonthCmd) Usage() string {
	return `ledger by-month -category <label> -year <y>
`
}

func (c *byMonthCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.category, "category", "", "Category label.")
	f.IntVar(&c.year, "year", 0, "Year to report.")
}

func (c *byMonthCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, a, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	months, err := a.Service.ExpensesByMonth(ctx, c.category, c.year)
	if err != nil {
		return fail(err)
	}

	cur := a.Config.Ledger.DefaultCurrency
	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "MONTH\tTOTAL\tCOUNT")
	for _, m := range months {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", m.Month, formatMoney(m.Total, cur), m.Count)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	year int
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show income and expense for every month of a year" }
func (*summaryCmd) Usage() string {
	return `ledger summary -year <y>
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", 0, "Year to report.")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, a, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	months, err := a.Service.MonthlySummary(ctx, c.year)
	if err != nil {
		return fail(err)
	}

	cur := a.Config.Ledger.DefaultCurrency
	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSE\tBALANCE")
	for _, m := range months {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Month,
			formatMoney(m.Income, cur), formatMoney(m.Expense, cur), formatMoney(m.Balance, cur))
	}
	tw.Flush()
	return subcommands.ExitSuccess
}

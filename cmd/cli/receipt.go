package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/pfm-ledger/internal/app"
	"github.com/dvloznov/pfm-ledger/internal/gcs"
	"github.com/dvloznov/pfm-ledger/internal/logger"
	"github.com/dvloznov/pfm-ledger/internal/pipeline"
	"github.com/google/subcommands"
	"github.com/google/uuid"
)

type receiptCmd struct {
	image   string
	uri     string
	rows    string
	date    string
	archive bool
	yes     bool
}

func (*receiptCmd) Name() string     { return "receipt" }
func (*receiptCmd) Synopsis() string { return "turn a payslip or receipt into transactions" }
func (*receiptCmd) Usage() string {
	return `ledger receipt (-image <file> | -uri gs://bucket/object | -rows <receipt.json>) [-date <d>] [-archive] [-yes]

  Reads the receipt, merges repeated concepts and shows the transactions it
  would add. Nothing is written until you confirm.
`
}

func (c *receiptCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.image, "image", "", "Local image or PDF of the receipt.")
	f.StringVar(&c.uri, "uri", "", "Receipt stored in Cloud Storage.")
	f.StringVar(&c.rows, "rows", "", "JSON file with already extracted rows.")
	f.StringVar(&c.date, "date", "", "Use this date instead of the one on the receipt.")
	f.BoolVar(&c.archive, "archive", false, "Upload -image to the configured bucket before reading it.")
	f.BoolVar(&c.yes, "yes", false, "Commit without asking.")
}

func (c *receiptCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	given := 0
	for _, s := range []string{c.image, c.uri, c.rows} {
		if s != "" {
			given++
		}
	}
	if given != 1 {
		return fail(fmt.Errorf("give exactly one of -image, -uri or -rows"))
	}

	ctx, a, err := openLedger(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	state, err := c.state(ctx, a)
	if err != nil {
		return fail(err)
	}

	proposal, err := a.Receipts.ProposeReceipt(ctx, state)
	if err != nil {
		return fail(err)
	}

	printTransactions(os.Stdout, proposal.Records)
	for _, w := range proposal.Warnings {
		fmt.Printf("warning: %s\n", w)
	}

	if !c.yes && !confirm(os.Stdin, os.Stdout, fmt.Sprintf("Add these %d transactions?", len(proposal.Records))) {
		if err := a.Service.Discard(ctx, proposal.ID); err != nil {
			return fail(err)
		}
		fmt.Println("Discarded.")
		return subcommands.ExitSuccess
	}

	added, err := a.Service.Commit(ctx, proposal.ID)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Added %d transactions.\n", len(added))
	return subcommands.ExitSuccess
}

func (c *receiptCmd) state(ctx context.Context, a *app.App) (*pipeline.PipelineState, error) {
	state := &pipeline.PipelineState{Date: c.date}
	switch {
	case c.rows != "":
		data, err := os.ReadFile(c.rows)
		if err != nil {
			return nil, err
		}
		var receipt pipeline.Receipt
		if err := json.Unmarshal(data, &receipt); err != nil {
			return nil, fmt.Errorf("%s: %w", c.rows, err)
		}
		state.Receipt = &receipt
	case c.uri != "":
		state.ImageURI = c.uri
	default:
		data, err := os.ReadFile(c.image)
		if err != nil {
			return nil, err
		}
		state.Image = data
		state.MIMEType = http.DetectContentType(data)
		if c.archive {
			if a.GCS == nil {
				return nil, fmt.Errorf("-archive needs storage.gcs.bucket")
			}
			uri, err := archive(ctx, a.GCS, a.Config.Storage.GCS.Bucket, c.image, time.Now())
			if err != nil {
				return nil, err
			}
			state.ImageURI = uri
		}
	}
	return state, nil
}

// archive uploads a local receipt under receipts/YYYY/MM/DD/.
func archive(ctx context.Context, uploader gcs.StorageService, bucket, path string, now time.Time) (string, error) {
	object := fmt.Sprintf("receipts/%s/%s-%s", now.Format("2006/01/02"), uuid.NewString(), filepath.Base(path))
	if err := uploader.UploadFile(ctx, bucket, object, path); err != nil {
		return "", err
	}
	uri := fmt.Sprintf("gs://%s/%s", bucket, object)
	logger.FromContext(ctx).Info().Str("gcs_uri", uri).Msg("Receipt archived")
	return uri, nil
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "s", "si", "sí":
		return true
	}
	return false
}

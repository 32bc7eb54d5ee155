package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/dvloznov/pfm-ledger/internal/app"
	"github.com/dvloznov/pfm-ledger/internal/config"
	"github.com/dvloznov/pfm-ledger/internal/logger"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var (
	configPath = flag.String("config", os.Getenv("LEDGER_CONFIG"), "Path to a YAML config file (or set LEDGER_CONFIG env)")
	verbose    = flag.Bool("v", false, "Log at debug level")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range queryCommands {
		commander.Register(c, "query")
	}
	for _, c := range mutationCommands {
		commander.Register(c, "change")
	}
	commander.Register(&exportCmd{}, "export")
	commander.Register(&receiptCmd{}, "receipts")
	commander.Register(&migrateCmd{}, "maintenance")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// openLedger loads configuration and the ledger for one command run. CLI logs
// go to stderr so that command output stays clean.
func openLedger(ctx context.Context) (context.Context, *app.App, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return ctx, nil, err
	}
	level := cfg.Log.Level
	if *verbose {
		level = zerolog.LevelDebugValue
	}
	log, err := logger.NewFromConfig(logger.Config{Level: level, Format: logger.FormatConsole}, os.Stderr)
	if err != nil {
		return ctx, nil, err
	}
	if !*verbose {
		log = log.Level(max(log.GetLevel(), zerolog.WarnLevel))
	}

	ctx = logger.WithContext(ctx, log)
	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, a, nil
}

// Command bilancio is the interactive budget manager. The menu subcommand
// starts the shell; the import subcommand bulk-loads transactions from CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"bilancio/internal/alert"
	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/importer"
	"bilancio/internal/ledger"
	"bilancio/internal/menu"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&menuCmd{}, "ledger")
	commander.Register(&importCmd{}, "ledger")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// buildEngine wires the configured store, optional broker client and the
// ledger engine. The returned cleanup releases both.
func buildEngine(ctx context.Context) (*ledger.Engine, func(), error) {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage backend: %w", err)
	}

	var notifier alert.Notifier = alert.NewLogNotifier(logger)
	var events ledger.EventPublisher

	var broker *amqp.Client
	if cfg.AMQPEnabled() {
		broker, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPExportQueue, cfg.AMQPAlertQueue)
		if err != nil {
			// The ledger works without the broker; the worker's pending scan
			// picks up anything recorded while it was down.
			logger.Warn("AMQP unavailable, continuing without export events", "error", err)
		} else {
			notifier = alert.NewPublishNotifier(broker, logger)
			events = broker
		}
	}

	engine := ledger.New(store.Store, notifier, events)
	cleanup := func() {
		if broker != nil {
			broker.Close()
		}
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}
	return engine, cleanup, nil
}

type menuCmd struct{}

func (*menuCmd) Name() string     { return "menu" }
func (*menuCmd) Synopsis() string { return "start the interactive budget shell" }
func (*menuCmd) Usage() string {
	return `menu:
  Start the interactive menu on stdin/stdout.
`
}
func (*menuCmd) SetFlags(f *flag.FlagSet) {}

func (*menuCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	engine, cleanup, err := buildEngine(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer cleanup()

	if err := menu.New(engine, os.Stdin, os.Stdout).Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type importCmd struct {
	file string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import transactions from a CSV file" }
func (*importCmd) Usage() string {
	return `import -file transactions.csv:
  Import transactions from a CSV file with header budget_name,description,amount.
  Rows referencing unknown budgets are skipped.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "path to the CSV file")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required")
		return subcommands.ExitUsageError
	}

	engine, cleanup, err := buildEngine(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer cleanup()

	sum, err := importer.ImportFile(ctx, engine, c.file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Imported %d transaction(s), skipped %d (of %d rows)\n", sum.Imported, sum.Skipped, sum.Rows)
	return subcommands.ExitSuccess
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/engine"
	"github.com/rxtech-lab/argo-autotrader/internal/gateway"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/parser"
	"github.com/rxtech-lab/argo-autotrader/internal/version"
	"github.com/rxtech-lab/argo-autotrader/pkg/strategy"
	"github.com/urfave/cli/v3"
)

// runAction loads the application config and trades until SIGINT or SIGTERM.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zapLog, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer zapLog.Sync()

	app, err := newApp(cfg, zapLog)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.start(ctx); err != nil {
		app.close()

		return err
	}

	<-ctx.Done()
	log.Println("Received interrupt signal, stopping...")

	return app.close()
}

// parseAction prints the normalized strategy parsed from a file.
func parseAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("strategy file is required")
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read strategy: %w", err)
	}

	s, err := parser.Parse(string(text), parser.Format(cmd.String("format")))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode strategy: %w", err)
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, string(out))

	return err
}

// schemaAction prints the JSON schema of a strategy document, the engine config or a venue config.
func schemaAction(_ context.Context, cmd *cli.Command) error {
	var (
		schema string
		err    error
	)

	switch kind := cmd.Args().First(); kind {
	case "strategy":
		schema, err = strategy.DocumentSchema()
	case "config":
		schema, err = engine.GetConfigSchema()
	case "venue":
		schema, err = gateway.GetVenueConfigSchema(cmd.String("venue"))
	default:
		return fmt.Errorf("unknown schema %q: expected strategy, config or venue", kind)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, schema)

	return err
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "autotrader",
		Usage:   "Evaluate declarative trading strategies against live market data",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the engine and HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the application `FILE` (YAML)",
						Required: true,
					},
				},
				Action: runAction,
			},
			{
				Name:      "parse",
				Usage:     "Parse a strategy file and print it as JSON",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   fmt.Sprintf("Strategy format (%s, %s or %s)", parser.FormatJSON, parser.FormatDSL, parser.FormatYAML),
						Value:   string(parser.FormatJSON),
					},
				},
				Action: parseAction,
			},
			{
				Name:      "schema",
				Usage:     "Print a JSON schema",
				ArgsUsage: "strategy|config|venue",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "venue",
						Usage: "Venue for the venue schema",
						Value: string(gateway.VenueBinancePaper),
					},
				},
				Action: schemaAction,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

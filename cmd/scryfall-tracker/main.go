// Command scryfall-tracker looks up card lists and collections on Scryfall,
// records daily prices and writes reports, a workbook with price charts and a
// terminal summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/scryfall-client/pkg/logging"
	"github.com/Sternrassler/scryfall-client/pkg/metrics"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

const progName = "scryfall-tracker"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// globals are the flags shared by every subcommand.
type globals struct {
	configPath  string
	logLevel    string
	logPretty   bool
	metricsAddr string

	stdout io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	g := &globals{stdout: stdout}
	fs.StringVar(&g.configPath, "config", "", "Path to the TOML configuration (default $SCRYFALL_CONFIG or scryfall.toml)")
	fs.StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&g.logPretty, "log-pretty", false, "Human readable log output")
	fs.StringVar(&g.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running (e.g. :9090)")

	cmdr := subcommands.NewCommander(fs, progName)
	cmdr.Output = stdout
	cmdr.Error = stderr
	register(cmdr, g)

	if err := fs.Parse(args); err != nil {
		return int(subcommands.ExitUsageError)
	}

	level, err := logging.ParseLevel(g.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return int(subcommands.ExitUsageError)
	}
	logging.Setup(logging.Config{Level: level, Pretty: g.logPretty, Output: stderr})

	if g.metricsAddr != "" {
		srv, err := metrics.Listen(g.metricsAddr)
		if err != nil {
			log.Error().Err(err).Str("addr", g.metricsAddr).Msg("Failed to start metrics server")
			return int(subcommands.ExitFailure)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	return int(cmdr.Execute(ctx))
}

// Register the subcommands.
func register(c *subcommands.Commander, g *globals) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&cardsCmd{g: g}, "lookup")
	c.Register(&pricesCmd{g: g}, "lookup")
	c.Register(&setsCmd{g: g}, "lookup")

	c.Register(&chartsCmd{g: g}, "offline")
	c.Register(&summaryCmd{g: g}, "offline")
}

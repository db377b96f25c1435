package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Sternrassler/scryfall-client/internal/history"
	"github.com/Sternrassler/scryfall-client/internal/inventory"
	"github.com/Sternrassler/scryfall-client/internal/render"
	"github.com/Sternrassler/scryfall-client/internal/report"
	"github.com/Sternrassler/scryfall-client/pkg/card"
	"github.com/Sternrassler/scryfall-client/pkg/catalog"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

func fail(err error) subcommands.ExitStatus {
	log.Error().Err(err).Msg("Command failed")
	return subcommands.ExitFailure
}

type cardsCmd struct {
	g     *globals
	input string
}

func (*cardsCmd) Name() string     { return "cards" }
func (*cardsCmd) Synopsis() string { return "look up a card list and write the card report" }
func (*cardsCmd) Usage() string {
	return `scryfall-tracker cards [-i <file>]

  Looks up every row of the card list (columns id, name, set, collector_number, ...)
  and writes card_report.csv and missing_card_report.csv to the reports directory.
`
}

func (c *cardsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "i", "", "Card list CSV (defaults to paths.cards)")
}

func (c *cardsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	t, err := c.g.open(ctx)
	if err != nil {
		return fail(err)
	}
	defer t.Close()

	input := c.input
	if input == "" {
		input = t.cfg.Paths.Cards
	}
	ids, header, err := inventory.ReadIdentifiersFile(input)
	if err != nil {
		return fail(err)
	}

	cards, notFound, err := t.resolver().Resolve(ctx, ids)
	if err != nil {
		return fail(describeLookupError(err))
	}

	dir := t.cfg.Paths.Reports
	if err := report.WriteFile(filepath.Join(dir, report.CardReportFile), func(w io.Writer) error {
		return report.Cards(w, cards, t.cfg.Report.Columns)
	}); err != nil {
		return fail(err)
	}
	if err := writeMissing(dir, header, notFound, true); err != nil {
		return fail(err)
	}

	fmt.Fprintf(c.g.stdout, "%d cards found, %d not found\n", len(cards), len(notFound))
	return subcommands.ExitSuccess
}

func writeMissing(dir string, header []string, ids []card.Identifier, bom bool) error {
	return report.WriteFile(filepath.Join(dir, report.MissingReportFile), func(w io.Writer) error {
		return report.Missing(w, header, ids, bom)
	})
}

type pricesCmd struct {
	g         *globals
	noHistory bool
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "price the collection, record today's prices and write reports" }
func (*pricesCmd) Usage() string {
	return `scryfall-tracker prices [-no-history]

  Looks up every card of the collection, assigns the USD price of its finish,
  appends today's prices to the price history and writes price_report.csv,
  missing_card_report.csv and the workbook.
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.noHistory, "no-history", false, "Do not append to the price history")
}

func (c *pricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	t, err := c.g.open(ctx)
	if err != nil {
		return fail(err)
	}
	defer t.Close()
	cfg := t.cfg

	coll, err := inventory.ReadFile(cfg.Paths.Collection)
	if err != nil {
		return fail(err)
	}

	cards, notFound, err := t.resolver().Resolve(ctx, coll.Identifiers())
	if err != nil {
		return fail(describeLookupError(err))
	}
	if unpriced := coll.AssignPrices(cards); unpriced > 0 {
		log.Warn().Int("unpriced", unpriced).Msg("Holdings without a price")
	}

	h, err := history.ReadFile(cfg.Paths.PriceHistory)
	if err != nil {
		return fail(err)
	}
	if !c.noHistory {
		if err := record(h, cfg.Paths.PriceHistory, coll); err != nil {
			return fail(err)
		}
	}

	dir := cfg.Paths.Reports
	if err := report.WriteFile(filepath.Join(dir, report.PriceReportFile), func(w io.Writer) error {
		return report.Prices(w, coll.Columns, coll.Owned())
	}); err != nil {
		return fail(err)
	}
	if err := writeMissing(dir, []string{inventory.ColumnID}, notFound, false); err != nil {
		return fail(err)
	}

	charts, err := buildWorkbook(cfg, coll, h)
	if err != nil {
		return fail(err)
	}

	fmt.Fprintf(c.g.stdout, "%d holdings priced, %d not found, %d charts written to %s\n",
		len(coll.Holdings), len(notFound), charts, cfg.Paths.Workbook)
	return subcommands.ExitSuccess
}

// record appends today's prices of coll to h and the history file. A day
// that is already recorded is left alone.
func record(h *history.History, path string, coll *inventory.Collection) error {
	date := now().Format(history.DateLayout)
	added, err := h.Record(date, coll.Holdings)
	if errors.Is(err, history.ErrAlreadyRecorded) {
		log.Warn().Str("date", date).Msg("Prices already recorded today, history unchanged")
		return nil
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := history.AppendFile(path, added); err != nil {
		return err
	}
	log.Info().Str("date", date).Int("entries", len(added)).Msg("Recorded prices")
	return nil
}

type setsCmd struct {
	g *globals
}

func (*setsCmd) Name() string     { return "sets" }
func (*setsCmd) Synopsis() string { return "write the names and codes of all sets" }
func (*setsCmd) Usage() string {
	return `scryfall-tracker sets

  Writes scryfall_set_codes_YYYYMMDD.csv to the reports directory.
`
}

func (*setsCmd) SetFlags(*flag.FlagSet) {}

func (c *setsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	t, err := c.g.open(ctx)
	if err != nil {
		return fail(err)
	}
	defer t.Close()

	sets, err := catalog.ListSets(ctx, t.client)
	if err != nil {
		return fail(err)
	}

	path := filepath.Join(t.cfg.Paths.Reports, report.SetCodesFile(now()))
	if err := report.WriteFile(path, func(w io.Writer) error {
		return report.SetCodes(w, sets)
	}); err != nil {
		return fail(err)
	}

	fmt.Fprintf(c.g.stdout, "%d sets written to %s\n", len(sets), path)
	return subcommands.ExitSuccess
}

type chartsCmd struct {
	g *globals
}

func (*chartsCmd) Name() string     { return "charts" }
func (*chartsCmd) Synopsis() string { return "rebuild the workbook from the price history" }
func (*chartsCmd) Usage() string {
	return `scryfall-tracker charts

  Writes the workbook from the collection and the recorded price history
  without contacting Scryfall.
`
}

func (*chartsCmd) SetFlags(*flag.FlagSet) {}

func (c *chartsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := c.g.loadConfig()
	if err != nil {
		return fail(err)
	}

	coll, err := inventory.ReadFile(cfg.Paths.Collection)
	if err != nil {
		return fail(err)
	}
	h, err := history.ReadFile(cfg.Paths.PriceHistory)
	if err != nil {
		return fail(err)
	}

	charts, err := buildWorkbook(cfg, coll, h)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(c.g.stdout, "%d charts written to %s\n", charts, cfg.Paths.Workbook)
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	g     *globals
	top   int
	style string
	width int
	raw   bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the value of the collection" }
func (*summaryCmd) Usage() string {
	return `scryfall-tracker summary [-n <count>] [-style <name>] [-raw]

  Displays the total value, card count and most valuable cards of the
  collection at the latest recorded prices.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.top, "n", 0, "Number of cards to list (defaults to report.top_n)")
	f.StringVar(&c.style, "style", "", "glamour style (dark, light, notty, ...); empty detects the terminal")
	f.IntVar(&c.width, "width", 100, "Word wrap width")
	f.BoolVar(&c.raw, "raw", false, "Print Markdown without rendering")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := c.g.loadConfig()
	if err != nil {
		return fail(err)
	}

	coll, err := inventory.ReadFile(cfg.Paths.Collection)
	if err != nil {
		return fail(err)
	}
	h, err := history.ReadFile(cfg.Paths.PriceHistory)
	if err != nil {
		return fail(err)
	}

	top := c.top
	if top <= 0 {
		top = cfg.Report.TopN
	}
	md := render.Markdown(render.Summarize(h.Join(coll), top))

	if !c.raw {
		r, err := render.NewRenderer(c.width, c.style)
		if err != nil {
			return fail(err)
		}
		if md, err = r.Render(md); err != nil {
			return fail(err)
		}
	}
	fmt.Fprint(c.g.stdout, md)
	return subcommands.ExitSuccess
}

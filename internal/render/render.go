// Package render formats a collection summary as Markdown and renders it for
// the terminal.
package render

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/Sternrassler/scryfall-client/internal/history"
	"github.com/Sternrassler/scryfall-client/internal/inventory"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
)

// Line is one owned printing in the summary.
type Line struct {
	Title    string
	Quantity int
	Price    decimal.Decimal
	Value    decimal.Decimal
}

// Summary is the value of a collection on its latest recorded date.
type Summary struct {
	Date      string
	Cards     int
	Printings int
	Unpriced  int
	Total     decimal.Decimal
	Top       []Line
}

// Summarize values every tracked printing at its latest price times the owned
// quantity and keeps the topN most valuable lines.
func Summarize(tracked []history.Tracked, topN int) Summary {
	var s Summary
	lines := make([]Line, 0, len(tracked))
	for _, t := range tracked {
		qty, _ := strconv.Atoi(t.Holding[inventory.ColumnQuantity])
		s.Cards += qty
		s.Printings++
		if t.Latest.Date > s.Date {
			s.Date = t.Latest.Date
		}
		if !t.Latest.Price.Valid {
			s.Unpriced++
			continue
		}

		value := t.Latest.Price.Decimal.Mul(decimal.NewFromInt(int64(qty)))
		s.Total = s.Total.Add(value)
		lines = append(lines, Line{Title: t.Title(), Quantity: qty, Price: t.Latest.Price.Decimal, Value: value})
	}

	slices.SortStableFunc(lines, func(a, b Line) int { return b.Value.Cmp(a.Value) })
	if topN >= 0 && len(lines) > topN {
		lines = lines[:topN]
	}
	s.Top = lines
	return s
}

// USD formats d as US dollars, e.g. "$1,234.50".
func USD(d decimal.Decimal) string {
	cents := d.Shift(2).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}

// Markdown writes s as a Markdown document.
func Markdown(s Summary) string {
	var b strings.Builder
	b.WriteString("# Collection summary\n\n")
	if s.Printings == 0 {
		b.WriteString("No price history recorded yet.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "As of %s: **%d cards** in %d printings worth **%s**.\n", s.Date, s.Cards, s.Printings, USD(s.Total))
	if s.Unpriced > 0 {
		fmt.Fprintf(&b, "\n%d printings have no price.\n", s.Unpriced)
	}
	if len(s.Top) == 0 {
		return b.String()
	}

	fmt.Fprintf(&b, "\n## Top %d by value\n\n", len(s.Top))
	b.WriteString("| # | Card | Qty | Price | Value |\n|---:|---|---:|---:|---:|\n")
	for i, l := range s.Top {
		fmt.Fprintf(&b, "| %d | %s | %d | %s | %s |\n",
			i+1, strings.ReplaceAll(l.Title, "|", `\|`), l.Quantity, USD(l.Price), USD(l.Value))
	}
	return b.String()
}

// Renderer renders Markdown for a terminal.
type Renderer struct {
	tr *glamour.TermRenderer
}

// NewRenderer creates a renderer wrapping at width. An empty style picks one
// from the terminal; "notty" renders without colors.
func NewRenderer(width int, style string) (*Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	return &Renderer{tr: tr}, nil
}

// Render renders md.
func (r *Renderer) Render(md string) (string, error) {
	return r.tr.Render(md)
}

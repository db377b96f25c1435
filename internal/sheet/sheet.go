// Package sheet exports prices and price charts to an XLSX workbook.
package sheet

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Sternrassler/scryfall-client/internal/history"
	"github.com/Sternrassler/scryfall-client/internal/inventory"
	"github.com/xuri/excelize/v2"
)

// PricesSheet receives the price table.
const PricesSheet = "Prices"

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

const usdFormat = "$#,##0.00"

// Workbook is an XLSX file under construction.
type Workbook struct {
	f     *excelize.File
	names map[string]bool
	money int
	bold  int
}

// New creates a workbook holding an empty PricesSheet.
func New() (*Workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", PricesSheet); err != nil {
		f.Close()
		return nil, err
	}

	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(usdFormat)})
	if err != nil {
		f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Workbook{
		f:     f,
		names: map[string]bool{strings.ToLower(PricesSheet): true},
		money: money,
		bold:  bold,
	}, nil
}

func strPtr(s string) *string { return &s }

// SetPrices writes header and one row per holding to PricesSheet, replacing
// what was there. Prices and quantities are stored as numbers.
func (w *Workbook) SetPrices(header []string, holdings []inventory.Holding) error {
	if err := w.clearSheet(PricesSheet); err != nil {
		return err
	}

	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := w.f.SetCellValue(PricesSheet, cell, h); err != nil {
			return err
		}
	}
	if len(header) > 0 {
		if err := w.f.SetRowStyle(PricesSheet, 1, 1, w.bold); err != nil {
			return err
		}
	}

	for r, hd := range holdings {
		for c, col := range header {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := w.setTyped(cell, col, hd[col]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Workbook) setTyped(cell, col, v string) error {
	switch col {
	case inventory.ColumnPrice:
		if p := (inventory.Holding{col: v}).Price(); p.Valid {
			f, _ := p.Decimal.Float64()
			if err := w.f.SetCellFloat(PricesSheet, cell, f, -1, 64); err != nil {
				return err
			}
			return w.f.SetCellStyle(PricesSheet, cell, cell, w.money)
		}
	case inventory.ColumnQuantity, inventory.ColumnFoil, inventory.ColumnEtched:
		if n, err := strconv.Atoi(v); err == nil {
			return w.f.SetCellInt(PricesSheet, cell, n)
		}
	}
	return w.f.SetCellValue(PricesSheet, cell, v)
}

func (w *Workbook) clearSheet(sheet string) error {
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return err
	}
	for i := len(rows); i >= 1; i-- {
		if err := w.f.RemoveRow(sheet, i); err != nil {
			return err
		}
	}
	return nil
}

// AddChart adds a sheet with the price series of t and a line chart of it.
// At most maxTicks dates are labelled on the x axis. It returns the sheet name.
func (w *Workbook) AddChart(t history.Tracked, maxTicks int) (string, error) {
	title := t.Title()
	if len(t.Points) == 0 {
		return "", fmt.Errorf("chart %q: no prices", title)
	}
	name := w.uniqueName(SheetName(title))
	if _, err := w.f.NewSheet(name); err != nil {
		return "", err
	}
	w.names[strings.ToLower(name)] = true

	if err := w.f.SetSheetRow(name, "A1", &[]any{"date", "price", "label"}); err != nil {
		return "", err
	}
	if err := w.f.SetRowStyle(name, 1, 1, w.bold); err != nil {
		return "", err
	}

	dates := make([]string, len(t.Points))
	for i, p := range t.Points {
		dates[i] = p.Date
	}
	labels := TickLabels(dates, maxTicks)

	for i, p := range t.Points {
		row := []any{p.Date, nil, labels[i]}
		if p.Price.Valid {
			f, _ := p.Price.Decimal.Float64()
			row[1] = f
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.f.SetSheetRow(name, cell, &row); err != nil {
			return "", err
		}
	}
	last := len(t.Points) + 1
	if err := w.f.SetCellStyle(name, "B2", fmt.Sprintf("B%d", last), w.money); err != nil {
		return "", err
	}

	ref := quoteSheet(name)
	chart := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       ref + "!$B$1",
			Categories: fmt.Sprintf("%s!$C$2:$C$%d", ref, last),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", ref, last),
		}},
		Title:  []excelize.RichTextRun{{Text: title}},
		Legend: excelize.ChartLegend{Position: "none"},
		XAxis:  excelize.ChartAxis{MajorGridLines: true},
		YAxis: excelize.ChartAxis{
			MajorGridLines: true,
			NumFmt:         excelize.ChartNumFmt{CustomNumFmt: usdFormat},
		},
		Dimension: excelize.ChartDimension{Width: 640, Height: 400},
	}
	if err := w.f.AddChart(name, "E2", chart); err != nil {
		return "", fmt.Errorf("chart %q: %w", title, err)
	}
	return name, nil
}

// SheetNames lists the sheets in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.f.GetSheetList()
}

// File exposes the underlying excelize file.
func (w *Workbook) File() *excelize.File {
	return w.f
}

// Save writes the workbook to path, creating parent directories.
func (w *Workbook) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// TickLabels returns one label per date: the date itself for every step-th
// date counted back from the last one, "" otherwise, so that at most maxTicks
// dates are labelled and the most recent date always is.
func TickLabels(dates []string, maxTicks int) []string {
	labels := make([]string, len(dates))
	if len(dates) == 0 {
		return labels
	}
	if maxTicks < 1 {
		maxTicks = 1
	}
	step := (len(dates) + maxTicks - 1) / maxTicks
	for i := len(dates) - 1; i >= 0; i -= step {
		labels[i] = dates[i]
	}
	return labels
}

// SheetName turns a chart title into a valid sheet name: characters Excel
// rejects become "_", surrounding apostrophes are dropped and the result is
// cut to 31 characters.
func SheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, title)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "_"
	}
	return truncate(name, maxSheetName)
}

func (w *Workbook) uniqueName(name string) string {
	if !w.names[strings.ToLower(name)] {
		return name
	}
	for n := 2; ; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate := truncate(name, maxSheetName-len(suffix)) + suffix
		if !w.names[strings.ToLower(candidate)] {
			return candidate
		}
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// Package report writes the CSV reports of the tracker.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Sternrassler/scryfall-client/internal/inventory"
	"github.com/Sternrassler/scryfall-client/pkg/card"
	"github.com/Sternrassler/scryfall-client/pkg/catalog"
)

// Report file names inside the reports directory.
const (
	CardReportFile    = "card_report.csv"
	MissingReportFile = "missing_card_report.csv"
	PriceReportFile   = "price_report.csv"
)

// DisplayNameColumn is the column path that yields card.Card.DisplayName.
const DisplayNameColumn = "display_name"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Column is one card report column. Path is a JSONPath into the card object
// or DisplayNameColumn.
type Column struct {
	Header string `toml:"header"`
	Path   string `toml:"path"`
}

// DefaultColumns are the card report columns.
func DefaultColumns() []Column {
	return []Column{
		{Header: "id", Path: "$.id"},
		{Header: "name_", Path: DisplayNameColumn},
		{Header: "set_name", Path: "$.set_name"},
		{Header: "collector_number", Path: "$.collector_number"},
		{Header: "uri", Path: "$.uri"},
	}
}

// SetCodesFile names the set code report of day t.
func SetCodesFile(t time.Time) string {
	return fmt.Sprintf("scryfall_set_codes_%s.csv", t.Format("20060102"))
}

// Cards writes one row per card with the given columns, preceded by a UTF-8
// byte order mark. A path that is absent from a card yields an empty cell.
func Cards(w io.Writer, cards []card.Card, cols []Column) error {
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Header
	}

	rows := make([][]string, 0, len(cards))
	for _, cd := range cards {
		row := make([]string, len(cols))
		for i, col := range cols {
			if col.Path == DisplayNameColumn {
				row[i] = cd.DisplayName()
				continue
			}
			v, err := cd.Field(col.Path)
			if err != nil {
				v = ""
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return writeCSV(w, true, header, rows)
}

// Missing writes the identifiers Scryfall could not match using header as
// columns. Keys of an identifier outside header are dropped.
func Missing(w io.Writer, header []string, ids []card.Identifier, bom bool) error {
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = id[col]
		}
		rows = append(rows, row)
	}
	return writeCSV(w, bom, header, rows)
}

// Prices writes the owned holdings with every collection column except id,
// preceded by a UTF-8 byte order mark.
func Prices(w io.Writer, columns []string, holdings []inventory.Holding) error {
	header := PriceColumns(columns)
	rows := make([][]string, 0, len(holdings))
	for _, h := range holdings {
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = h[col]
		}
		rows = append(rows, row)
	}
	return writeCSV(w, true, header, rows)
}

// PriceColumns returns columns without the id column.
func PriceColumns(columns []string) []string {
	return slices.DeleteFunc(slices.Clone(columns), func(c string) bool { return c == inventory.ColumnID })
}

// SetCodes writes the name and code of every set.
func SetCodes(w io.Writer, sets []catalog.Set) error {
	rows := make([][]string, 0, len(sets))
	for _, s := range sets {
		rows = append(rows, []string{s.Name, s.Code})
	}
	return writeCSV(w, false, []string{"name", "code"}, rows)
}

// WriteFile creates path, including missing parent directories, and fills it
// with write. The file is replaced only when write succeeds.
func WriteFile(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeCSV(w io.Writer, bom bool, header []string, rows [][]string) error {
	if bom {
		if _, err := w.Write(utf8BOM); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

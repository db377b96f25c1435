// Package history keeps the daily price snapshots of a collection.
//
// The history file is a CSV with the columns id, foil, etched, price and date.
// A date is recorded at most once.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/Sternrassler/scryfall-client/internal/inventory"
	"github.com/shopspring/decimal"
)

// DateLayout is the format of the date column.
const DateLayout = "2006-01-02"

// Columns of the history file.
var Columns = []string{"id", "foil", "etched", "price", "date"}

// ErrAlreadyRecorded is returned by Record when the date is already present.
var ErrAlreadyRecorded = errors.New("prices already recorded")

// Entry is the price of one printing on one day. An unknown price is invalid.
type Entry struct {
	Key   inventory.Key
	Price decimal.NullDecimal
	Date  string
}

// History is the parsed price history in file order.
type History struct {
	Entries []Entry
}

// ReadFile reads the history at path. A missing file is an empty history.
func ReadFile(path string) (*History, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &History{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read price history %s: %w", path, err)
	}
	return h, nil
}

// Read parses a history CSV.
func Read(r io.Reader) (*History, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &History{}, nil
	}
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimPrefix(col, "\ufeff")] = i
	}
	for _, col := range Columns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	h := &History{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		e := Entry{
			Key: inventory.Key{
				ID:     rec[idx["id"]],
				Foil:   rec[idx["foil"]] == "1",
				Etched: rec[idx["etched"]] == "1",
			},
			Date: rec[idx["date"]],
		}
		if p := rec[idx["price"]]; p != "" {
			d, err := decimal.NewFromString(p)
			if err != nil {
				return nil, fmt.Errorf("line %d: price %q: %w", line, p, err)
			}
			e.Price = decimal.NewNullDecimal(d)
		}
		h.Entries = append(h.Entries, e)
	}
	return h, nil
}

// Has reports whether any entry exists for date.
func (h *History) Has(date string) bool {
	return slices.ContainsFunc(h.Entries, func(e Entry) bool { return e.Date == date })
}

// Record adds one entry per holding for date and returns the new entries.
// It returns ErrAlreadyRecorded without changes when date is present.
func (h *History) Record(date string, holdings []inventory.Holding) ([]Entry, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("record prices: %w", err)
	}
	if h.Has(date) {
		return nil, fmt.Errorf("%s: %w", date, ErrAlreadyRecorded)
	}

	added := make([]Entry, 0, len(holdings))
	for _, hd := range holdings {
		added = append(added, Entry{Key: hd.Key(), Price: hd.Price(), Date: date})
	}
	h.Entries = append(h.Entries, added...)
	return added, nil
}

// AppendFile appends entries to the history file at path, writing the header
// first when the file is new or empty.
func AppendFile(path string, entries []Entry) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	if err := Write(f, entries, info.Size() == 0); err != nil {
		f.Close()
		return fmt.Errorf("append price history %s: %w", path, err)
	}
	return f.Close()
}

// Write writes entries as CSV, preceded by the header when header is true.
func Write(w io.Writer, entries []Entry, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(Columns); err != nil {
			return err
		}
	}
	for _, e := range entries {
		price := ""
		if e.Price.Valid {
			price = e.Price.Decimal.StringFixed(2)
		}
		rec := []string{e.Key.ID, flag(e.Key.Foil), flag(e.Key.Etched), price, e.Date}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Series returns the entries of key ordered by date.
func (h *History) Series(key inventory.Key) []Entry {
	var s []Entry
	for _, e := range h.Entries {
		if e.Key == key {
			s = append(s, e)
		}
	}
	slices.SortStableFunc(s, func(a, b Entry) int { return strings.Compare(a.Date, b.Date) })
	return s
}

// Latest returns the most recent entry of every key, most valuable first.
// Entries without a price sort last.
func (h *History) Latest() []Entry {
	latest := make(map[inventory.Key]Entry)
	var order []inventory.Key
	for _, e := range h.Entries {
		cur, ok := latest[e.Key]
		if !ok {
			order = append(order, e.Key)
		}
		if !ok || e.Date >= cur.Date {
			latest[e.Key] = e
		}
	}

	out := make([]Entry, 0, len(order))
	for _, k := range order {
		out = append(out, latest[k])
	}
	slices.SortStableFunc(out, func(a, b Entry) int { return comparePriceDesc(a.Price, b.Price) })
	return out
}

func comparePriceDesc(a, b decimal.NullDecimal) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return 1
	case !b.Valid:
		return -1
	default:
		return b.Decimal.Cmp(a.Decimal)
	}
}

// Tracked is the history of one owned printing joined with its collection row.
type Tracked struct {
	Holding inventory.Holding
	Latest  Entry
	Points  []Entry
}

// Title names the printing: "[Foil ][Etched ]Name -- Set Name".
func (t Tracked) Title() string {
	var b strings.Builder
	if t.Latest.Key.Foil {
		b.WriteString("Foil ")
	}
	if t.Latest.Key.Etched {
		b.WriteString("Etched ")
	}
	fmt.Fprintf(&b, "%s -- %s", t.Holding[inventory.ColumnName], t.Holding[inventory.ColumnSetName])
	return b.String()
}

// Join pairs the history of every owned printing in c with its collection
// row, most valuable first. Printings no longer in the collection are dropped.
func (h *History) Join(c *inventory.Collection) []Tracked {
	rows := c.Lookup()

	var out []Tracked
	for _, e := range h.Latest() {
		hd, ok := rows[e.Key]
		if !ok || !hd.Owned() {
			continue
		}
		out = append(out, Tracked{Holding: hd, Latest: e, Points: h.Series(e.Key)})
	}
	return out
}

// Above keeps the tracked printings whose latest price exceeds threshold.
func Above(tracked []Tracked, threshold decimal.Decimal) []Tracked {
	var out []Tracked
	for _, t := range tracked {
		if t.Latest.Price.Valid && t.Latest.Price.Decimal.GreaterThan(threshold) {
			out = append(out, t)
		}
	}
	return out
}

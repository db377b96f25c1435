// Package inventory reads the locally tracked collection and reconciles it
// with card data from Scryfall.
package inventory

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/Sternrassler/scryfall-client/pkg/card"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Column names with a meaning to the tracker. Any other column is carried
// through unchanged.
const (
	ColumnID       = "id"
	ColumnFoil     = "foil"
	ColumnEtched   = "etched"
	ColumnQuantity = "quantity"
	ColumnPrice    = "price"
	ColumnName     = "name"
	ColumnSetName  = "set_name"
)

var requiredColumns = []string{ColumnID, ColumnFoil, ColumnEtched, ColumnQuantity}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Key identifies one priced printing: a card in one finish.
type Key struct {
	ID     string
	Foil   bool
	Etched bool
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%d-%d", k.ID, b2i(k.Foil), b2i(k.Etched))
}

// Finish returns the price finish of the key.
func (k Key) Finish() card.Finish {
	return card.FinishOf(k.Foil, k.Etched)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Holding is one row of the collection file keyed by column name.
type Holding map[string]string

// ID returns the Scryfall id of the holding.
func (h Holding) ID() string { return h[ColumnID] }

// Foil reports whether the row is a foil printing.
func (h Holding) Foil() bool { return h[ColumnFoil] == "1" }

// Etched reports whether the row is an etched foil printing.
func (h Holding) Etched() bool { return h[ColumnEtched] == "1" }

// Owned reports whether at least one copy is held.
func (h Holding) Owned() bool { return h[ColumnQuantity] != "0" }

// Key returns the price key of the holding.
func (h Holding) Key() Key {
	return Key{ID: h.ID(), Foil: h.Foil(), Etched: h.Etched()}
}

// Price returns the assigned price; an empty or unparsable price is invalid.
func (h Holding) Price() decimal.NullDecimal {
	d, err := decimal.NewFromString(h[ColumnPrice])
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Collection is the parsed collection file.
type Collection struct {
	// Columns in file order. AssignPrices appends ColumnPrice when missing.
	Columns  []string
	Holdings []Holding
}

// ReadFile reads a collection file.
func ReadFile(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", path, err)
	}
	return c, nil
}

// Read parses a collection CSV. A leading UTF-8 byte order mark is ignored.
func Read(r io.Reader) (*Collection, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	for _, col := range requiredColumns {
		if !slices.Contains(header, col) {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	c := &Collection{Columns: header, Holdings: make([]Holding, 0, len(rows))}
	for _, row := range rows {
		c.Holdings = append(c.Holdings, Holding(row))
	}
	return c, nil
}

// Identifiers returns one id identifier per holding, in file order.
func (c *Collection) Identifiers() []card.Identifier {
	ids := make([]card.Identifier, 0, len(c.Holdings))
	for _, h := range c.Holdings {
		ids = append(ids, card.Identifier{card.KeyID: h.ID()})
	}
	return ids
}

// AssignPrices sets the price column of every holding from cards: the foil
// price for foils, the etched price for etched foils, the regular price
// otherwise. Holdings without a card or without a price get an empty price.
// Holdings are matched to cards by ID regardless of case.
// It returns the number of holdings left without a price.
func (c *Collection) AssignPrices(cards []card.Card) int {
	prices := make(map[uuid.UUID]card.Prices, len(cards))
	for _, cd := range cards {
		if cd.ID != uuid.Nil {
			prices[cd.ID] = cd.Prices
		}
	}

	if !slices.Contains(c.Columns, ColumnPrice) {
		c.Columns = append(c.Columns, ColumnPrice)
	}

	unpriced := 0
	for _, h := range c.Holdings {
		var p card.Prices
		id, err := uuid.Parse(h.ID())
		ok := err == nil
		if ok {
			p, ok = prices[id]
		}
		price := p.USDFor(h.Key().Finish())
		if !ok || !price.Valid {
			h[ColumnPrice] = ""
			unpriced++
			continue
		}
		h[ColumnPrice] = price.Decimal.StringFixed(2)
	}
	return unpriced
}

// Owned returns the holdings with a quantity other than "0".
func (c *Collection) Owned() []Holding {
	owned := make([]Holding, 0, len(c.Holdings))
	for _, h := range c.Holdings {
		if h.Owned() {
			owned = append(owned, h)
		}
	}
	return owned
}

// Lookup indexes the holdings by key. Later rows win on duplicate keys.
func (c *Collection) Lookup() map[Key]Holding {
	m := make(map[Key]Holding, len(c.Holdings))
	for _, h := range c.Holdings {
		m[h.Key()] = h
	}
	return m
}

// ReadIdentifiers reads a card list CSV whose columns are identifier keys
// (id, name, set, collector_number, ...). Empty fields are left out of each
// identifier and fully empty rows are skipped. The header is returned for
// writing the missing card report with the same columns.
func ReadIdentifiers(r io.Reader) ([]card.Identifier, []string, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]card.Identifier, 0, len(rows))
	for i, row := range rows {
		id := card.FromRecord(row)
		if len(id) == 0 {
			continue
		}
		if err := id.Validate(); err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		ids = append(ids, id)
	}
	return ids, header, nil
}

// ReadIdentifiersFile is ReadIdentifiers on a file.
func ReadIdentifiersFile(path string) ([]card.Identifier, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	ids, header, err := ReadIdentifiers(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read card list %s: %w", path, err)
	}
	return ids, header, nil
}

func readCSV(r io.Reader) ([]string, []map[string]string, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("empty file")
	}
	if err != nil {
		return nil, nil, err
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

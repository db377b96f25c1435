package history

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sternrassler/scryfall-client/internal/inventory"
	"github.com/shopspring/decimal"
)

const historyCSV = `id,foil,etched,price,date
bolt,0,0,1.20,2026-10-01
bolt,1,0,10.00,2026-10-01
lotus,0,0,20000,2026-10-01
bolt,0,0,1.50,2026-10-02
bolt,1,0,12.00,2026-10-02
sol,0,1,,2026-10-02
lotus,0,0,21000,2026-10-02
`

const collectionCSV = `id,name,set_name,foil,etched,quantity
bolt,Lightning Bolt,Magic 2010,0,0,4
bolt,Lightning Bolt,Magic 2010,1,0,1
lotus,Black Lotus,Limited Edition Alpha,0,0,0
sol,Sol Ring,Commander Legends,0,1,2
`

func mustHistory(t *testing.T) *History {
	t.Helper()
	h, err := Read(strings.NewReader(historyCSV))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return h
}

func mustCollection(t *testing.T) *inventory.Collection {
	t.Helper()
	c, err := inventory.Read(strings.NewReader(collectionCSV))
	if err != nil {
		t.Fatalf("inventory.Read() error = %v", err)
	}
	return c
}

func TestRead(t *testing.T) {
	h := mustHistory(t)

	if len(h.Entries) != 7 {
		t.Fatalf("len(Entries) = %d, want 7", len(h.Entries))
	}
	e := h.Entries[1]
	if e.Key != (inventory.Key{ID: "bolt", Foil: true}) || e.Price.Decimal.String() != "10" || e.Date != "2026-10-01" {
		t.Errorf("entry 1 = %+v", e)
	}
	if h.Entries[5].Price.Valid {
		t.Error("empty price should be invalid")
	}
}

func TestRead_Errors(t *testing.T) {
	if _, err := Read(strings.NewReader("id,foil,price,date\n")); err == nil {
		t.Error("expected missing column error")
	}
	if _, err := Read(strings.NewReader("id,foil,etched,price,date\nx,0,0,abc,2026-10-01\n")); err == nil {
		t.Error("expected bad price error")
	}
}

func TestReadFile_Missing(t *testing.T) {
	h, err := ReadFile(filepath.Join(t.TempDir(), "none.csv"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(h.Entries) != 0 {
		t.Errorf("missing file should be empty, got %d entries", len(h.Entries))
	}
}

func TestRecord(t *testing.T) {
	h := mustHistory(t)
	c := mustCollection(t)
	c.Holdings[0][inventory.ColumnPrice] = "1.75"

	added, err := h.Record("2026-10-03", c.Holdings)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(added) != 4 || len(h.Entries) != 11 {
		t.Errorf("added %d, total %d; want 4, 11", len(added), len(h.Entries))
	}
	if added[0].Price.Decimal.String() != "1.75" || added[0].Date != "2026-10-03" {
		t.Errorf("added[0] = %+v", added[0])
	}
	if added[1].Price.Valid {
		t.Error("holding without price should record an invalid price")
	}

	_, err = h.Record("2026-10-03", c.Holdings)
	if !errors.Is(err, ErrAlreadyRecorded) {
		t.Errorf("second Record() error = %v, want ErrAlreadyRecorded", err)
	}
	if len(h.Entries) != 11 {
		t.Errorf("entries changed on duplicate date: %d", len(h.Entries))
	}
}

func TestRecord_BadDate(t *testing.T) {
	h := &History{}
	if _, err := h.Record("10/03/2026", nil); err == nil {
		t.Error("expected date format error")
	}
}

func TestAppendFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "price_history.csv")
	entries := []Entry{
		{Key: inventory.Key{ID: "bolt"}, Price: decimal.NewNullDecimal(decimal.RequireFromString("1.5")), Date: "2026-10-01"},
		{Key: inventory.Key{ID: "sol", Etched: true}, Date: "2026-10-01"},
	}

	if err := AppendFile(path, entries[:1]); err != nil {
		t.Fatalf("AppendFile() error = %v", err)
	}
	if err := AppendFile(path, entries[1:]); err != nil {
		t.Fatalf("AppendFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "id,foil,etched,price,date\nbolt,0,0,1.50,2026-10-01\nsol,0,1,,2026-10-01\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}

	h, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Entries) != 2 || !h.Has("2026-10-01") || h.Has("2026-10-02") {
		t.Errorf("round trip = %+v", h.Entries)
	}
}

func TestWrite_NoHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []Entry{{Key: inventory.Key{ID: "x", Foil: true}, Date: "2026-01-01"}}, false); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "x,1,0,,2026-01-01\n" {
		t.Errorf("Write() = %q", buf.String())
	}
}

func TestSeries(t *testing.T) {
	h := &History{Entries: []Entry{
		{Key: inventory.Key{ID: "a"}, Date: "2026-10-03"},
		{Key: inventory.Key{ID: "b"}, Date: "2026-10-01"},
		{Key: inventory.Key{ID: "a"}, Date: "2026-10-01"},
		{Key: inventory.Key{ID: "a", Foil: true}, Date: "2026-10-02"},
	}}

	s := h.Series(inventory.Key{ID: "a"})
	if len(s) != 2 || s[0].Date != "2026-10-01" || s[1].Date != "2026-10-03" {
		t.Errorf("Series = %+v", s)
	}
}

func TestLatest(t *testing.T) {
	latest := mustHistory(t).Latest()

	if len(latest) != 4 {
		t.Fatalf("len(Latest) = %d, want 4", len(latest))
	}
	wantIDs := []string{"lotus", "bolt", "bolt", "sol"}
	wantPrices := []string{"21000", "12", "1.5", ""}
	for i, e := range latest {
		price := ""
		if e.Price.Valid {
			price = e.Price.Decimal.String()
		}
		if e.Key.ID != wantIDs[i] || price != wantPrices[i] || e.Date != "2026-10-02" {
			t.Errorf("latest[%d] = %s %s %s", i, e.Key, price, e.Date)
		}
	}
}

func TestJoin(t *testing.T) {
	tracked := mustHistory(t).Join(mustCollection(t))

	// The lotus is not owned any more.
	if len(tracked) != 3 {
		t.Fatalf("len(Join) = %d, want 3", len(tracked))
	}
	first := tracked[0]
	if first.Title() != "Foil Lightning Bolt -- Magic 2010" {
		t.Errorf("Title() = %q", first.Title())
	}
	if len(first.Points) != 2 || first.Points[0].Price.Decimal.String() != "10" {
		t.Errorf("Points = %+v", first.Points)
	}
	if got := tracked[2].Title(); got != "Etched Sol Ring -- Commander Legends" {
		t.Errorf("Title() = %q", got)
	}
}

func TestAbove(t *testing.T) {
	tracked := mustHistory(t).Join(mustCollection(t))

	above := Above(tracked, decimal.NewFromInt(5))
	if len(above) != 1 || above[0].Latest.Key != (inventory.Key{ID: "bolt", Foil: true}) {
		t.Errorf("Above(5) = %+v", above)
	}
	if len(Above(tracked, decimal.NewFromInt(12))) != 0 {
		t.Error("threshold is exclusive")
	}
}

package inventory

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Sternrassler/scryfall-client/pkg/card"
)

const (
	boltID  = "e3285e6b-3e79-4d7c-bf96-d920f973b80d"
	lotusID = "bd8fa327-dd41-4737-8f19-2cf5eb1f7cdd"
	solID   = "2b5ecc28-ac1e-4d97-8fa1-4ea8e6a0c4c0"
)

const collectionCSV = "\ufeffid,name,set_name,foil,etched,quantity,url\n" +
	boltID + ",Lightning Bolt,Magic 2010,0,0,4,https://scryfall.com/card/m10/146\n" +
	boltID + ",Lightning Bolt,Magic 2010,1,0,1,https://scryfall.com/card/m10/146\n" +
	lotusID + ",Black Lotus,Limited Edition Alpha,0,0,0,https://scryfall.com/card/lea/232\n" +
	solID + ",Sol Ring,Commander Legends,0,1,2,https://scryfall.com/card/cmr/472\n"

func mustCards(t *testing.T, raw string) []card.Card {
	t.Helper()
	var cards []card.Card
	if err := json.Unmarshal([]byte(raw), &cards); err != nil {
		t.Fatalf("unmarshal cards: %v", err)
	}
	return cards
}

func TestRead(t *testing.T) {
	c, err := Read(strings.NewReader(collectionCSV))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	wantCols := []string{"id", "name", "set_name", "foil", "etched", "quantity", "url"}
	if strings.Join(c.Columns, ",") != strings.Join(wantCols, ",") {
		t.Errorf("Columns = %v, want %v (BOM stripped)", c.Columns, wantCols)
	}
	if len(c.Holdings) != 4 {
		t.Fatalf("len(Holdings) = %d, want 4", len(c.Holdings))
	}

	h := c.Holdings[1]
	if h.ID() != boltID || !h.Foil() || h.Etched() || !h.Owned() {
		t.Errorf("holding 1 = %v", h)
	}
	if got := h.Key().String(); got != boltID+"-1-0" {
		t.Errorf("Key() = %q", got)
	}
	if c.Holdings[3].Key().Finish() != card.Etched {
		t.Errorf("Finish = %v, want etched", c.Holdings[3].Key().Finish())
	}
}

func TestRead_MissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("id,foil,quantity\nx,0,1\n"))
	if err == nil || !strings.Contains(err.Error(), "etched") {
		t.Errorf("error = %v, want missing etched column", err)
	}
}

func TestRead_Empty(t *testing.T) {
	if _, err := Read(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestIdentifiers(t *testing.T) {
	c, err := Read(strings.NewReader(collectionCSV))
	if err != nil {
		t.Fatal(err)
	}

	ids := c.Identifiers()
	if len(ids) != 4 {
		t.Fatalf("len(ids) = %d", len(ids))
	}
	for i, id := range ids {
		if len(id) != 1 || id[card.KeyID] != c.Holdings[i].ID() {
			t.Errorf("ids[%d] = %v", i, id)
		}
	}
}

func TestAssignPrices(t *testing.T) {
	c, err := Read(strings.NewReader(collectionCSV))
	if err != nil {
		t.Fatal(err)
	}

	cards := mustCards(t, `[
		{"id": "`+boltID+`", "name": "Lightning Bolt", "prices": {"usd": "1.5", "usd_foil": "12.00", "usd_etched": null}},
		{"id": "`+solID+`", "name": "Sol Ring", "prices": {"usd": "3.10", "usd_foil": null, "usd_etched": "7.25"}}
	]`)

	unpriced := c.AssignPrices(cards)

	if unpriced != 1 {
		t.Errorf("unpriced = %d, want 1 (the lotus is missing)", unpriced)
	}
	if c.Columns[len(c.Columns)-1] != ColumnPrice {
		t.Errorf("price column not appended: %v", c.Columns)
	}

	want := []string{"1.50", "12.00", "", "7.25"}
	for i, h := range c.Holdings {
		if h[ColumnPrice] != want[i] {
			t.Errorf("holding %d price = %q, want %q", i, h[ColumnPrice], want[i])
		}
	}
	if p := c.Holdings[0].Price(); !p.Valid || p.Decimal.String() != "1.5" {
		t.Errorf("Price() = %v", p)
	}
	if c.Holdings[2].Price().Valid {
		t.Error("missing price should be invalid")
	}

	c.AssignPrices(cards)
	if n := strings.Count(strings.Join(c.Columns, ","), ColumnPrice); n != 1 {
		t.Errorf("price column added %d times", n)
	}
}

func TestAssignPrices_MatchesIDRegardlessOfCase(t *testing.T) {
	c, err := Read(strings.NewReader("id,foil,etched,quantity\n" +
		strings.ToUpper(boltID) + ",0,0,4\n" +
		"not-a-uuid,0,0,1\n"))
	if err != nil {
		t.Fatal(err)
	}
	cards := mustCards(t, `[
		{"id": "`+boltID+`", "prices": {"usd": "1.5"}},
		{"id": "not-a-uuid", "prices": {"usd": "9.99"}}
	]`)

	if unpriced := c.AssignPrices(cards); unpriced != 1 {
		t.Errorf("unpriced = %d, want 1", unpriced)
	}
	if got := c.Holdings[0][ColumnPrice]; got != "1.50" {
		t.Errorf("uppercase id price = %q, want 1.50", got)
	}
	if got := c.Holdings[1][ColumnPrice]; got != "" {
		t.Errorf("invalid id price = %q, want empty", got)
	}
}

func TestOwned(t *testing.T) {
	c, err := Read(strings.NewReader(collectionCSV))
	if err != nil {
		t.Fatal(err)
	}

	owned := c.Owned()
	if len(owned) != 3 {
		t.Fatalf("len(Owned) = %d, want 3", len(owned))
	}
	for _, h := range owned {
		if h.ID() == lotusID {
			t.Error("quantity 0 row should not be owned")
		}
	}
}

func TestLookup(t *testing.T) {
	c, err := Read(strings.NewReader(collectionCSV))
	if err != nil {
		t.Fatal(err)
	}

	m := c.Lookup()
	h, ok := m[Key{ID: boltID, Foil: true}]
	if !ok || h["quantity"] != "1" {
		t.Errorf("lookup foil bolt = %v, %v", h, ok)
	}
	if len(m) != 4 {
		t.Errorf("len = %d, want 4", len(m))
	}
}

func TestReadIdentifiers(t *testing.T) {
	input := "\ufeffid,name,set,collector_number\n" +
		boltID + ",,,\n" +
		",Black Lotus,,\n" +
		",,lea,232\n" +
		",,,\n"

	ids, header, err := ReadIdentifiers(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadIdentifiers() error = %v", err)
	}

	if strings.Join(header, ",") != "id,name,set,collector_number" {
		t.Errorf("header = %v", header)
	}
	if len(ids) != 3 {
		t.Fatalf("len(ids) = %d, want 3 (blank row skipped)", len(ids))
	}
	if ids[0].Key() != "id="+boltID {
		t.Errorf("ids[0] = %v", ids[0])
	}
	if ids[1].Key() != "name=Black Lotus" {
		t.Errorf("ids[1] = %v", ids[1])
	}
	if ids[2].Key() != "collector_number=232:set=lea" {
		t.Errorf("ids[2] = %v", ids[2])
	}
}

func TestReadIdentifiers_InvalidID(t *testing.T) {
	_, _, err := ReadIdentifiers(strings.NewReader("id\nnot-a-uuid\n"))
	if err == nil || !strings.Contains(err.Error(), "row 2") {
		t.Errorf("error = %v, want row 2 error", err)
	}
}

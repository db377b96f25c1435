package card

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"
)

// Card is a catalog record returned for a resolved identifier.
//
// Only the fields the tracker inspects are typed. The complete object as
// received is kept alongside, so re-encoding a Card yields the original JSON and
// any other field stays reachable through Field.
type Card struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Set             string    `json:"set"`
	SetName         string    `json:"set_name"`
	CollectorNumber string    `json:"collector_number"`
	URI             string    `json:"uri"`
	ScryfallURI     string    `json:"scryfall_uri"`
	ReleasedAt      string    `json:"released_at"`
	Frame           string    `json:"frame"`
	FrameEffects    []string  `json:"frame_effects,omitempty"`
	Promo           bool      `json:"promo"`
	FullArt         bool      `json:"full_art"`
	Textless        bool      `json:"textless"`
	Prices          Prices    `json:"prices"`

	raw json.RawMessage
}

// plain drops the custom marshaler to avoid recursion.
type plain Card

// UnmarshalJSON retains the raw object and decodes the typed fields it can.
// A field of an unexpected type keeps its zero value instead of failing the
// record, and a record that is not an object keeps only its raw form.
func (c *Card) UnmarshalJSON(data []byte) error {
	*c = Card{raw: append(json.RawMessage(nil), data...)}

	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) != nil {
		return nil
	}
	decodeField(fields, "id", &c.ID)
	decodeField(fields, "name", &c.Name)
	decodeField(fields, "set", &c.Set)
	decodeField(fields, "set_name", &c.SetName)
	decodeField(fields, "collector_number", &c.CollectorNumber)
	decodeField(fields, "uri", &c.URI)
	decodeField(fields, "scryfall_uri", &c.ScryfallURI)
	decodeField(fields, "released_at", &c.ReleasedAt)
	decodeField(fields, "frame", &c.Frame)
	decodeField(fields, "frame_effects", &c.FrameEffects)
	decodeField(fields, "promo", &c.Promo)
	decodeField(fields, "full_art", &c.FullArt)
	decodeField(fields, "textless", &c.Textless)
	decodeField(fields, "prices", &c.Prices)
	return nil
}

// decodeField sets *dst from fields[key] when the value decodes as T.
func decodeField[T any](fields map[string]json.RawMessage, key string, dst *T) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var v T
	if json.Unmarshal(raw, &v) == nil {
		*dst = v
	}
}

// MarshalJSON re-emits the object as received, or the typed fields for a Card
// built in code.
func (c Card) MarshalJSON() ([]byte, error) {
	if len(c.raw) > 0 {
		return c.raw, nil
	}
	return json.Marshal(plain(c))
}

// Field evaluates a JSONPath expression such as "$.prices.usd_foil" or
// "$.image_uris.normal" against the card and returns the result as text.
// A JSON null yields "".
func (c Card) Field(path string) (string, error) {
	data, err := c.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encode card: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("decode card: %w", err)
	}

	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return "", fmt.Errorf("card field %q: %w", path, err)
	}
	return formatValue(v)
}

func formatValue(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// DisplayName returns the card name decorated with the print treatments that
// tell visually distinct printings apart, e.g. "Forest (Full Art, Retro Frame)".
func (c Card) DisplayName() string {
	var mods []string
	if c.Promo {
		mods = append(mods, "Promo")
	}
	// Unstable full art lands are the regular print of that set.
	if c.FullArt && c.Set != "ust" {
		mods = append(mods, "Full Art")
	}
	if c.Textless {
		mods = append(mods, "Textless")
	}
	if c.isRetroFrame() {
		mods = append(mods, "Retro Frame")
	}
	if slices.Contains(c.FrameEffects, "extendedart") {
		mods = append(mods, "Extended Art")
	}
	if slices.Contains(c.FrameEffects, "showcase") {
		mods = append(mods, "Showcase")
	}

	if len(mods) == 0 {
		return c.Name
	}
	return fmt.Sprintf("%s (%s)", c.Name, strings.Join(mods, ", "))
}

// isRetroFrame reports a modern release printed in a pre-2000 frame. Both
// values are compared as strings, the way the API encodes them.
func (c Card) isRetroFrame() bool {
	if len(c.ReleasedAt) < 4 {
		return false
	}
	return c.ReleasedAt[:4] > "2000" && c.Frame < "2000"
}

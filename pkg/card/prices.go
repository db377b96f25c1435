package card

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Finish is the physical finish of a printed card, which selects its price.
type Finish int

const (
	// Nonfoil is a regular print.
	Nonfoil Finish = iota

	// Foil is a traditional foil print.
	Foil

	// Etched is an etched foil print.
	Etched
)

// String implements fmt.Stringer.
func (f Finish) String() string {
	switch f {
	case Foil:
		return "foil"
	case Etched:
		return "etched"
	default:
		return "nonfoil"
	}
}

// FinishOf maps the foil/etched collection flags to a Finish. Foil wins when both are set.
func FinishOf(foil, etched bool) Finish {
	switch {
	case foil:
		return Foil
	case etched:
		return Etched
	default:
		return Nonfoil
	}
}

// Prices holds the daily market prices Scryfall publishes for a card.
// A missing price is reported by the API as null and decodes to an invalid NullDecimal.
type Prices struct {
	USD       decimal.NullDecimal `json:"usd"`
	USDFoil   decimal.NullDecimal `json:"usd_foil"`
	USDEtched decimal.NullDecimal `json:"usd_etched"`
	EUR       decimal.NullDecimal `json:"eur"`
	EURFoil   decimal.NullDecimal `json:"eur_foil"`
	TIX       decimal.NullDecimal `json:"tix"`
}

// UnmarshalJSON decodes each price on its own. A value that is not a decimal
// string is treated like null.
func (p *Prices) UnmarshalJSON(data []byte) error {
	*p = Prices{}

	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) != nil {
		return nil
	}
	decodeField(fields, "usd", &p.USD)
	decodeField(fields, "usd_foil", &p.USDFoil)
	decodeField(fields, "usd_etched", &p.USDEtched)
	decodeField(fields, "eur", &p.EUR)
	decodeField(fields, "eur_foil", &p.EURFoil)
	decodeField(fields, "tix", &p.TIX)
	return nil
}

// USDFor returns the USD price for the given finish.
func (p Prices) USDFor(f Finish) decimal.NullDecimal {
	switch f {
	case Foil:
		return p.USDFoil
	case Etched:
		return p.USDEtched
	default:
		return p.USD
	}
}

// Package card defines the catalog record types exchanged with the Scryfall API:
// identifiers used to look cards up, and the cards returned for them.
package card

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Identifier describes one card lookup. It is passed to the catalog verbatim, so
// any schema the service accepts may be used, and schemas may be mixed freely
// inside one batch.
type Identifier map[string]string

// Identifier schema keys understood by the /cards/collection endpoint.
const (
	KeyID              = "id"
	KeyMTGOID          = "mtgo_id"
	KeyMultiverseID    = "multiverse_id"
	KeyOracleID        = "oracle_id"
	KeyIllustrationID  = "illustration_id"
	KeyName            = "name"
	KeySet             = "set"
	KeyCollectorNumber = "collector_number"
)

// ByID finds a card by its Scryfall ID.
func ByID(id uuid.UUID) Identifier {
	return Identifier{KeyID: id.String()}
}

// ByMTGOID finds a card by its Magic Online ID.
func ByMTGOID(id int) Identifier {
	return Identifier{KeyMTGOID: strconv.Itoa(id)}
}

// ByMultiverseID finds a card by its Gatherer multiverse ID.
func ByMultiverseID(id int) Identifier {
	return Identifier{KeyMultiverseID: strconv.Itoa(id)}
}

// ByOracleID finds the preferred print of an Oracle card.
func ByOracleID(id uuid.UUID) Identifier {
	return Identifier{KeyOracleID: id.String()}
}

// ByIllustrationID finds the preferred print using a given illustration.
func ByIllustrationID(id uuid.UUID) Identifier {
	return Identifier{KeyIllustrationID: id.String()}
}

// ByName finds the newest print of a card by exact name.
func ByName(name string) Identifier {
	return Identifier{KeyName: name}
}

// ByNameSet finds a card by name within a set.
func ByNameSet(name, set string) Identifier {
	return Identifier{KeyName: name, KeySet: set}
}

// BySetNumber finds a card by set code and collector number.
func BySetNumber(set, collectorNumber string) Identifier {
	return Identifier{KeySet: set, KeyCollectorNumber: collectorNumber}
}

// FromRecord builds an identifier from a loosely filled record such as a CSV
// row. Empty values are dropped so unused columns never reach the service.
func FromRecord(record map[string]string) Identifier {
	id := make(Identifier, len(record))
	for k, v := range record {
		if v == "" {
			continue
		}
		id[k] = v
	}
	return id
}

// UnmarshalJSON accepts identifiers echoed back with numeric values, such as
// {"multiverse_id": 409574}. Non-string values keep their JSON text.
func (i *Identifier) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	id := make(Identifier, len(fields))
	for k, raw := range fields {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			id[k] = s
			continue
		}
		id[k] = string(bytes.TrimSpace(raw))
	}
	*i = id
	return nil
}

// Key returns a deterministic string form of the identifier, suitable as a map key.
//
// Example:
//
//	collector_number=12:set=neo
func (i Identifier) Key() string {
	keys := make([]string, 0, len(i))
	for k := range i {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, i[k]))
	}
	return strings.Join(parts, ":")
}

// Validate reports obvious mistakes before an identifier is sent: an empty
// descriptor, or UUID-valued fields that do not parse.
func (i Identifier) Validate() error {
	if len(i) == 0 {
		return fmt.Errorf("identifier is empty")
	}
	for _, k := range []string{KeyID, KeyOracleID, KeyIllustrationID} {
		v, ok := i[k]
		if !ok {
			continue
		}
		if _, err := uuid.Parse(v); err != nil {
			return fmt.Errorf("identifier %s %q: %w", k, v, err)
		}
	}
	return nil
}

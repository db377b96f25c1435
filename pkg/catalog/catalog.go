// Package catalog wraps the cacheable Scryfall GET endpoints.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// SetsEndpoint lists every set known to Scryfall.
const SetsEndpoint = "/sets"

// Getter is the part of client.Client used here.
type Getter interface {
	GetJSON(ctx context.Context, endpoint string, query url.Values, out any) error
}

// Set is one Scryfall set object.
type Set struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	SetType     string    `json:"set_type"`
	ReleasedAt  string    `json:"released_at"`
	CardCount   int       `json:"card_count"`
	Digital     bool      `json:"digital"`
	ParentCode  string    `json:"parent_set_code"`
	ScryfallURI string    `json:"scryfall_uri"`
}

type setList struct {
	Data *[]Set `json:"data"`
}

// ListSets returns all sets in the order Scryfall lists them.
func ListSets(ctx context.Context, g Getter) ([]Set, error) {
	var list setList
	if err := g.GetJSON(ctx, SetsEndpoint, nil, &list); err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	if list.Data == nil {
		return nil, errors.New("list sets: response has no data")
	}
	return *list.Data, nil
}

package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/scryfall-client/pkg/card"
	"github.com/Sternrassler/scryfall-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// BatchSizeMax is the maximum number of identifiers per collection request.
	BatchSizeMax = 75

	// CooldownMin is the minimum gap between two collection requests.
	CooldownMin = ratelimit.CooldownMin

	// Endpoint is the bulk lookup endpoint.
	Endpoint = "/cards/collection"
)

// ErrMalformedResponse is returned when a collection response lacks the data
// or not_found list.
var ErrMalformedResponse = errors.New("malformed collection response")

var (
	lookupBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scryfall_lookup_batches_total",
		Help: "Total collection batches by result",
	}, []string{"result"})

	lookupIdentifiersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scryfall_lookup_identifiers_total",
		Help: "Total identifiers looked up by result (found, not_found)",
	}, []string{"result"})
)

// Poster is the part of client.Client the resolver needs.
type Poster interface {
	PostJSON(ctx context.Context, endpoint string, body, out any) error
}

// BatchError reports which batch made Resolve fail.
type BatchError struct {
	// Batch is the 0-based index of the failing batch.
	Batch int
	// Batches is the total number of batches of the call.
	Batches int
	// Completed is the number of leading identifiers whose batches succeeded.
	Completed int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d/%d (after %d identifiers): %v", e.Batch+1, e.Batches, e.Completed, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

type collectionRequest struct {
	Identifiers []card.Identifier `json:"identifiers"`
}

// Pointers distinguish a missing list from an empty one.
type collectionResponse struct {
	Data     *[]card.Card       `json:"data"`
	NotFound *[]card.Identifier `json:"not_found"`
	Warnings []string           `json:"warnings"`
}

// Resolver resolves identifiers batch by batch. It is not safe for concurrent
// use: two Resolve calls on the same client would interleave their batches.
type Resolver struct {
	poster Poster
	logger zerolog.Logger
}

// NewResolver creates a resolver that submits batches through p.
func NewResolver(p Poster) *Resolver {
	return &Resolver{
		poster: p,
		logger: log.With().Str("component", "scryfall-lookup").Logger(),
	}
}

// Resolve looks up every identifier and returns the matched cards and the
// identifiers Scryfall could not match, both in request order.
//
// On failure it returns nil slices and a *BatchError.
func (r *Resolver) Resolve(ctx context.Context, ids []card.Identifier) ([]card.Card, []card.Identifier, error) {
	cards := make([]card.Card, 0, len(ids))
	notFound := make([]card.Identifier, 0)
	if len(ids) == 0 {
		return cards, notFound, nil
	}

	start := time.Now()
	batches := Chunk(ids, BatchSizeMax)

	r.logger.Info().
		Int("identifiers", len(ids)).
		Int("batches", len(batches)).
		Msg("Starting collection lookup")

	completed := 0
	for i, batch := range batches {
		fail := func(err error) ([]card.Card, []card.Identifier, error) {
			lookupBatchesTotal.WithLabelValues("error").Inc()
			r.logger.Error().
				Err(err).
				Int("batch", i+1).
				Int("batches", len(batches)).
				Int("completed", completed).
				Msg("Collection lookup failed")
			return nil, nil, &BatchError{Batch: i, Batches: len(batches), Completed: completed, Err: err}
		}

		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		var resp collectionResponse
		if err := r.poster.PostJSON(ctx, Endpoint, collectionRequest{Identifiers: batch}, &resp); err != nil {
			return fail(err)
		}
		if resp.Data == nil || resp.NotFound == nil {
			return fail(ErrMalformedResponse)
		}

		for _, w := range resp.Warnings {
			r.logger.Warn().Int("batch", i+1).Str("warning", w).Msg("Scryfall warning")
		}

		cards = append(cards, *resp.Data...)
		notFound = append(notFound, *resp.NotFound...)
		completed += len(batch)

		lookupBatchesTotal.WithLabelValues("ok").Inc()
		lookupIdentifiersTotal.WithLabelValues("found").Add(float64(len(*resp.Data)))
		lookupIdentifiersTotal.WithLabelValues("not_found").Add(float64(len(*resp.NotFound)))

		r.logger.Debug().
			Int("batch", i+1).
			Int("batches", len(batches)).
			Int("found", len(*resp.Data)).
			Int("not_found", len(*resp.NotFound)).
			Msg("Batch resolved")
	}

	r.logger.Info().
		Int("found", len(cards)).
		Int("not_found", len(notFound)).
		Dur("duration", time.Since(start)).
		Msg("Collection lookup complete")

	return cards, notFound, nil
}

// Chunk splits items into consecutive slices of at most size elements. The
// chunks share the backing array of items.
func Chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for len(items) > size {
		chunks = append(chunks, items[:size:size])
		items = items[size:]
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}

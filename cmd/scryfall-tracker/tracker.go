package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/scryfall-client/internal/config"
	"github.com/Sternrassler/scryfall-client/internal/history"
	"github.com/Sternrassler/scryfall-client/internal/inventory"
	"github.com/Sternrassler/scryfall-client/internal/report"
	"github.com/Sternrassler/scryfall-client/internal/sheet"
	"github.com/Sternrassler/scryfall-client/pkg/client"
	"github.com/Sternrassler/scryfall-client/pkg/lookup"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// now is replaced in tests.
var now = time.Now

// tracker bundles the configuration and the API client of one run.
type tracker struct {
	cfg    *config.Config
	client *client.Client
	rdb    *redis.Client
}

func (g *globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// open loads the configuration and connects to Scryfall. An unreachable Redis
// disables the cache instead of failing the run.
func (g *globals) open(ctx context.Context) (*tracker, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}

	t := &tracker{cfg: cfg}
	if cfg.Redis.URL != "" {
		opts, err := cfg.Redis.Options()
		if err != nil {
			return nil, err
		}
		rdb := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unavailable, running without cache")
			rdb.Close()
		} else {
			log.Debug().Str("addr", opts.Addr).Msg("Connected to Redis")
			t.rdb = rdb
		}
	}

	t.client, err = client.New(cfg.ClientConfig(t.rdb))
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("create client: %w", err)
	}
	return t, nil
}

func (t *tracker) Close() {
	if t.client != nil {
		t.client.Close()
	}
	if t.rdb != nil {
		t.rdb.Close()
	}
}

func (t *tracker) resolver() *lookup.Resolver {
	return lookup.NewResolver(t.client)
}

// buildWorkbook writes the price sheet of c and a chart for every owned
// printing whose latest price in h is above the configured threshold.
func buildWorkbook(cfg *config.Config, c *inventory.Collection, h *history.History) (int, error) {
	wb, err := sheet.New()
	if err != nil {
		return 0, err
	}
	defer wb.Close()

	if err := wb.SetPrices(report.PriceColumns(c.Columns), c.Owned()); err != nil {
		return 0, fmt.Errorf("price sheet: %w", err)
	}

	tracked := history.Above(h.Join(c), cfg.Charts.Threshold())
	for _, tr := range tracked {
		name, err := wb.AddChart(tr, cfg.Charts.MaxTicks)
		if err != nil {
			return 0, err
		}
		log.Debug().Str("sheet", name).Int("points", len(tr.Points)).Msg("Added price chart")
	}

	if err := wb.Save(cfg.Paths.Workbook); err != nil {
		return 0, err
	}
	return len(tracked), nil
}

// describeLookupError adds a resume hint to a failed lookup.
func describeLookupError(err error) error {
	var be *lookup.BatchError
	if errors.As(err, &be) {
		return fmt.Errorf("lookup stopped at batch %d of %d; the first %d identifiers were resolved and discarded: %w",
			be.Batch+1, be.Batches, be.Completed, be.Err)
	}
	return err
}

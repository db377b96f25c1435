// Package cache stores Scryfall GET responses in Redis.
//
// Scryfall asks API clients to keep the data they fetch for at least 24 hours:
// card prices only update once a day and set metadata changes even less often.
// The cache manager keeps whole HTTP responses keyed by endpoint and query, and
// replays them until they expire.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Endpoint:    "/sets",
//		QueryParams: url.Values{"pretty": []string{"false"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from Scryfall
//	}
//
// # HTTP Response Caching
//
//	entry, err := cache.ResponseToEntry(resp, cache.DefaultTTL)
//	if err != nil {
//		return err
//	}
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
//	resp = cache.EntryToResponse(entry)
//
// The lifetime of an entry comes from Cache-Control max-age, then the Expires
// header, then the caller's default TTL.
//
// Only idempotent GET responses are cached. The POST /cards/collection lookup
// always goes to the network.
//
// # Metrics
//
//   - scryfall_cache_hits_total{layer="redis"} - Cache hits
//   - scryfall_cache_misses_total - Cache misses
//   - scryfall_cache_size_bytes{layer="redis"} - Bytes written to the cache
//   - scryfall_cache_errors_total{operation} - Cache operation errors
package cache

// Package metrics exposes the Prometheus metrics of the Scryfall client.
// The metrics themselves are defined next to the code they measure (client,
// lookup, ratelimit, cache) and registered via promauto; this package serves
// them over HTTP and documents them.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the registerer all scryfall_ metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Handler returns the /metrics handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server serves /metrics while a batch job runs.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr and starts serving /metrics in the background.
func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	s := &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")
	return s, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - scryfall_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - scryfall_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - scryfall_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client, GET only):
//   - scryfall_retries_total{error_class} (Counter): Retry attempts by error class
//   - scryfall_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - scryfall_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Pacing Metrics (pkg/ratelimit):
//   - scryfall_pacer_wait_seconds (Histogram): Time spent waiting for the cooldown
//   - scryfall_pacer_cancelled_total (Counter): Waits abandoned on context cancellation
//
// Lookup Metrics (pkg/lookup):
//   - scryfall_lookup_batches_total{result} (Counter): Collection batches (ok, error)
//   - scryfall_lookup_identifiers_total{result} (Counter): Identifiers (found, not_found)
//
// Cache Metrics (pkg/cache):
//   - scryfall_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - scryfall_cache_misses_total (Counter): Cache misses
//   - scryfall_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - scryfall_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Not-found ratio of a lookup run
//   sum(scryfall_lookup_identifiers_total{result="not_found"}) /
//   sum(scryfall_lookup_identifiers_total)
//
//   # Average cooldown wait
//   rate(scryfall_pacer_wait_seconds_sum[5m]) / rate(scryfall_pacer_wait_seconds_count[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(scryfall_request_duration_seconds_bucket[5m]))

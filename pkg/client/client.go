// Package client provides the core Scryfall HTTP client with request pacing,
// caching of GET responses, and error handling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/scryfall-client/pkg/cache"
	"github.com/Sternrassler/scryfall-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the Scryfall API root. The API is only served over HTTPS.
	DefaultBaseURL = "https://api.scryfall.com"

	// DefaultAccept is the Accept header sent by DefaultConfig.
	DefaultAccept = "application/json"

	// DefaultTimeout bounds a single request including reading the response headers.
	DefaultTimeout = 30 * time.Second

	// jsonContentType is required by Scryfall on POST bodies.
	jsonContentType = "application/json; charset=utf-8"

	// wildcardAccept is sent when no Accept preference is configured.
	wildcardAccept = "*/*"
)

// Prometheus metrics for Scryfall client operations.
var (
	scryfallRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scryfall_requests_total",
		Help: "Total Scryfall requests by endpoint and status",
	}, []string{"endpoint", "status"})

	scryfallRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scryfall_request_duration_seconds",
		Help:    "Scryfall request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	scryfallErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scryfall_errors_total",
		Help: "Total Scryfall errors by class",
	}, []string{"class"})
)

// Client is the Scryfall API client. One Client owns one connection pool and
// one pacer, so every request made through it shares the same cooldown.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	pacer      *ratelimit.Pacer
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// User-Agent header (REQUIRED by Scryfall)
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Accept header. Empty means "*/*".
	Accept string

	// BaseURL of the API (default: https://api.scryfall.com)
	BaseURL string

	// Timeout per request (default: 30s). Ignored when HTTPClient is set.
	Timeout time.Duration

	// Cooldown between consecutive requests; raised to ratelimit.CooldownMin if lower.
	Cooldown time.Duration

	// Redis enables the GET response cache when non-nil.
	Redis *redis.Client

	// CacheTTL is used for cached responses without caching headers (default: 24h).
	CacheTTL time.Duration

	// Retry applies to GET requests. POST requests are never retried.
	Retry RetryConfig

	// HTTPClient overrides the underlying HTTP client.
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Accept:    DefaultAccept,
		BaseURL:   DefaultBaseURL,
		Timeout:   DefaultTimeout,
		Cooldown:  ratelimit.CooldownMin,
		CacheTTL:  cache.DefaultTTL,
		Retry:     DefaultRetryConfig(),
	}
}

// New creates a new Scryfall client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return nil, ErrMissingUserAgent
	}

	if cfg.Accept == "" {
		cfg.Accept = wildcardAccept
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (baseURL.Scheme != "https" && baseURL.Scheme != "http") || baseURL.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute http(s) url (got %q)", cfg.BaseURL)
	}

	logger := log.With().Str("component", "scryfall-client").Logger()
	if baseURL.Scheme != "https" {
		logger.Warn().Str("base_url", cfg.BaseURL).Msg("Base URL is not HTTPS; Scryfall only serves TLS")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		pacer:      ratelimit.NewPacer(cfg.Cooldown, logger),
		cache:      cacheManager,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Do performs an HTTP request with pacing, identification headers and error handling.
// Any non-2xx response is returned as an *APIError and its body is consumed.
//
// The cooldown before the next request starts when the returned body is closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	if err := c.pacer.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for cooldown: %w", err)
	}

	startTime := time.Now()
	defer func() {
		scryfallRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", c.config.Accept)
	if req.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", jsonContentType)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing Scryfall request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errClass := classifyError(nil, err)
		scryfallErrorsTotal.WithLabelValues(string(errClass)).Inc()
		scryfallRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		c.pacer.Done()
		return nil, &APIError{
			ErrorClass: errClass,
			Method:     req.Method,
			Endpoint:   endpoint,
			Err:        err,
		}
	}

	scryfallRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeError(resp)
		c.pacer.Done()
		apiErr.Method = req.Method
		apiErr.Endpoint = endpoint
		scryfallErrorsTotal.WithLabelValues(string(apiErr.ErrorClass)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.ErrorClass)).
			Str("code", apiErr.Code).
			Msg("Scryfall request error")
		return nil, apiErr
	}

	resp.Body = &pacedBody{ReadCloser: resp.Body, done: c.pacer.Done}
	return resp, nil
}

// pacedBody reports the end of a request to the pacer once the body is closed.
type pacedBody struct {
	io.ReadCloser
	once sync.Once
	done func()
}

func (b *pacedBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.done)
	return err
}

// Get performs a GET request, served from the cache when possible.
//
// Transient failures (5xx, 429, network) are retried according to Config.Retry.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	key := cache.CacheKey{Endpoint: endpoint, QueryParams: query}

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("endpoint", endpoint).Msg("Cache hit")
			return cache.EntryToResponse(entry), nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	var resp *http.Response
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil)
		if err != nil {
			return err
		}
		r, err := c.Do(req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	resp, err := c.Get(ctx, endpoint, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeJSON(resp, out)
}

// PostJSON sends body as JSON and decodes the JSON response into out.
// POST requests are not retried: a failure is returned to the caller as is.
func (c *Client) PostJSON(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", jsonContentType)

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeJSON(resp, out)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the cache manager, or nil when caching is disabled.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL.JoinPath(endpoint)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// classifyError categorizes a failure for observability and retry decisions.
func classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// decodeError builds an APIError from a non-2xx response and closes its body.
func decodeError(resp *http.Response) *APIError {
	defer resp.Body.Close()

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: classifyError(resp, nil),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		apiErr.Err = fmt.Errorf("read error body: %w", err)
		return apiErr
	}

	var obj errorObject
	if err := json.Unmarshal(body, &obj); err == nil && obj.Object == "error" {
		apiErr.Code = obj.Code
		apiErr.Details = obj.Details
		apiErr.Warnings = obj.Warnings
		return apiErr
	}

	apiErr.Details = resp.Status
	return apiErr
}

func decodeJSON(resp *http.Response, out any) error {
	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

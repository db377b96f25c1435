package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	scryfallRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scryfall_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	scryfallRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scryfall_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	scryfallRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scryfall_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic. It applies to GET
// requests only.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	// Values below 1 mean a single attempt.
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// forErrorClass adjusts the backoff for an error class. A 429 means the API
// wants us to slow down, so it starts from a longer backoff.
func (rc RetryConfig) forErrorClass(errorClass ErrorClass) RetryConfig {
	if errorClass == ErrorClassRateLimit {
		rc.InitialBackoff *= 5
		if rc.InitialBackoff > rc.MaxBackoff {
			rc.InitialBackoff = rc.MaxBackoff
		}
	}
	return rc
}

// retryWithBackoff executes fn with exponential backoff retry logic.
// Only errors whose class shouldRetry are retried; anything else is returned at once.
// It respects context cancellation and adds jitter to the backoff.
func retryWithBackoff(ctx context.Context, base RetryConfig, logger zerolog.Logger, fn func() error) error {
	maxAttempts := base.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		lastErr    error
		errorClass ErrorClass
		backoff    time.Duration
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("error_class", string(errorClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		errorClass = classOf(err)

		if ctx.Err() != nil || !shouldRetry(errorClass) {
			return lastErr
		}

		if attempt >= maxAttempts {
			break
		}

		config := base.forErrorClass(errorClass)
		if attempt == 1 {
			backoff = config.InitialBackoff
		}

		scryfallRetriesTotal.WithLabelValues(string(errorClass)).Inc()

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		scryfallRetryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(jitter.Seconds())

		logger.Debug().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			logger.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	if maxAttempts == 1 {
		return lastErr
	}

	scryfallRetryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	logger.Warn().
		Str("error_class", string(errorClass)).
		Int("max_attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr)
}

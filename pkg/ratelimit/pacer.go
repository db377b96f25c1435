// Package ratelimit paces requests to the Scryfall API.
// Scryfall asks clients to stay at or below 10 requests per second on average;
// a Pacer enforces a fixed cooldown between the end of one request and the
// start of the next.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// CooldownMin is the smallest gap allowed between two consecutive requests.
const CooldownMin = 100 * time.Millisecond

// Prometheus metrics for request pacing.
var (
	pacerWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scryfall_pacer_wait_seconds",
		Help:    "Time requests spent waiting for the cooldown to elapse",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	pacerCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scryfall_pacer_cancelled_total",
		Help: "Total number of waits abandoned because the context was cancelled",
	})
)

// Pacer spaces out sequential requests.
//
// Wait and Done are safe to call from several goroutines, but the spacing
// guarantee only holds for a sequential request stream. Concurrent callers need a
// token bucket instead.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	logger zerolog.Logger
}

// NewPacer creates a pacer. Intervals below CooldownMin are raised to CooldownMin.
func NewPacer(interval time.Duration, logger zerolog.Logger) *Pacer {
	if interval < CooldownMin {
		interval = CooldownMin
	}
	return &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
		logger:   logger,
	}
}

// Interval returns the enforced gap between requests.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the cooldown since the last completed request has elapsed.
// It returns ctx.Err() if the context ends first.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	last := p.last
	p.mu.Unlock()

	if last.IsZero() {
		return nil
	}

	wait := p.interval - p.now().Sub(last)
	if wait <= 0 {
		return nil
	}

	p.logger.Debug().Dur("wait", wait).Msg("Waiting for request cooldown")
	pacerWaitSeconds.Observe(wait.Seconds())

	if err := p.sleep(ctx, wait); err != nil {
		pacerCancelledTotal.Inc()
		return err
	}
	return nil
}

// Done marks the end of a request, successful or not. The next Wait measures
// the cooldown from here.
func (p *Pacer) Done() {
	p.mu.Lock()
	p.last = p.now()
	p.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfig_ForErrorClass(t *testing.T) {
	base := DefaultRetryConfig()

	if got := base.forErrorClass(ErrorClassServer); got != base {
		t.Errorf("server class should keep the base config, got %+v", got)
	}

	rl := base.forErrorClass(ErrorClassRateLimit)
	if rl.InitialBackoff != 5*time.Second {
		t.Errorf("rate limit InitialBackoff = %v, want 5s", rl.InitialBackoff)
	}

	capped := RetryConfig{MaxAttempts: 2, InitialBackoff: 10 * time.Second, MaxBackoff: 15 * time.Second, BackoffMultiplier: 2}
	if got := capped.forErrorClass(ErrorClassRateLimit).InitialBackoff; got != 15*time.Second {
		t.Errorf("rate limit backoff should be capped at MaxBackoff, got %v", got)
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(context.Background(), fastRetry, zerolog.Nop(), func() error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryWithBackoff_SucceedsAfterRetry(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(context.Background(), fastRetry, zerolog.Nop(), func() error {
		attempts++
		if attempts < 2 {
			return &APIError{StatusCode: 502, ErrorClass: ErrorClassServer}
		}
		return nil
	})

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryWithBackoff_ClientErrorNotRetried(t *testing.T) {
	attempts := 0
	want := &APIError{StatusCode: 404, ErrorClass: ErrorClassClient}
	err := retryWithBackoff(context.Background(), fastRetry, zerolog.Nop(), func() error {
		attempts++
		return want
	})

	if !errors.Is(err, want) {
		t.Errorf("error = %v, want the client error unchanged", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryWithBackoff_PlainErrorNotRetried(t *testing.T) {
	attempts := 0
	retryWithBackoff(context.Background(), fastRetry, zerolog.Nop(), func() error {
		attempts++
		return errors.New("create request: bad url")
	})

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(context.Background(), fastRetry, zerolog.Nop(), func() error {
		attempts++
		return &APIError{StatusCode: 503, ErrorClass: ErrorClassServer}
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}
	if attempts != fastRetry.MaxAttempts {
		t.Errorf("attempts = %d, want %d", attempts, fastRetry.MaxAttempts)
	}
}

func TestRetryWithBackoff_SingleAttempt(t *testing.T) {
	cfg := fastRetry
	cfg.MaxAttempts = 0

	attempts := 0
	err := retryWithBackoff(context.Background(), cfg, zerolog.Nop(), func() error {
		attempts++
		return &APIError{StatusCode: 500, ErrorClass: ErrorClassServer}
	})

	if errors.Is(err, ErrRetryExhausted) {
		t.Error("a single attempt should return the error unwrapped")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryWithBackoff_ContextCancelledDuringBackoff(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    time.Second,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	attempts := 0
	start := time.Now()
	err := retryWithBackoff(ctx, cfg, zerolog.Nop(), func() error {
		attempts++
		return &APIError{ErrorClass: ErrorClassNetwork}
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("error = %v, want ErrContextCancelled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("retry did not stop on cancellation, took %v", elapsed)
	}
}

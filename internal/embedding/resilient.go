package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// RetryConfig controls how ResilientProvider retries transient provider failures.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// RequestTimeout bounds each attempt; zero means no per-attempt timeout.
	RequestTimeout time.Duration
}

// DefaultRetryConfig returns three retries starting at 200ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		RequestTimeout:  30 * time.Second,
	}
}

// ResilientProvider retries failed calls with exponential backoff and stops
// calling the wrapped provider while its circuit breaker is open.
type ResilientProvider struct {
	Provider
	retry   RetryConfig
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewResilientProvider wraps p. A nil logger disables logging.
func NewResilientProvider(p Provider, retry RetryConfig, logger *zap.Logger) *ResilientProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	rp := &ResilientProvider{Provider: p, retry: retry, logger: logger}
	rp.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding:" + p.ModelID(),
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		IsSuccessful: func(err error) bool {
			// Bad input says nothing about the health of the service.
			return err == nil || errors.Is(err, ErrEmptyInput) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("embedding circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return rp
}

// Embed calls the wrapped provider, retrying transient failures.
func (r *ResilientProvider) Embed(ctx context.Context, in Input) ([]float32, error) {
	if in.Empty() {
		return nil, ErrEmptyInput
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.retry.InitialInterval
	b.MaxInterval = r.retry.MaxInterval
	b.MaxElapsedTime = 0
	var policy backoff.BackOff = backoff.WithMaxRetries(b, uint64(r.retry.MaxRetries))
	policy = backoff.WithContext(policy, ctx)

	var vec []float32
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		out, err := r.breaker.Execute(func() (interface{}, error) {
			v, err := r.embedOnce(ctx, in)
			return v, err
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) ||
				errors.Is(err, ErrEmptyInput) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			r.logger.Debug("embedding attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		vec = out.([]float32)
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("embedding failed after %d attempt(s): %w", attempt, err)
	}
	return vec, nil
}

func (r *ResilientProvider) embedOnce(ctx context.Context, in Input) ([]float32, error) {
	if r.retry.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.retry.RequestTimeout)
		defer cancel()
	}
	return r.Provider.Embed(ctx, in)
}

// BreakerState returns the circuit breaker state ("closed", "half-open" or "open").
func (r *ResilientProvider) BreakerState() string {
	return r.breaker.State().String()
}

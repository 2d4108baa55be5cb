package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/capacitylab/fleet-advisor/internal/logger"
	"github.com/capacitylab/fleet-advisor/internal/resilience"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

// ResilientSource wraps a Source with retries and a circuit breaker. When
// the underlying source keeps failing it serves the last good sample so a
// transient outage does not starve the sampling loop.
type ResilientSource struct {
	source         Source
	circuitBreaker *resilience.CircuitBreaker
	retryAttempts  int
	retryDelay     time.Duration

	mu       sync.RWMutex
	lastGood *models.MetricSample
}

type ResilientSourceConfig struct {
	Source        Source
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientSource(cfg ResilientSourceConfig) *ResilientSource {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1 * time.Second
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "telemetry",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.Timeout,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientSource{
		source:         cfg.Source,
		circuitBreaker: cb,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
	}
}

func (r *ResilientSource) Sample(ctx context.Context) (*models.MetricSample, error) {
	var sample *models.MetricSample
	var lastErr error

	err := r.circuitBreaker.Execute(func() error {
		for attempt := 1; attempt <= r.retryAttempts; attempt++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var err error
			sample, err = r.source.Sample(ctx)
			if err == nil {
				return nil
			}

			lastErr = err
			logger.WithComponent("telemetry").Warnf(
				"Sample attempt %d/%d failed: %v", attempt, r.retryAttempts, err,
			)

			if attempt < r.retryAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(r.retryDelay):
				}
			}
		}
		return lastErr
	})

	if err != nil {
		if last := r.lastGoodSample(); last != nil {
			logger.WithComponent("telemetry").Warnf("Serving last good sample after failure: %v", err)
			return last, nil
		}
		return nil, err
	}

	r.mu.Lock()
	r.lastGood = sample
	r.mu.Unlock()

	return sample, nil
}

func (r *ResilientSource) lastGoodSample() *models.MetricSample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastGood == nil {
		return nil
	}
	copied := *r.lastGood
	return &copied
}

func (r *ResilientSource) HealthCheck(ctx context.Context) error {
	return r.source.HealthCheck(ctx)
}

func (r *ResilientSource) Close() error {
	return r.source.Close()
}

func (r *ResilientSource) CircuitState() resilience.State {
	return r.circuitBreaker.State()
}

func (r *ResilientSource) ResetCircuit() {
	r.circuitBreaker.Reset()
}

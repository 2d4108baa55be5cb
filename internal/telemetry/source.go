package telemetry

import (
	"context"
	"errors"

	"github.com/capacitylab/fleet-advisor/pkg/models"
)

var (
	ErrSourceUnavailable = errors.New("telemetry source unavailable")
	ErrNoSamples         = errors.New("no samples collected yet")
)

// Source produces metric samples for the fleet.
type Source interface {
	// Sample collects one observation of the current workload.
	Sample(ctx context.Context) (*models.MetricSample, error)

	// HealthCheck verifies the source can reach its underlying data.
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the source.
	Close() error
}

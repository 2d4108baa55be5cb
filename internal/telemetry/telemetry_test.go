package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capacitylab/fleet-advisor/internal/resilience"
	"github.com/capacitylab/fleet-advisor/internal/telemetry"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

func sampleAt(load float64, ts time.Time) models.MetricSample {
	return models.MetricSample{
		Timestamp:      ts,
		CPUPercent:     load,
		MemoryPercent:  load,
		ResponseTimeMs: 100,
		LoadScore:      load,
	}
}

func TestStore_AddAndRecent(t *testing.T) {
	store := telemetry.NewStore(100)
	base := time.Now()

	for i := 0; i < 10; i++ {
		store.Add(sampleAt(float64(i), base.Add(time.Duration(i)*time.Minute)))
	}

	assert.Equal(t, 10, store.Len())

	recent := store.Recent(3)
	require.Len(t, recent, 3)
	// chronological, newest last
	assert.Equal(t, 7.0, recent[0].LoadScore)
	assert.Equal(t, 9.0, recent[2].LoadScore)

	all := store.Recent(0)
	assert.Len(t, all, 10)
}

func TestStore_CapacityEviction(t *testing.T) {
	store := telemetry.NewStore(5)
	base := time.Now()

	for i := 0; i < 8; i++ {
		store.Add(sampleAt(float64(i), base.Add(time.Duration(i)*time.Minute)))
	}

	assert.Equal(t, 5, store.Len())
	recent := store.Recent(5)
	assert.Equal(t, 3.0, recent[0].LoadScore)

	// total survives eviction
	summary := store.Summary(5)
	assert.Equal(t, 8, summary.TotalSamples)
}

func TestStore_Latest(t *testing.T) {
	store := telemetry.NewStore(10)

	_, ok := store.Latest()
	assert.False(t, ok)

	store.Add(sampleAt(42, time.Now()))
	latest, ok := store.Latest()
	require.True(t, ok)
	assert.Equal(t, 42.0, latest.LoadScore)
}

func TestStore_Summary(t *testing.T) {
	store := telemetry.NewStore(10)
	base := time.Now()
	store.Add(sampleAt(40, base))
	store.Add(sampleAt(60, base.Add(time.Minute)))

	summary := store.Summary(10)

	assert.Equal(t, 50.0, summary.AvgLoadScore)
	assert.Equal(t, 50.0, summary.AvgCPU)
	assert.Equal(t, 2, summary.TotalSamples)
}

func TestSimSource_Sample(t *testing.T) {
	source := telemetry.NewSimSource(telemetry.SimSourceConfig{
		BaseLoad: 50,
		Variance: 10,
		Seed:     1,
	})

	first, err := source.Sample(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, first.CPUPercent, 0.0)
	assert.LessOrEqual(t, first.CPUPercent, 100.0)
	assert.Greater(t, first.LoadScore, 0.0)
	assert.Greater(t, first.ResponseTimeMs, 0.0)

	second, err := source.Sample(context.Background())
	require.NoError(t, err)

	// interface counters are cumulative
	assert.Greater(t, second.NetworkBytesSent, first.NetworkBytesSent)
	assert.Greater(t, second.NetworkBytesRecv, first.NetworkBytesRecv)
}

func TestSimSource_SetBaseLoad(t *testing.T) {
	source := telemetry.NewSimSource(telemetry.SimSourceConfig{
		BaseLoad: 20,
		Variance: 5,
		Seed:     1,
	})
	source.SetBaseLoad(90)

	sample, err := source.Sample(context.Background())
	require.NoError(t, err)

	assert.Greater(t, sample.CPUPercent, 80.0)
}

func TestResilientSource_RetriesThenSucceeds(t *testing.T) {
	inner := telemetry.NewSimSource(telemetry.SimSourceConfig{Seed: 1})
	source := telemetry.NewResilientSource(telemetry.ResilientSourceConfig{
		Source:        inner,
		MaxFailures:   3,
		Timeout:       time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	})

	sample, err := source.Sample(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, sample)
	assert.Equal(t, resilience.StateClosed, source.CircuitState())
}

func TestResilientSource_ServesLastGoodSampleOnFailure(t *testing.T) {
	inner := telemetry.NewSimSource(telemetry.SimSourceConfig{Seed: 1})
	source := telemetry.NewResilientSource(telemetry.ResilientSourceConfig{
		Source:        inner,
		MaxFailures:   10,
		Timeout:       time.Second,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})

	good, err := source.Sample(context.Background())
	require.NoError(t, err)

	inner.SetFailure(errors.New("probe offline"))

	fallback, err := source.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, good.LoadScore, fallback.LoadScore)
}

func TestResilientSource_FailsWithoutFallback(t *testing.T) {
	inner := telemetry.NewSimSource(telemetry.SimSourceConfig{Seed: 1})
	inner.SetFailure(errors.New("probe offline"))

	source := telemetry.NewResilientSource(telemetry.ResilientSourceConfig{
		Source:        inner,
		MaxFailures:   10,
		Timeout:       time.Second,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})

	_, err := source.Sample(context.Background())

	assert.Error(t, err)
}

func TestResilientSource_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	inner := telemetry.NewSimSource(telemetry.SimSourceConfig{Seed: 1})
	inner.SetFailure(errors.New("probe offline"))

	source := telemetry.NewResilientSource(telemetry.ResilientSourceConfig{
		Source:        inner,
		MaxFailures:   2,
		Timeout:       time.Minute,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})

	ctx := context.Background()
	source.Sample(ctx)
	source.Sample(ctx)

	assert.Equal(t, resilience.StateOpen, source.CircuitState())

	source.ResetCircuit()
	assert.Equal(t, resilience.StateClosed, source.CircuitState())
}

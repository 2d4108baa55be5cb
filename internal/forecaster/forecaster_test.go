package forecaster_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capacitylab/fleet-advisor/internal/forecaster"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

// makeSamples builds n minute-spaced samples whose load follows loadAt.
func makeSamples(n int, loadAt func(i int) float64) []models.MetricSample {
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	samples := make([]models.MetricSample, n)
	for i := range samples {
		load := loadAt(i)
		samples[i] = models.MetricSample{
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
			CPUPercent:     load * 0.9,
			MemoryPercent:  load * 0.8,
			ResponseTimeMs: 50 + load,
			LoadScore:      load,
		}
	}
	return samples
}

func wavyLoad(i int) float64 {
	return 50 + 15*math.Sin(float64(i)/4) + float64(i%3)
}

func TestForecaster_Train(t *testing.T) {
	t.Run("succeeds with enough samples", func(t *testing.T) {
		f := forecaster.New()
		assert.False(t, f.Trained())

		ok := f.Train(makeSamples(60, wavyLoad))

		require.True(t, ok)
		assert.True(t, f.Trained())
	})

	t.Run("fails with too few samples", func(t *testing.T) {
		f := forecaster.New()

		ok := f.Train(makeSamples(5, wavyLoad))

		assert.False(t, ok)
		assert.False(t, f.Trained())
	})

	t.Run("failed retrain keeps prior model", func(t *testing.T) {
		f := forecaster.New()
		require.True(t, f.Train(makeSamples(60, wavyLoad)))

		ok := f.Train(makeSamples(3, wavyLoad))

		assert.False(t, ok)
		assert.True(t, f.Trained())
	})
}

func TestForecaster_Predict(t *testing.T) {
	t.Run("untrained repeats current load", func(t *testing.T) {
		f := forecaster.New()
		samples := makeSamples(10, func(int) float64 { return 42.0 })

		predictions := f.Predict(samples, 5)

		require.Len(t, predictions, 5)
		for _, p := range predictions {
			assert.Equal(t, 42.0, p)
		}
	})

	t.Run("empty history falls back to default load", func(t *testing.T) {
		f := forecaster.New()

		predictions := f.Predict(nil, 3)

		require.Len(t, predictions, 3)
		for _, p := range predictions {
			assert.Equal(t, 50.0, p)
		}
	})

	t.Run("trained forecast covers horizon within bounds", func(t *testing.T) {
		f := forecaster.New()
		samples := makeSamples(60, wavyLoad)
		require.True(t, f.Train(samples))

		predictions := f.Predict(samples[30:], 5)

		require.Len(t, predictions, 5)
		for _, p := range predictions {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 100.0)
		}
	})

	t.Run("zero horizon yields nil", func(t *testing.T) {
		f := forecaster.New()
		assert.Nil(t, f.Predict(makeSamples(10, wavyLoad), 0))
	})
}

func TestForecaster_DetectAnomalies(t *testing.T) {
	f := forecaster.New()

	t.Run("flags spike after window", func(t *testing.T) {
		// gentle alternation keeps the window stdev non-zero
		samples := makeSamples(31, func(i int) float64 {
			if i == 30 {
				return 95.0
			}
			if i%2 == 0 {
				return 48.0
			}
			return 52.0
		})

		flags := f.DetectAnomalies(samples, 20)

		require.Len(t, flags, 31)
		for i := 0; i < 20; i++ {
			assert.False(t, flags[i], "sample %d precedes a full window", i)
		}
		assert.True(t, flags[30])
	})

	t.Run("steady load yields no flags", func(t *testing.T) {
		samples := makeSamples(40, func(i int) float64 {
			if i%2 == 0 {
				return 49.0
			}
			return 51.0
		})

		flags := f.DetectAnomalies(samples, 20)

		for i, flagged := range flags {
			assert.False(t, flagged, "sample %d", i)
		}
	})

	t.Run("short history yields all false", func(t *testing.T) {
		flags := f.DetectAnomalies(makeSamples(10, wavyLoad), 20)

		require.Len(t, flags, 10)
		for _, flagged := range flags {
			assert.False(t, flagged)
		}
	})
}

func TestForecaster_Recommend(t *testing.T) {
	f := forecaster.New()

	tests := []struct {
		name           string
		predictions    []float64
		currentLoad    float64
		expectedAction models.ScalingAction
		expectedConf   float64
	}{
		{
			name:           "high predicted load scales up",
			predictions:    []float64{90, 90, 90, 90, 90},
			currentLoad:    50,
			expectedAction: models.ActionScaleUp,
			expectedConf:   0.5,
		},
		{
			name:           "low predicted load scales down",
			predictions:    []float64{20, 20, 20, 20, 20},
			currentLoad:    25,
			expectedAction: models.ActionScaleDown,
			expectedConf:   0.5,
		},
		{
			name:           "rising trend scales up",
			predictions:    []float64{58, 60, 62, 64, 70},
			currentLoad:    50,
			expectedAction: models.ActionScaleUp,
			expectedConf:   0.7,
		},
		{
			name:           "declining trend scales down",
			predictions:    []float64{46, 44, 42, 40, 32},
			currentLoad:    50,
			expectedAction: models.ActionScaleDown,
			expectedConf:   0.6,
		},
		{
			name:           "stable load maintains",
			predictions:    []float64{50, 51, 49, 50, 50},
			currentLoad:    50,
			expectedAction: models.ActionMaintain,
			expectedConf:   0.8,
		},
		{
			name:           "no predictions maintains at half confidence",
			predictions:    nil,
			currentLoad:    50,
			expectedAction: models.ActionMaintain,
			expectedConf:   0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.Recommend(tt.predictions, tt.currentLoad)

			assert.Equal(t, tt.expectedAction, rec.Action)
			assert.InDelta(t, tt.expectedConf, rec.Confidence, 0.001)
			assert.NotEmpty(t, rec.Reason)
		})
	}

	t.Run("reports predicted load stats", func(t *testing.T) {
		rec := f.Recommend([]float64{80, 90, 100}, 70)

		assert.InDelta(t, 90.0, rec.PredictedLoad, 0.001)
		assert.Equal(t, 100.0, rec.MaxPredictedLoad)
		assert.InDelta(t, 30.0, rec.Trend, 0.001)
	})
}

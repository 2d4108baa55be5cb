package forecaster

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/capacitylab/fleet-advisor/pkg/models"
)

var baseFeatures = []string{
	"hour", "minute", "day_of_week",
	"cpu_percent", "memory_percent", "response_time_ms",
}

var (
	lagSteps       = []int{1, 2, 3}
	rollingWindows = []int{3, 5}
)

const (
	minTrainingSamples = 10
	minCompleteRows    = 5
)

// prepare builds the training matrix. Base time and load features are
// always present; each lag and rolling-mean feature is included only when
// enough history survives its shift or window, and the surviving set
// becomes the feature schema for the training pass. Returns empty slices
// when fewer than minTrainingSamples samples or minCompleteRows complete
// rows remain.
func prepare(samples []models.MetricSample) (features [][]float64, targets []float64, schema []string) {
	if len(samples) < minTrainingSamples {
		return nil, nil, nil
	}

	schema = append(schema, baseFeatures...)

	var lags, windows []int
	for _, lag := range lagSteps {
		if len(samples) > lag+5 {
			lags = append(lags, lag)
			schema = append(schema, fmt.Sprintf("load_score_lag_%d", lag))
		}
	}
	for _, window := range rollingWindows {
		if len(samples) > window+5 {
			windows = append(windows, window)
			schema = append(schema, fmt.Sprintf("load_score_rolling_%d", window))
		}
	}

	// Rows that cannot provide every chosen lag/rolling value are dropped.
	firstComplete := 0
	for _, lag := range lags {
		if lag > firstComplete {
			firstComplete = lag
		}
	}
	for _, window := range windows {
		if window-1 > firstComplete {
			firstComplete = window - 1
		}
	}

	if len(samples)-firstComplete < minCompleteRows {
		return nil, nil, nil
	}

	for i := firstComplete; i < len(samples); i++ {
		row := make([]float64, 0, len(schema))
		for _, name := range schema {
			row = append(row, featureValue(samples, i, name))
		}
		features = append(features, row)
		targets = append(targets, samples[i].LoadScore)
	}

	return features, targets, schema
}

// inferenceRow rebuilds the pinned schema against a sliding window and
// returns the most recent complete row. A feature the window is too short
// to provide contributes 0, mirroring training-time semantics where the
// schema is fixed and never silently reshaped.
func inferenceRow(window []models.MetricSample, schema []string) []float64 {
	last := len(window) - 1
	row := make([]float64, len(schema))
	for i, name := range schema {
		if !featureAvailable(window, name) {
			row[i] = 0
			continue
		}
		row[i] = featureValue(window, last, name)
	}
	return row
}

func featureAvailable(window []models.MetricSample, name string) bool {
	switch {
	case strings.HasPrefix(name, "load_score_lag_"):
		lag := parseSuffix(name)
		return len(window) > lag
	case strings.HasPrefix(name, "load_score_rolling_"):
		w := parseSuffix(name)
		return len(window) > w
	default:
		return len(window) > 0
	}
}

func featureValue(samples []models.MetricSample, i int, name string) float64 {
	switch name {
	case "hour":
		return float64(samples[i].Timestamp.Hour())
	case "minute":
		return float64(samples[i].Timestamp.Minute())
	case "day_of_week":
		return float64(samples[i].Timestamp.Weekday())
	case "cpu_percent":
		return samples[i].CPUPercent
	case "memory_percent":
		return samples[i].MemoryPercent
	case "response_time_ms":
		return samples[i].ResponseTimeMs
	}

	switch {
	case strings.HasPrefix(name, "load_score_lag_"):
		lag := parseSuffix(name)
		if i-lag < 0 {
			return math.NaN()
		}
		return samples[i-lag].LoadScore
	case strings.HasPrefix(name, "load_score_rolling_"):
		w := parseSuffix(name)
		if i-w+1 < 0 {
			return math.NaN()
		}
		var sum float64
		for j := i - w + 1; j <= i; j++ {
			sum += samples[j].LoadScore
		}
		return sum / float64(w)
	}

	return 0
}

func parseSuffix(name string) int {
	idx := strings.LastIndex(name, "_")
	n, _ := strconv.Atoi(name[idx+1:])
	return n
}

package forecaster

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/capacitylab/fleet-advisor/internal/logger"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

const (
	defaultAnomalyWindow  = 20
	anomalyThreshold      = 2.0
	predictionWindowSize  = 15
	minPredictionSamples  = 5
	trendFallbackSamples  = 10
	defaultLoadScore      = 50.0
	syntheticStepInterval = time.Minute
)

// Forecaster trains a linear demand model over recent samples and produces
// multi-step load forecasts, anomaly flags and a directional scaling
// recommendation. Train replaces the model wholesale and is exclusive with
// concurrent Predict calls; Predict is read-only.
type Forecaster struct {
	mu     sync.RWMutex
	model  *linearModel
	scaler *minMaxScaler
	schema []string
}

func New() *Forecaster {
	return &Forecaster{}
}

func (f *Forecaster) Trained() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.model != nil
}

// Train fits the model over samples. Returns false when there is too
// little data or the fit fails numerically; in either case a previously
// trained model is retained unchanged.
func (f *Forecaster) Train(samples []models.MetricSample) bool {
	features, targets, schema := prepare(samples)
	if len(features) == 0 {
		logger.WithComponent("forecaster").Debugf(
			"Training skipped: %d samples yield no complete rows", len(samples),
		)
		return false
	}

	scaler := fitScaler(features)
	scaled := make([][]float64, len(features))
	for i, row := range features {
		scaled[i] = scaler.transform(row)
	}

	model, err := fitLinear(scaled, targets)
	if err != nil {
		logger.WithComponent("forecaster").Warnf("Training failed: %v", err)
		return false
	}

	var mse float64
	for i, row := range scaled {
		diff := model.predict(row) - targets[i]
		mse += diff * diff
	}
	mse /= float64(len(scaled))

	f.mu.Lock()
	f.model = model
	f.scaler = scaler
	f.schema = schema
	f.mu.Unlock()

	logger.WithComponent("forecaster").Infof(
		"Model trained on %d rows with %d features, MSE: %.2f",
		len(scaled), len(schema), mse,
	)
	return true
}

// Predict returns horizon load forecasts in [0,100]. An untrained model or
// fewer than minPredictionSamples recent samples yields the last observed
// load repeated for the whole horizon; that is a declared fallback, not a
// forecast. Otherwise each step predicts against a sliding window of the
// most recent samples and extends it with a synthetic sample so later
// steps see the projected trajectory.
func (f *Forecaster) Predict(recent []models.MetricSample, horizon int) []float64 {
	if horizon <= 0 {
		return nil
	}

	f.mu.RLock()
	model, scaler, schema := f.model, f.scaler, f.schema
	f.mu.RUnlock()

	if model == nil || len(recent) < minPredictionSamples {
		current := defaultLoadScore
		if len(recent) > 0 {
			current = recent[len(recent)-1].LoadScore
		}
		return repeat(current, horizon)
	}

	start := len(recent) - predictionWindowSize
	if start < 0 {
		start = 0
	}
	window := make([]models.MetricSample, len(recent)-start)
	copy(window, recent[start:])

	currentLoad := recent[len(recent)-1].LoadScore
	predictions := make([]float64, 0, horizon)
	failures := 0

	for step := 0; step < horizon; step++ {
		prediction, err := f.predictStep(window, model, scaler, schema)
		if err != nil {
			// A failed step degrades to the current load; the horizon
			// is never cut short.
			logger.WithComponent("forecaster").Debugf("Prediction step %d failed: %v", step, err)
			predictions = append(predictions, currentLoad)
			failures++
			continue
		}

		predictions = append(predictions, prediction)
		window = append(window, syntheticSample(window[len(window)-1], prediction))
		if len(window) > predictionWindowSize {
			window = window[1:]
		}
	}

	if failures == horizon {
		return f.trendFallback(recent, horizon)
	}

	return predictions
}

func (f *Forecaster) predictStep(
	window []models.MetricSample,
	model *linearModel,
	scaler *minMaxScaler,
	schema []string,
) (float64, error) {
	if len(window) == 0 {
		return 0, fmt.Errorf("empty prediction window")
	}

	row := inferenceRow(window, schema)
	if len(row) != len(scaler.mins) {
		return 0, fmt.Errorf("feature row has %d values, scaler expects %d", len(row), len(scaler.mins))
	}

	prediction := model.predict(scaler.transform(row))
	if math.IsNaN(prediction) || math.IsInf(prediction, 0) {
		return 0, fmt.Errorf("non-finite prediction")
	}

	return clampLoad(prediction), nil
}

// syntheticSample extrapolates a plausible next observation from a
// predicted load so multi-step forecasting has a window to slide over.
func syntheticSample(last models.MetricSample, predictedLoad float64) models.MetricSample {
	loadFactor := predictedLoad / 100

	next := last
	next.Timestamp = last.Timestamp.Add(syntheticStepInterval)
	next.LoadScore = predictedLoad
	next.CPUPercent = math.Min(100, loadFactor*80)
	next.MemoryPercent = math.Min(100, loadFactor*70)
	next.ResponseTimeMs = 50 + loadFactor*150
	return next
}

// trendFallback linearly extends the recent trend when model-based
// prediction fails outright.
func (f *Forecaster) trendFallback(recent []models.MetricSample, horizon int) []float64 {
	if len(recent) < 2 {
		return repeat(defaultLoadScore, horizon)
	}

	start := len(recent) - trendFallbackSamples
	if start < 0 {
		start = 0
	}
	loads := recent[start:]
	trend := (loads[len(loads)-1].LoadScore - loads[0].LoadScore) / float64(len(loads))

	current := loads[len(loads)-1].LoadScore
	predictions := make([]float64, horizon)
	for i := range predictions {
		predictions[i] = clampLoad(current + trend*float64(i+1))
	}
	return predictions
}

// DetectAnomalies flags samples whose load deviates from the trailing
// window's mean by more than anomalyThreshold standard deviations. The
// result always has one flag per sample; the first windowSize entries are
// false because no full window precedes them.
func (f *Forecaster) DetectAnomalies(samples []models.MetricSample, windowSize int) []bool {
	if windowSize <= 0 {
		windowSize = defaultAnomalyWindow
	}

	flags := make([]bool, len(samples))
	if len(samples) < windowSize {
		return flags
	}

	for i := windowSize; i < len(samples); i++ {
		var sum float64
		for j := i - windowSize; j < i; j++ {
			sum += samples[j].LoadScore
		}
		mean := sum / float64(windowSize)

		var variance float64
		for j := i - windowSize; j < i; j++ {
			diff := samples[j].LoadScore - mean
			variance += diff * diff
		}
		stdev := math.Sqrt(variance / float64(windowSize))
		if stdev == 0 {
			continue
		}

		if math.Abs(samples[i].LoadScore-mean)/stdev > anomalyThreshold {
			flags[i] = true
		}
	}

	return flags
}

// Recommend derives a directional recommendation from a forecast. The
// ladder is fixed priority: predicted overload first, sustained low load
// second, then short-term trend, then maintain.
func (f *Forecaster) Recommend(predictions []float64, currentLoad float64) models.Recommendation {
	if len(predictions) == 0 {
		return models.Recommendation{
			Action:     models.ActionMaintain,
			Confidence: 0.5,
			Reason:     "No predictions available",
		}
	}

	var sum, maxPredicted float64
	for _, p := range predictions {
		sum += p
		if p > maxPredicted {
			maxPredicted = p
		}
	}
	avgPredicted := sum / float64(len(predictions))
	trend := predictions[len(predictions)-1] - currentLoad

	rec := models.Recommendation{
		PredictedLoad:    avgPredicted,
		MaxPredictedLoad: maxPredicted,
		Trend:            trend,
	}

	switch {
	case maxPredicted > 80:
		rec.Action = models.ActionScaleUp
		rec.Confidence = math.Min(0.9, (maxPredicted-80)/20)
		rec.Reason = fmt.Sprintf("High load predicted: %.1f%%", maxPredicted)
	case avgPredicted < 30 && currentLoad < 40:
		rec.Action = models.ActionScaleDown
		rec.Confidence = math.Min(0.8, (40-avgPredicted)/40)
		rec.Reason = fmt.Sprintf("Low load predicted: %.1f%%", avgPredicted)
	case trend > 15:
		rec.Action = models.ActionScaleUp
		rec.Confidence = 0.7
		rec.Reason = fmt.Sprintf("Rising trend detected: +%.1f%%", trend)
	case trend < -15:
		rec.Action = models.ActionScaleDown
		rec.Confidence = 0.6
		rec.Reason = fmt.Sprintf("Declining trend detected: %.1f%%", trend)
	default:
		rec.Action = models.ActionMaintain
		rec.Confidence = 0.8
		rec.Reason = fmt.Sprintf("Stable load predicted: %.1f%%", avgPredicted)
	}

	return rec
}

func clampLoad(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

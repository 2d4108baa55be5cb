// Package orchestrator drives the advisor pipeline: a sampling loop feeding
// the telemetry store and a decision loop running forecast, recommendation,
// policy gating and execution on a fixed cadence.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/capacitylab/fleet-advisor/internal/decision"
	"github.com/capacitylab/fleet-advisor/internal/events"
	"github.com/capacitylab/fleet-advisor/internal/forecaster"
	"github.com/capacitylab/fleet-advisor/internal/lifecycle"
	"github.com/capacitylab/fleet-advisor/internal/logger"
	"github.com/capacitylab/fleet-advisor/internal/metrics"
	"github.com/capacitylab/fleet-advisor/internal/telemetry"
	"github.com/capacitylab/fleet-advisor/pkg/config"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

// ErrInsufficientSamples is returned by RunCycle when fewer than the
// minimum number of samples are available to forecast from.
var ErrInsufficientSamples = errors.New("not enough samples to run a decision cycle")

const minCycleSamples = 5

// instanceHourlyCost mirrors the flat rate used by the decision engine.
const instanceHourlyCost = 0.10

type Orchestrator struct {
	cfg        *config.Config
	source     telemetry.Source
	store      *telemetry.Store
	forecaster *forecaster.Forecaster
	engine     *decision.Engine
	manager    *lifecycle.Manager
	publisher  *events.Publisher
	log        *logrus.Entry

	cycleMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type Config struct {
	Config     *config.Config
	Source     telemetry.Source
	Store      *telemetry.Store
	Forecaster *forecaster.Forecaster
	Engine     *decision.Engine
	Manager    *lifecycle.Manager
	Publisher  *events.Publisher
}

func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg.Config,
		source:     cfg.Source,
		store:      cfg.Store,
		forecaster: cfg.Forecaster,
		engine:     cfg.Engine,
		manager:    cfg.Manager,
		publisher:  cfg.Publisher,
		log:        logger.WithComponent("orchestrator"),
	}
}

// Start launches the sampling and decision loops. They run until Stop is
// called or the parent context is cancelled.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)

	o.wg.Add(2)
	go o.samplingLoop(ctx)
	go o.decisionLoop(ctx)

	o.log.Infof("Pipeline started: sampling every %s, deciding every %s",
		o.cfg.Telemetry.Interval, o.cfg.Decision.Interval)
}

// Stop cancels both loops and waits for them to exit.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	o.log.Info("Pipeline stopped")
}

func (o *Orchestrator) samplingLoop(ctx context.Context) {
	defer o.wg.Done()

	// collect immediately so the store is not empty for a full interval
	o.collectSample(ctx)

	ticker := time.NewTicker(o.cfg.Telemetry.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.collectSample(ctx)
		}
	}
}

func (o *Orchestrator) collectSample(ctx context.Context) {
	timeout := o.cfg.Telemetry.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sampleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sample, err := o.source.Sample(sampleCtx)
	if err != nil {
		metrics.SampleFailures.Inc()
		o.log.Warnf("Sample collection failed: %v", err)
		o.publisher.Error("Sample collection failed", err)
		return
	}

	o.store.Add(*sample)
	metrics.RecordSample(sample)
	o.publisher.SampleCollected(sample)
}

func (o *Orchestrator) decisionLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.Decision.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := o.RunCycle(ctx); err != nil && !errors.Is(err, ErrInsufficientSamples) {
				o.log.Errorf("Decision cycle failed: %v", err)
			}
		}
	}
}

// RunCycle executes one full decision pass: forecast, anomaly scan,
// recommendation, policy gating, and execution when the gated decision is
// actionable. It is safe to call concurrently with the background loops;
// cycles are serialized.
func (o *Orchestrator) RunCycle(ctx context.Context) (*models.ScalingDecision, *models.ExecutionResult, error) {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	recent := o.store.Recent(o.cfg.Decision.RecentSamples)
	if len(recent) < minCycleSamples {
		o.log.Debugf("Skipping cycle: %d samples available, need %d",
			len(recent), minCycleSamples)
		return nil, nil, ErrInsufficientSamples
	}

	if !o.forecaster.Trained() {
		if o.forecaster.Train(o.store.Recent(o.store.Len())) {
			metrics.ModelTrained.Set(1)
		}
	}

	predictions := o.forecaster.Predict(recent, o.cfg.Forecast.Horizon)
	metrics.ForecastsGenerated.Inc()

	flags := o.forecaster.DetectAnomalies(recent, o.cfg.Forecast.AnomalyWindow)
	if len(flags) > 0 && flags[len(flags)-1] {
		metrics.AnomaliesDetected.Inc()
		last := recent[len(recent)-1]
		o.publisher.AnomalyDetected(&last)
	}

	currentLoad := recent[len(recent)-1].LoadScore
	rec := o.forecaster.Recommend(predictions, currentLoad)
	o.publisher.ForecastGenerated(predictions, &rec)

	state := o.manager.State()
	history := o.manager.History(o.cfg.Decision.HistoryLimit)
	dec := o.engine.Decide(state, rec, history)

	metrics.DecisionsTotal.WithLabelValues(string(dec.Action)).Inc()
	o.publisher.DecisionMade(dec)
	o.log.Infof("Decision: %s (confidence %.2f) %s", dec.Action, dec.Confidence, dec.Reason)

	if !dec.ShouldExecute() {
		return dec, nil, nil
	}

	o.publisher.ExecutionStarted(dec)
	result := o.manager.Execute(ctx, dec)
	o.recordExecution(result)

	return dec, result, nil
}

func (o *Orchestrator) recordExecution(result *models.ExecutionResult) {
	metrics.RecordExecution(result)

	state := o.manager.State()
	metrics.CurrentInstances.Set(float64(state.Instances))
	metrics.HourlyCost.Set(float64(state.Instances) * instanceHourlyCost)

	if result.Failed() {
		o.publisher.ExecutionFailed(result)
	} else {
		o.publisher.ExecutionCompleted(result)
	}
}

// Forecast produces an on-demand forecast and recommendation without
// gating or execution. Serves the read-only forecast endpoint.
func (o *Orchestrator) Forecast() ([]float64, []bool, models.Recommendation, error) {
	recent := o.store.Recent(o.cfg.Decision.RecentSamples)
	if len(recent) < minCycleSamples {
		return nil, nil, models.Recommendation{}, ErrInsufficientSamples
	}

	predictions := o.forecaster.Predict(recent, o.cfg.Forecast.Horizon)
	anomalies := o.forecaster.DetectAnomalies(recent, o.cfg.Forecast.AnomalyWindow)
	currentLoad := recent[len(recent)-1].LoadScore
	rec := o.forecaster.Recommend(predictions, currentLoad)
	return predictions, anomalies, rec, nil
}

// Rollback reverts the most recent scaling event through the lifecycle
// manager and publishes the outcome.
func (o *Orchestrator) Rollback(ctx context.Context) (*models.ExecutionResult, error) {
	result, err := o.manager.Rollback(ctx)
	if err != nil {
		return nil, err
	}

	o.publisher.RollbackPerformed(result)
	metrics.RecordExecution(result)

	state := o.manager.State()
	metrics.CurrentInstances.Set(float64(state.Instances))
	metrics.HourlyCost.Set(float64(state.Instances) * instanceHourlyCost)
	return result, nil
}

func (o *Orchestrator) RecentSamples(n int) []models.MetricSample {
	return o.store.Recent(n)
}

func (o *Orchestrator) LatestSample() (models.MetricSample, bool) {
	return o.store.Latest()
}

func (o *Orchestrator) Summary(n int) models.SampleSummary {
	return o.store.Summary(n)
}

func (o *Orchestrator) Snapshot(ctx context.Context) models.StateSnapshot {
	return o.manager.Snapshot(ctx)
}

func (o *Orchestrator) History(limit int) []models.ScalingEvent {
	return o.manager.History(limit)
}

func (o *Orchestrator) Policy() config.Policy {
	return o.engine.Policy()
}

func (o *Orchestrator) ModelTrained() bool {
	return o.forecaster.Trained()
}

package decision

import (
	"fmt"
	"math"
	"time"

	"github.com/capacitylab/fleet-advisor/internal/logger"
	"github.com/capacitylab/fleet-advisor/pkg/config"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

const (
	costPerInstanceHour = 0.10
	hoursPerDay         = 24
	hoursPerMonth       = 720

	// Per-instance sizing baselines; each grows with predicted load.
	baseCPUPerInstance     = 2.0
	baseMemoryPerInstance  = 4.0
	baseStoragePerInstance = 20.0

	cooldownScanLimit = 10
)

// Engine converts a recommendation into a bounded scaling decision. It
// holds only the loaded policy; Decide is a pure function of its inputs,
// so the engine is safe for concurrent use.
type Engine struct {
	policy config.Policy
}

func NewEngine(policy config.Policy) *Engine {
	if policy.MinInstances == 0 {
		policy.MinInstances = 1
	}
	if policy.MaxInstances == 0 {
		policy.MaxInstances = 10
	}
	if policy.ScaleUpCooldown == 0 {
		policy.ScaleUpCooldown = 300
	}
	if policy.ScaleDownCooldown == 0 {
		policy.ScaleDownCooldown = 600
	}
	if policy.ConfidenceThreshold == 0 {
		policy.ConfidenceThreshold = 0.6
	}
	if policy.ResourceLimits.CPUCores == 0 {
		policy.ResourceLimits.CPUCores = 16
	}
	if policy.ResourceLimits.MemoryGB == 0 {
		policy.ResourceLimits.MemoryGB = 32
	}
	if policy.ResourceLimits.StorageGB == 0 {
		policy.ResourceLimits.StorageGB = 500
	}

	return &Engine{policy: policy}
}

func (e *Engine) Policy() config.Policy {
	return e.policy
}

// Decide applies the cooldown, confidence and capacity gates to a
// recommendation against a state snapshot. The returned action is derived
// from comparing the clamped target to the current instance count, so it
// is authoritative and may differ from the recommendation after gating.
// history carries recent scaling events, newest last.
func (e *Engine) Decide(
	state models.ResourceState,
	rec models.Recommendation,
	history []models.ScalingEvent,
) *models.ScalingDecision {
	decision := &models.ScalingDecision{
		ID:               models.NewUUID(),
		Timestamp:        time.Now(),
		CurrentInstances: state.Instances,
		CurrentResources: state.Resources,
		PredictedLoad:    rec.PredictedLoad,
		MaxPredictedLoad: rec.MaxPredictedLoad,
	}

	if veto, reason, remaining := e.checkCooldown(history); veto {
		decision.Action = models.ActionMaintain
		decision.Reason = "Cooldown active: " + reason
		decision.Confidence = 1.0
		decision.RecommendedInstances = state.Instances
		decision.RecommendedResources = state.Resources
		decision.CooldownRemaining = remaining
		decision.CostImpact = costImpact(state.Instances, state.Instances)
		logger.WithComponent("decision").Debugf("Decision: maintain (%s, %.0fs remaining)", reason, remaining)
		return decision
	}

	if rec.Confidence < e.policy.ConfidenceThreshold {
		decision.Action = models.ActionMaintain
		decision.Reason = fmt.Sprintf("Low confidence: %.2f", rec.Confidence)
		decision.Confidence = rec.Confidence
		decision.RecommendedInstances = state.Instances
		decision.RecommendedResources = state.Resources
		decision.CostImpact = costImpact(state.Instances, state.Instances)
		logger.WithComponent("decision").Debugf("Decision: maintain (confidence %.2f below threshold)", rec.Confidence)
		return decision
	}

	target := e.targetInstances(state.Instances, rec)
	target = clampInt(target, e.policy.MinInstances, e.policy.MaxInstances)

	decision.Confidence = rec.Confidence
	decision.RecommendedInstances = target
	decision.RecommendedResources = e.resourceAllocation(target, rec.MaxPredictedLoad)
	decision.CostImpact = costImpact(state.Instances, target)

	switch {
	case target > state.Instances:
		decision.Action = models.ActionScaleUp
		decision.Reason = fmt.Sprintf("Scaling up from %d to %d instances: %s", state.Instances, target, rec.Reason)
	case target < state.Instances:
		decision.Action = models.ActionScaleDown
		decision.Reason = fmt.Sprintf("Scaling down from %d to %d instances: %s", state.Instances, target, rec.Reason)
	default:
		decision.Action = models.ActionMaintain
		decision.Reason = fmt.Sprintf("Maintaining %d instances: %s", state.Instances, rec.Reason)
	}

	logger.WithComponent("decision").Infof(
		"Decision: %s %d -> %d instances (confidence %.2f)",
		decision.Action, state.Instances, target, decision.Confidence,
	)

	return decision
}

// checkCooldown scans recent scaling events newest-first; the first
// scale-up or scale-down inside its cooldown window vetoes the decision.
func (e *Engine) checkCooldown(history []models.ScalingEvent) (veto bool, reason string, remaining float64) {
	if len(history) == 0 {
		return false, "", 0
	}

	start := len(history) - cooldownScanLimit
	if start < 0 {
		start = 0
	}
	now := time.Now()

	for i := len(history) - 1; i >= start; i-- {
		event := history[i]
		elapsed := now.Sub(event.Timestamp).Seconds()

		switch event.Action {
		case models.ActionScaleUp:
			if elapsed < float64(e.policy.ScaleUpCooldown) {
				return true, "Scale-up cooldown active", float64(e.policy.ScaleUpCooldown) - elapsed
			}
		case models.ActionScaleDown:
			if elapsed < float64(e.policy.ScaleDownCooldown) {
				return true, "Scale-down cooldown active", float64(e.policy.ScaleDownCooldown) - elapsed
			}
		}
	}

	return false, "", 0
}

func (e *Engine) targetInstances(current int, rec models.Recommendation) int {
	switch rec.Action {
	case models.ActionScaleUp:
		additional := int(rec.MaxPredictedLoad / 100 * 2)
		if additional < 1 {
			additional = 1
		}
		return current + additional
	case models.ActionScaleDown:
		switch {
		case rec.MaxPredictedLoad < 20:
			return maxInt(e.policy.MinInstances, current-2)
		case rec.MaxPredictedLoad < 40:
			return maxInt(e.policy.MinInstances, current-1)
		default:
			return current
		}
	default:
		return current
	}
}

// resourceAllocation sizes each instance from the predicted load and caps
// the totals at the configured ceilings.
func (e *Engine) resourceAllocation(instances int, maxPredictedLoad float64) models.ResourceAllocation {
	loadFactor := maxPredictedLoad / 100

	cpuPer := baseCPUPerInstance + loadFactor*2
	memPer := baseMemoryPerInstance + loadFactor*4
	storagePer := baseStoragePerInstance + loadFactor*10

	n := float64(instances)
	return models.ResourceAllocation{
		TotalCPUCores:      math.Min(e.policy.ResourceLimits.CPUCores, n*cpuPer),
		TotalMemoryGB:      math.Min(e.policy.ResourceLimits.MemoryGB, n*memPer),
		TotalStorageGB:     math.Min(e.policy.ResourceLimits.StorageGB, n*storagePer),
		CPUPerInstance:     cpuPer,
		MemoryPerInstance:  memPer,
		StoragePerInstance: storagePer,
	}
}

func costImpact(current, target int) models.CostImpact {
	currentCost := float64(current) * costPerInstanceHour
	targetCost := float64(target) * costPerInstanceHour
	change := targetCost - currentCost

	return models.CostImpact{
		CurrentHourlyCost: models.Round2(currentCost),
		TargetHourlyCost:  models.Round2(targetCost),
		HourlyCostChange:  models.Round2(change),
		DailyCostChange:   models.Round2(change * hoursPerDay),
		MonthlyCostChange: models.Round2(change * hoursPerMonth),
	}
}

// EvaluateEffectiveness scores a past decision against samples observed
// after it executed: half prediction accuracy, half a fixed
// appropriateness table keyed by action and the realized load.
func (e *Engine) EvaluateEffectiveness(
	decision *models.ScalingDecision,
	actual []models.MetricSample,
) models.EffectivenessReport {
	if len(actual) == 0 {
		return models.EffectivenessReport{Effectiveness: "unknown", Score: 0.5}
	}

	var sum float64
	for _, sample := range actual {
		sum += sample.LoadScore
	}
	actualAvg := sum / float64(len(actual))

	predictionError := math.Abs(decision.PredictedLoad - actualAvg)
	accuracy := math.Max(0, 1-predictionError/100)

	appropriateness := 0.5
	switch decision.Action {
	case models.ActionScaleUp:
		switch {
		case actualAvg > 70:
			appropriateness = 0.9
		case actualAvg > 50:
			appropriateness = 0.7
		default:
			appropriateness = 0.3
		}
	case models.ActionScaleDown:
		switch {
		case actualAvg < 30:
			appropriateness = 0.9
		case actualAvg < 50:
			appropriateness = 0.7
		default:
			appropriateness = 0.3
		}
	case models.ActionMaintain:
		if actualAvg >= 30 && actualAvg <= 70 {
			appropriateness = 0.8
		} else {
			appropriateness = 0.4
		}
	}

	score := (accuracy + appropriateness) / 2

	var label string
	switch {
	case score > 0.8:
		label = "excellent"
	case score > 0.6:
		label = "good"
	case score > 0.4:
		label = "fair"
	default:
		label = "poor"
	}

	return models.EffectivenessReport{
		Effectiveness:           label,
		Score:                   models.Round2(score),
		PredictionAccuracy:      models.Round2(accuracy),
		DecisionAppropriateness: models.Round2(appropriateness),
		PredictedLoad:           decision.PredictedLoad,
		ActualAvgLoad:           models.Round2(actualAvg),
		PredictionError:         models.Round2(predictionError),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

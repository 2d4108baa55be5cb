package decision_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capacitylab/fleet-advisor/internal/decision"
	"github.com/capacitylab/fleet-advisor/pkg/config"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

func newTestEngine() *decision.Engine {
	return decision.NewEngine(config.Policy{
		MinInstances:        1,
		MaxInstances:        10,
		ScaleUpCooldown:     300,
		ScaleDownCooldown:   600,
		ConfidenceThreshold: 0.6,
		ResourceLimits: config.ResourceLimits{
			CPUCores:  16,
			MemoryGB:  32,
			StorageGB: 500,
		},
	})
}

func testState(instances int) models.ResourceState {
	return models.ResourceState{
		Instances: instances,
		Status:    models.StatusActive,
		Resources: models.ResourceAllocation{
			TotalCPUCores:  float64(instances) * 2,
			TotalMemoryGB:  float64(instances) * 4,
			TotalStorageGB: float64(instances) * 20,
		},
	}
}

func scaleUpRec(maxPredicted, confidence float64) models.Recommendation {
	return models.Recommendation{
		Action:           models.ActionScaleUp,
		Confidence:       confidence,
		Reason:           "High load predicted",
		PredictedLoad:    maxPredicted - 5,
		MaxPredictedLoad: maxPredicted,
	}
}

func TestEngine_Decide_ScaleUp(t *testing.T) {
	e := newTestEngine()

	dec := e.Decide(testState(2), scaleUpRec(90, 0.8), nil)

	assert.Equal(t, models.ActionScaleUp, dec.Action)
	assert.Equal(t, 2, dec.CurrentInstances)
	// 90% predicted adds one instance (int(90/100*2) == 1)
	assert.Equal(t, 3, dec.RecommendedInstances)
	assert.Equal(t, 0.8, dec.Confidence)
	assert.Contains(t, dec.Reason, "Scaling up from 2 to 3")
	assert.True(t, dec.ShouldExecute())
}

func TestEngine_Decide_ConfidenceGate(t *testing.T) {
	e := newTestEngine()

	dec := e.Decide(testState(2), scaleUpRec(90, 0.4), nil)

	assert.Equal(t, models.ActionMaintain, dec.Action)
	assert.Equal(t, 2, dec.RecommendedInstances)
	assert.Equal(t, 0.4, dec.Confidence)
	assert.Contains(t, dec.Reason, "Low confidence: 0.40")
	assert.False(t, dec.ShouldExecute())
}

func TestEngine_Decide_CooldownGate(t *testing.T) {
	e := newTestEngine()

	t.Run("recent scale-up vetoes", func(t *testing.T) {
		history := []models.ScalingEvent{{
			Timestamp: time.Now().Add(-60 * time.Second),
			Action:    models.ActionScaleUp,
		}}

		dec := e.Decide(testState(3), scaleUpRec(90, 0.9), history)

		assert.Equal(t, models.ActionMaintain, dec.Action)
		assert.Contains(t, dec.Reason, "Scale-up cooldown active")
		assert.Equal(t, 1.0, dec.Confidence)
		assert.InDelta(t, 240, dec.CooldownRemaining, 2)
	})

	t.Run("expired cooldown does not veto", func(t *testing.T) {
		history := []models.ScalingEvent{{
			Timestamp: time.Now().Add(-400 * time.Second),
			Action:    models.ActionScaleUp,
		}}

		dec := e.Decide(testState(3), scaleUpRec(90, 0.9), history)

		assert.Equal(t, models.ActionScaleUp, dec.Action)
	})

	t.Run("maintain events never veto", func(t *testing.T) {
		history := []models.ScalingEvent{{
			Timestamp: time.Now().Add(-10 * time.Second),
			Action:    models.ActionMaintain,
		}}

		dec := e.Decide(testState(3), scaleUpRec(90, 0.9), history)

		assert.Equal(t, models.ActionScaleUp, dec.Action)
	})

	t.Run("scale-down cooldown is longer", func(t *testing.T) {
		history := []models.ScalingEvent{{
			Timestamp: time.Now().Add(-400 * time.Second),
			Action:    models.ActionScaleDown,
		}}

		dec := e.Decide(testState(3), scaleUpRec(90, 0.9), history)

		assert.Equal(t, models.ActionMaintain, dec.Action)
		assert.Contains(t, dec.Reason, "Scale-down cooldown active")
	})
}

func TestEngine_Decide_CapacityClamp(t *testing.T) {
	t.Run("target clamped at max instances", func(t *testing.T) {
		e := decision.NewEngine(config.Policy{
			MinInstances:        1,
			MaxInstances:        3,
			ConfidenceThreshold: 0.6,
		})

		dec := e.Decide(testState(3), scaleUpRec(95, 0.9), nil)

		assert.Equal(t, models.ActionMaintain, dec.Action)
		assert.Equal(t, 3, dec.RecommendedInstances)
	})

	t.Run("scale down floored at min instances", func(t *testing.T) {
		e := newTestEngine()
		rec := models.Recommendation{
			Action:           models.ActionScaleDown,
			Confidence:       0.8,
			Reason:           "Low load predicted",
			PredictedLoad:    15,
			MaxPredictedLoad: 18,
		}

		dec := e.Decide(testState(2), rec, nil)

		// two-instance drop floored at the minimum of one
		assert.Equal(t, models.ActionScaleDown, dec.Action)
		assert.Equal(t, 1, dec.RecommendedInstances)
	})
}

func TestEngine_Decide_CostImpact(t *testing.T) {
	e := newTestEngine()

	dec := e.Decide(testState(2), scaleUpRec(90, 0.8), nil)

	require.Equal(t, 3, dec.RecommendedInstances)
	assert.InDelta(t, 0.20, dec.CostImpact.CurrentHourlyCost, 0.001)
	assert.InDelta(t, 0.30, dec.CostImpact.TargetHourlyCost, 0.001)
	assert.InDelta(t, 0.10, dec.CostImpact.HourlyCostChange, 0.001)
	assert.InDelta(t, 2.40, dec.CostImpact.DailyCostChange, 0.001)
	assert.InDelta(t, 72.0, dec.CostImpact.MonthlyCostChange, 0.001)
}

func TestEngine_Decide_ResourceAllocation(t *testing.T) {
	e := newTestEngine()

	dec := e.Decide(testState(2), scaleUpRec(100, 0.9), nil)

	require.Equal(t, 4, dec.RecommendedInstances)
	// per-instance sizing at full load: 4 cores, 8 GB, 30 GB
	assert.InDelta(t, 4.0, dec.RecommendedResources.CPUPerInstance, 0.001)
	assert.InDelta(t, 8.0, dec.RecommendedResources.MemoryPerInstance, 0.001)
	assert.InDelta(t, 30.0, dec.RecommendedResources.StoragePerInstance, 0.001)
	// totals stay under the policy ceilings
	assert.LessOrEqual(t, dec.RecommendedResources.TotalCPUCores, 16.0)
	assert.LessOrEqual(t, dec.RecommendedResources.TotalMemoryGB, 32.0)
	assert.LessOrEqual(t, dec.RecommendedResources.TotalStorageGB, 500.0)
}

func TestEngine_EvaluateEffectiveness(t *testing.T) {
	e := newTestEngine()

	samplesAt := func(load float64) []models.MetricSample {
		samples := make([]models.MetricSample, 5)
		for i := range samples {
			samples[i] = models.MetricSample{LoadScore: load}
		}
		return samples
	}

	t.Run("accurate scale-up under high load scores excellent", func(t *testing.T) {
		dec := &models.ScalingDecision{
			Action:        models.ActionScaleUp,
			PredictedLoad: 80,
		}

		report := e.EvaluateEffectiveness(dec, samplesAt(78))

		assert.Equal(t, "excellent", report.Effectiveness)
		assert.InDelta(t, 0.9, report.DecisionAppropriateness, 0.001)
		assert.InDelta(t, 0.98, report.PredictionAccuracy, 0.001)
	})

	t.Run("scale-up under light load scores poorly", func(t *testing.T) {
		dec := &models.ScalingDecision{
			Action:        models.ActionScaleUp,
			PredictedLoad: 85,
		}

		report := e.EvaluateEffectiveness(dec, samplesAt(20))

		assert.InDelta(t, 0.3, report.DecisionAppropriateness, 0.001)
		assert.Equal(t, "poor", report.Effectiveness)
	})

	t.Run("no samples is unknown", func(t *testing.T) {
		report := e.EvaluateEffectiveness(&models.ScalingDecision{}, nil)

		assert.Equal(t, "unknown", report.Effectiveness)
		assert.Equal(t, 0.5, report.Score)
	})
}

package models

import "time"

type ScalingAction string

const (
	ActionScaleUp   ScalingAction = "scale_up"
	ActionScaleDown ScalingAction = "scale_down"
	ActionMaintain  ScalingAction = "maintain"
)

// ScalingDecision is the policy-gated, bounded output of the decision
// engine. The action here is authoritative: after cooldown, confidence and
// clamping it may differ from the recommendation that triggered it.
type ScalingDecision struct {
	ID                   string             `json:"id"`
	Timestamp            time.Time          `json:"timestamp"`
	Action               ScalingAction      `json:"action"`
	Reason               string             `json:"reason"`
	Confidence           float64            `json:"confidence"`
	CurrentInstances     int                `json:"current_instances"`
	RecommendedInstances int                `json:"recommended_instances"`
	CurrentResources     ResourceAllocation `json:"current_resources"`
	RecommendedResources ResourceAllocation `json:"recommended_resources"`
	PredictedLoad        float64            `json:"predicted_load"`
	MaxPredictedLoad     float64            `json:"max_predicted_load"`
	CostImpact           CostImpact         `json:"cost_impact"`
	CooldownRemaining    float64            `json:"cooldown_remaining,omitempty"`
}

// CostImpact reports the projected spend change of a decision at the fixed
// per-instance-hour rate.
type CostImpact struct {
	CurrentHourlyCost float64 `json:"current_hourly_cost"`
	TargetHourlyCost  float64 `json:"target_hourly_cost"`
	HourlyCostChange  float64 `json:"hourly_cost_change"`
	DailyCostChange   float64 `json:"daily_cost_change"`
	MonthlyCostChange float64 `json:"monthly_cost_change"`
}

func (d *ScalingDecision) InstanceDelta() int {
	return d.RecommendedInstances - d.CurrentInstances
}

func (d *ScalingDecision) ShouldExecute() bool {
	return d.Action != ActionMaintain
}

// EffectivenessReport scores a past decision against the samples observed
// after it executed.
type EffectivenessReport struct {
	Effectiveness           string  `json:"effectiveness"`
	Score                   float64 `json:"score"`
	PredictionAccuracy      float64 `json:"prediction_accuracy"`
	DecisionAppropriateness float64 `json:"decision_appropriateness"`
	PredictedLoad           float64 `json:"predicted_load"`
	ActualAvgLoad           float64 `json:"actual_avg_load"`
	PredictionError         float64 `json:"prediction_error"`
}

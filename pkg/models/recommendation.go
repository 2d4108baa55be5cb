package models

// Recommendation is the Forecaster's directional advice, derived from a
// multi-step forecast before any policy is applied.
type Recommendation struct {
	Action           ScalingAction `json:"action"`
	Confidence       float64       `json:"confidence"`
	Reason           string        `json:"reason"`
	PredictedLoad    float64       `json:"predicted_load"`
	MaxPredictedLoad float64       `json:"max_predicted_load"`
	Trend            float64       `json:"trend"`
}

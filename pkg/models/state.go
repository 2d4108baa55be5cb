package models

import "time"

// MaxScalingEvents caps the retained scaling history in the state
// document; older events are dropped first.
const MaxScalingEvents = 50

const StatusActive = "active"

// ResourceAllocation describes the fleet's sizing, both in totals and per
// instance.
type ResourceAllocation struct {
	TotalCPUCores      float64 `json:"total_cpu_cores"`
	TotalMemoryGB      float64 `json:"total_memory_gb"`
	TotalStorageGB     float64 `json:"total_storage_gb"`
	CPUPerInstance     float64 `json:"cpu_per_instance"`
	MemoryPerInstance  float64 `json:"memory_per_instance"`
	StoragePerInstance float64 `json:"storage_per_instance"`
}

// ResourceState is the durable fleet state document. The lifecycle manager
// is its only writer; everyone else reads copies.
type ResourceState struct {
	Instances     int                `json:"instances"`
	Resources     ResourceAllocation `json:"resources"`
	Status        string             `json:"status"`
	LastUpdated   time.Time          `json:"last_updated"`
	ScalingEvents []ScalingEvent     `json:"scaling_events"`
}

// ScalingEvent records one completed execution, append-only.
type ScalingEvent struct {
	Timestamp       time.Time     `json:"timestamp"`
	Action          ScalingAction `json:"action"`
	InstancesBefore int           `json:"instances_before"`
	InstancesAfter  int           `json:"instances_after"`
	Reason          string        `json:"reason"`
	ExecutionTime   float64       `json:"execution_time"`
}

// Copy returns a deep copy safe to hand to readers.
func (s *ResourceState) Copy() ResourceState {
	out := *s
	out.ScalingEvents = make([]ScalingEvent, len(s.ScalingEvents))
	copy(out.ScalingEvents, s.ScalingEvents)
	return out
}

// AppendEvent appends a scaling event, evicting the oldest entries beyond
// MaxScalingEvents.
func (s *ResourceState) AppendEvent(event ScalingEvent) {
	s.ScalingEvents = append(s.ScalingEvents, event)
	if len(s.ScalingEvents) > MaxScalingEvents {
		s.ScalingEvents = s.ScalingEvents[len(s.ScalingEvents)-MaxScalingEvents:]
	}
}

// RecentEvents returns up to limit of the newest events in chronological
// order.
func (s *ResourceState) RecentEvents(limit int) []ScalingEvent {
	if limit <= 0 || limit > len(s.ScalingEvents) {
		limit = len(s.ScalingEvents)
	}
	events := make([]ScalingEvent, limit)
	copy(events, s.ScalingEvents[len(s.ScalingEvents)-limit:])
	return events
}

// Utilization is a point-in-time usage snapshot of the fleet's resources.
type Utilization struct {
	CPUUtilizationPercent     float64 `json:"cpu_utilization_percent"`
	MemoryUtilizationPercent  float64 `json:"memory_utilization_percent"`
	StorageUtilizationPercent float64 `json:"storage_utilization_percent"`
	NetworkUtilizationPercent float64 `json:"network_utilization_percent"`
}

// CostEstimate is the running cost of the current fleet size.
type CostEstimate struct {
	HourlyCost      float64 `json:"hourly_cost"`
	DailyCost       float64 `json:"daily_cost"`
	MonthlyCost     float64 `json:"monthly_cost"`
	CostPerInstance float64 `json:"cost_per_instance"`
}

// UptimeReport summarizes execution reliability.
type UptimeReport struct {
	SuccessRatePercent float64 `json:"success_rate_percent"`
	TotalScalingEvents int     `json:"total_scaling_events"`
	FailedEvents       int     `json:"failed_events"`
	CurrentStatus      string  `json:"current_status"`
}

// StateSnapshot is the read view handed to consumers: the durable state
// plus derived metrics.
type StateSnapshot struct {
	ResourceState
	Utilization  Utilization  `json:"utilization"`
	CostEstimate CostEstimate `json:"cost_estimate"`
	Uptime       UptimeReport `json:"uptime"`
}

package models

import "time"

type ExecutionStatus string

const (
	ExecutionStarted   ExecutionStatus = "started"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

type InstanceStatus string

const (
	InstanceActive     InstanceStatus = "active"
	InstanceTerminated InstanceStatus = "terminated"
)

// InstanceDescriptor identifies one provisioned or terminated instance.
type InstanceDescriptor struct {
	ID        string         `json:"id"`
	CPUCores  float64        `json:"cpu_cores,omitempty"`
	MemoryGB  float64        `json:"memory_gb,omitempty"`
	StorageGB float64        `json:"storage_gb,omitempty"`
	Status    InstanceStatus `json:"status"`
}

// ExecutionResult reports one pass through the lifecycle state machine.
// Step failures are collected here; they never escape as errors.
type ExecutionResult struct {
	ID                   string              `json:"id"`
	DecisionID           string              `json:"decision_id"`
	Timestamp            time.Time           `json:"timestamp"`
	Action               ScalingAction       `json:"action"`
	Status               ExecutionStatus     `json:"status"`
	ExecutionTimeSeconds float64             `json:"execution_time_seconds"`
	Errors               []string            `json:"errors"`
	Warnings             []string            `json:"warnings"`
	InstancesAdded       int                 `json:"instances_added,omitempty"`
	InstancesRemoved     int                 `json:"instances_removed,omitempty"`
	InstancesMaintained  int                 `json:"instances_maintained,omitempty"`
	NewTotalInstances    int                 `json:"new_total_instances,omitempty"`
	ProvisionedInstances []InstanceDescriptor `json:"provisioned_instances,omitempty"`
	RemovedInstances     []InstanceDescriptor `json:"removed_instances,omitempty"`
	OptimizationApplied  bool                `json:"optimization_applied,omitempty"`
	ResourceAllocation   *ResourceAllocation `json:"resource_allocation,omitempty"`
}

func (r *ExecutionResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

func (r *ExecutionResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *ExecutionResult) Failed() bool {
	return r.Status == ExecutionFailed
}

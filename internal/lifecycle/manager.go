package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/capacitylab/fleet-advisor/internal/logger"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

var ErrNoEventsToRollback = errors.New("no scaling events to roll back")

const costPerInstanceHour = 0.10

// TelemetryProvider is the read surface the manager uses for live
// utilization, satisfied by telemetry.Store. Optional: when absent the
// manager falls back to direct OS polling.
type TelemetryProvider interface {
	Latest() (models.MetricSample, bool)
	Recent(n int) []models.MetricSample
}

// Manager owns the durable resource state and executes scaling decisions
// through the provisioning state machine. Execute serializes on an
// internal mutex: execution is a read-modify-write over instances,
// resources and the event log, so concurrent calls must not interleave.
type Manager struct {
	mu          sync.Mutex
	state       models.ResourceState
	statePath   string
	provisioner Provisioner
	telemetry   TelemetryProvider

	failedExecutions int
}

type ManagerConfig struct {
	StatePath   string
	Provisioner Provisioner
	Telemetry   TelemetryProvider
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.StatePath == "" {
		cfg.StatePath = "resource_state.json"
	}
	if cfg.Provisioner == nil {
		cfg.Provisioner = NewSimulator(SimulatorConfig{})
	}

	m := &Manager{
		state:       loadState(cfg.StatePath),
		statePath:   cfg.StatePath,
		provisioner: cfg.Provisioner,
		telemetry:   cfg.Telemetry,
	}

	logger.WithComponent("lifecycle").Infof(
		"Resource state loaded: %d instances, %d scaling events",
		m.state.Instances, len(m.state.ScalingEvents),
	)

	return m
}

// Execute runs a decision through the lifecycle state machine. Step
// failures surface as Status == failed with the error captured in the
// result; they never escape as a returned error, and on failure the
// durable state is left untouched. The call blocks until the operation
// finishes; there is no cancellation of an in-flight execution beyond the
// caller's ctx aborting individual steps.
func (m *Manager) Execute(ctx context.Context, decision *models.ScalingDecision) *models.ExecutionResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	started := time.Now()
	result := &models.ExecutionResult{
		ID:         models.NewUUID(),
		DecisionID: decision.ID,
		Timestamp:  started,
		Action:     decision.Action,
		Status:     models.ExecutionStarted,
		Errors:     []string{},
		Warnings:   []string{},
	}

	var err error
	switch decision.Action {
	case models.ActionScaleUp:
		err = m.scaleUp(ctx, decision, result)
	case models.ActionScaleDown:
		err = m.scaleDown(ctx, decision, result)
	case models.ActionMaintain:
		err = m.maintain(ctx, result)
	default:
		err = fmt.Errorf("unknown action %q", decision.Action)
	}

	result.ExecutionTimeSeconds = models.Round2(time.Since(started).Seconds())

	if err != nil {
		result.Status = models.ExecutionFailed
		result.AddError(err.Error())
		m.failedExecutions++
		logger.WithComponent("lifecycle").Errorf("Execution failed: %v", err)
		saveState(m.statePath, &m.state)
		return result
	}

	result.Status = models.ExecutionCompleted
	m.applyResult(decision, result)
	saveState(m.statePath, &m.state)

	logger.WithComponent("lifecycle").Infof(
		"Execution completed: %s in %.2fs", decision.Action, result.ExecutionTimeSeconds,
	)

	return result
}

func (m *Manager) scaleUp(ctx context.Context, decision *models.ScalingDecision, result *models.ExecutionResult) error {
	current := m.state.Instances
	target := decision.RecommendedInstances
	if target <= current {
		return fmt.Errorf("scale_up target %d not above current %d", target, current)
	}

	resources := decision.RecommendedResources
	logger.WithComponent("lifecycle").Infof("Scaling up: adding %d instances", target-current)

	var provisioned []models.InstanceDescriptor
	for i := current; i < target; i++ {
		spec := InstanceSpec{
			ID:        fmt.Sprintf("instance-%d", i+1),
			CPUCores:  resources.CPUPerInstance,
			MemoryGB:  resources.MemoryPerInstance,
			StorageGB: resources.StoragePerInstance,
		}

		descriptor, err := m.provisioner.Provision(ctx, spec)
		if err != nil {
			return err
		}
		provisioned = append(provisioned, descriptor)
	}

	result.InstancesAdded = target - current
	result.NewTotalInstances = target
	result.ProvisionedInstances = provisioned
	result.ResourceAllocation = &resources
	return nil
}

func (m *Manager) scaleDown(ctx context.Context, decision *models.ScalingDecision, result *models.ExecutionResult) error {
	current := m.state.Instances
	target := decision.RecommendedInstances
	if target >= current {
		return fmt.Errorf("scale_down target %d not below current %d", target, current)
	}

	logger.WithComponent("lifecycle").Infof("Scaling down: removing %d instances", current-target)

	// Most recently added instances go first.
	var removed []models.InstanceDescriptor
	for i := current; i > target; i-- {
		descriptor, err := m.provisioner.Deprovision(ctx, fmt.Sprintf("instance-%d", i))
		if err != nil {
			return err
		}
		removed = append(removed, descriptor)
	}

	resources := decision.RecommendedResources
	result.InstancesRemoved = current - target
	result.NewTotalInstances = target
	result.RemovedInstances = removed
	result.ResourceAllocation = &resources
	return nil
}

func (m *Manager) maintain(ctx context.Context, result *models.ExecutionResult) error {
	if err := m.provisioner.Maintain(ctx); err != nil {
		return err
	}

	resources := m.state.Resources
	result.InstancesMaintained = m.state.Instances
	result.OptimizationApplied = true
	result.ResourceAllocation = &resources
	return nil
}

// applyResult commits a completed execution: instances and resources swap
// atomically under the manager lock and exactly one scaling event is
// appended. A maintain pass appends an event with before == after and no
// state change.
func (m *Manager) applyResult(decision *models.ScalingDecision, result *models.ExecutionResult) {
	before := m.state.Instances

	if decision.Action == models.ActionScaleUp || decision.Action == models.ActionScaleDown {
		m.state.Instances = decision.RecommendedInstances
		m.state.Resources = decision.RecommendedResources
	}

	m.state.AppendEvent(models.ScalingEvent{
		Timestamp:       result.Timestamp,
		Action:          decision.Action,
		InstancesBefore: before,
		InstancesAfter:  m.state.Instances,
		Reason:          decision.Reason,
		ExecutionTime:   result.ExecutionTimeSeconds,
	})
}

// State returns a copy of the durable state.
func (m *Manager) State() models.ResourceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Copy()
}

// History returns up to limit of the newest scaling events in
// chronological order.
func (m *Manager) History(limit int) []models.ScalingEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.RecentEvents(limit)
}

// Snapshot combines the durable state with derived utilization, cost and
// uptime metrics. It never fails; every derivation has a fallback.
func (m *Manager) Snapshot(ctx context.Context) models.StateSnapshot {
	m.mu.Lock()
	state := m.state.Copy()
	failed := m.failedExecutions
	m.mu.Unlock()

	return models.StateSnapshot{
		ResourceState: state,
		Utilization:   m.utilization(ctx),
		CostEstimate:  costEstimate(state.Instances),
		Uptime:        uptimeReport(&state, failed),
	}
}

func costEstimate(instances int) models.CostEstimate {
	hourly := float64(instances) * costPerInstanceHour
	return models.CostEstimate{
		HourlyCost:      models.Round2(hourly),
		DailyCost:       models.Round2(hourly * 24),
		MonthlyCost:     models.Round2(hourly * 24 * 30),
		CostPerInstance: costPerInstanceHour,
	}
}

func uptimeReport(state *models.ResourceState, failedExecutions int) models.UptimeReport {
	total := len(state.ScalingEvents)
	successRate := 1.0
	if total > 0 {
		successRate = float64(total-failedExecutions) / float64(total)
		if successRate < 0 {
			successRate = 0
		}
	}

	return models.UptimeReport{
		SuccessRatePercent: models.Round2(successRate * 100),
		TotalScalingEvents: total,
		FailedEvents:       failedExecutions,
		CurrentStatus:      state.Status,
	}
}

// Rollback re-executes toward the instance count preceding the most
// recent scaling event. Per-instance sizing from that point is not
// retained in the event log, so the current allocation is carried
// forward; resource sizing on rollback is best effort.
func (m *Manager) Rollback(ctx context.Context) (*models.ExecutionResult, error) {
	m.mu.Lock()
	if len(m.state.ScalingEvents) == 0 {
		m.mu.Unlock()
		return nil, ErrNoEventsToRollback
	}

	lastEvent := m.state.ScalingEvents[len(m.state.ScalingEvents)-1]
	current := m.state.Instances
	resources := m.state.Resources
	m.mu.Unlock()

	target := lastEvent.InstancesBefore
	action := models.ActionMaintain
	switch {
	case target > current:
		action = models.ActionScaleUp
	case target < current:
		action = models.ActionScaleDown
	}

	perInstance := resources
	decision := &models.ScalingDecision{
		ID:                   models.NewUUID(),
		Timestamp:            time.Now(),
		Action:               action,
		Reason:               fmt.Sprintf("Rollback of %s from %s", lastEvent.Action, lastEvent.Timestamp.Format(time.RFC3339)),
		Confidence:           1.0,
		CurrentInstances:     current,
		RecommendedInstances: target,
		CurrentResources:     resources,
		RecommendedResources: models.ResourceAllocation{
			TotalCPUCores:      perInstance.CPUPerInstance * float64(target),
			TotalMemoryGB:      perInstance.MemoryPerInstance * float64(target),
			TotalStorageGB:     perInstance.StoragePerInstance * float64(target),
			CPUPerInstance:     perInstance.CPUPerInstance,
			MemoryPerInstance:  perInstance.MemoryPerInstance,
			StoragePerInstance: perInstance.StoragePerInstance,
		},
	}

	logger.WithComponent("lifecycle").Infof("Rolling back to %d instances", target)
	return m.Execute(ctx, decision), nil
}

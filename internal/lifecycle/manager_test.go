package lifecycle_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capacitylab/fleet-advisor/internal/lifecycle"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

func fastSimulator() *lifecycle.Simulator {
	return lifecycle.NewSimulator(lifecycle.SimulatorConfig{
		ProvisionStepTime: time.Millisecond,
		ShutdownStepTime:  time.Millisecond,
		MaintainStepTime:  time.Millisecond,
	})
}

func newTestManager(t *testing.T, sim *lifecycle.Simulator) *lifecycle.Manager {
	t.Helper()
	return lifecycle.NewManager(lifecycle.ManagerConfig{
		StatePath:   filepath.Join(t.TempDir(), "state.json"),
		Provisioner: sim,
	})
}

func scalingDecision(action models.ScalingAction, current, target int) *models.ScalingDecision {
	return &models.ScalingDecision{
		ID:                   models.NewUUID(),
		Timestamp:            time.Now(),
		Action:               action,
		Reason:               "test decision",
		Confidence:           0.9,
		CurrentInstances:     current,
		RecommendedInstances: target,
		RecommendedResources: models.ResourceAllocation{
			TotalCPUCores:      float64(target) * 2,
			TotalMemoryGB:      float64(target) * 4,
			TotalStorageGB:     float64(target) * 20,
			CPUPerInstance:     2,
			MemoryPerInstance:  4,
			StoragePerInstance: 20,
		},
	}
}

func TestManager_Execute_ScaleUp(t *testing.T) {
	m := newTestManager(t, fastSimulator())
	require.Equal(t, 1, m.State().Instances)

	result := m.Execute(context.Background(), scalingDecision(models.ActionScaleUp, 1, 3))

	assert.Equal(t, models.ExecutionCompleted, result.Status)
	assert.Equal(t, 2, result.InstancesAdded)
	assert.Equal(t, 3, result.NewTotalInstances)
	require.Len(t, result.ProvisionedInstances, 2)
	assert.Equal(t, "instance-2", result.ProvisionedInstances[0].ID)
	assert.Equal(t, "instance-3", result.ProvisionedInstances[1].ID)

	state := m.State()
	assert.Equal(t, 3, state.Instances)
	require.Len(t, state.ScalingEvents, 1)
	event := state.ScalingEvents[0]
	assert.Equal(t, models.ActionScaleUp, event.Action)
	assert.Equal(t, 1, event.InstancesBefore)
	assert.Equal(t, 3, event.InstancesAfter)
}

func TestManager_Execute_ScaleDown(t *testing.T) {
	m := newTestManager(t, fastSimulator())
	m.Execute(context.Background(), scalingDecision(models.ActionScaleUp, 1, 4))

	result := m.Execute(context.Background(), scalingDecision(models.ActionScaleDown, 4, 2))

	assert.Equal(t, models.ExecutionCompleted, result.Status)
	assert.Equal(t, 2, result.InstancesRemoved)
	assert.Equal(t, 2, m.State().Instances)
	// newest instances drain first
	require.Len(t, result.RemovedInstances, 2)
	assert.Equal(t, "instance-4", result.RemovedInstances[0].ID)
	assert.Equal(t, "instance-3", result.RemovedInstances[1].ID)
}

func TestManager_Execute_StepFailureLeavesStateUntouched(t *testing.T) {
	sim := fastSimulator()
	sim.FailStep = func(step string) error {
		if step == "Setting up networking" {
			return errors.New("network allocation failed")
		}
		return nil
	}
	m := newTestManager(t, sim)

	result := m.Execute(context.Background(), scalingDecision(models.ActionScaleUp, 1, 3))

	assert.Equal(t, models.ExecutionFailed, result.Status)
	assert.True(t, result.Failed())
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "network allocation failed")

	state := m.State()
	assert.Equal(t, 1, state.Instances)
	assert.Empty(t, state.ScalingEvents)
}

func TestManager_Execute_MaintainAppendsNoOpEvent(t *testing.T) {
	m := newTestManager(t, fastSimulator())

	result := m.Execute(context.Background(), scalingDecision(models.ActionMaintain, 1, 1))

	assert.Equal(t, models.ExecutionCompleted, result.Status)
	assert.Equal(t, 1, result.InstancesMaintained)
	assert.True(t, result.OptimizationApplied)

	state := m.State()
	assert.Equal(t, 1, state.Instances)
	require.Len(t, state.ScalingEvents, 1)
	assert.Equal(t, state.ScalingEvents[0].InstancesBefore, state.ScalingEvents[0].InstancesAfter)
}

func TestManager_EventHistoryCapped(t *testing.T) {
	m := newTestManager(t, fastSimulator())
	ctx := context.Background()

	// alternate up and down to generate 55 events
	for i := 0; i < 55; i++ {
		var dec *models.ScalingDecision
		if i%2 == 0 {
			dec = scalingDecision(models.ActionScaleUp, 1, 2)
		} else {
			dec = scalingDecision(models.ActionScaleDown, 2, 1)
		}
		result := m.Execute(ctx, dec)
		require.Equal(t, models.ExecutionCompleted, result.Status, "execution %d", i)
	}

	state := m.State()
	assert.Len(t, state.ScalingEvents, models.MaxScalingEvents)

	// retained events stay in chronological order
	for i := 1; i < len(state.ScalingEvents); i++ {
		assert.False(t, state.ScalingEvents[i].Timestamp.Before(state.ScalingEvents[i-1].Timestamp))
	}
}

func TestManager_History(t *testing.T) {
	m := newTestManager(t, fastSimulator())
	ctx := context.Background()
	m.Execute(ctx, scalingDecision(models.ActionScaleUp, 1, 2))
	m.Execute(ctx, scalingDecision(models.ActionScaleUp, 2, 3))
	m.Execute(ctx, scalingDecision(models.ActionScaleDown, 3, 2))

	history := m.History(2)

	require.Len(t, history, 2)
	assert.Equal(t, models.ActionScaleUp, history[0].Action)
	assert.Equal(t, models.ActionScaleDown, history[1].Action)
}

func TestManager_Rollback(t *testing.T) {
	t.Run("reverts the last scaling event", func(t *testing.T) {
		m := newTestManager(t, fastSimulator())
		ctx := context.Background()
		m.Execute(ctx, scalingDecision(models.ActionScaleUp, 1, 3))

		result, err := m.Rollback(ctx)

		require.NoError(t, err)
		assert.Equal(t, models.ActionScaleDown, result.Action)
		assert.Equal(t, models.ExecutionCompleted, result.Status)
		assert.Equal(t, 1, m.State().Instances)
	})

	t.Run("fails without history", func(t *testing.T) {
		m := newTestManager(t, fastSimulator())

		_, err := m.Rollback(context.Background())

		assert.ErrorIs(t, err, lifecycle.ErrNoEventsToRollback)
	})
}

func TestManager_StatePersistsAcrossRestarts(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	m1 := lifecycle.NewManager(lifecycle.ManagerConfig{
		StatePath:   statePath,
		Provisioner: fastSimulator(),
	})
	m1.Execute(ctx, scalingDecision(models.ActionScaleUp, 1, 3))

	m2 := lifecycle.NewManager(lifecycle.ManagerConfig{
		StatePath:   statePath,
		Provisioner: fastSimulator(),
	})

	state := m2.State()
	assert.Equal(t, 3, state.Instances)
	assert.Equal(t, models.StatusActive, state.Status)
	require.Len(t, state.ScalingEvents, 1)
	assert.Equal(t, models.ActionScaleUp, state.ScalingEvents[0].Action)
}

func TestManager_Snapshot(t *testing.T) {
	m := newTestManager(t, fastSimulator())

	snapshot := m.Snapshot(context.Background())

	assert.Equal(t, 1, snapshot.Instances)
	assert.Equal(t, models.StatusActive, snapshot.Status)
	// no executions yet means a clean success rate
	assert.Equal(t, 100.0, snapshot.Uptime.SuccessRatePercent)
	assert.Greater(t, snapshot.CostEstimate.HourlyCost, 0.0)
}

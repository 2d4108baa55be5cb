package lifecycle

import (
	"encoding/json"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/capacitylab/fleet-advisor/internal/logger"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

const bytesPerGB = 1024 * 1024 * 1024

// defaultState builds the initial single-instance state from the probed
// host specifications, with static fallbacks when probing fails.
func defaultState() models.ResourceState {
	cpuCores := 4.0
	if count, err := cpu.Counts(true); err == nil && count > 0 {
		cpuCores = float64(count)
	}

	memoryGB := 16.0
	if vm, err := mem.VirtualMemory(); err == nil {
		memoryGB = models.Round2(float64(vm.Total) / bytesPerGB)
	}

	storageGB := 500.0
	if usage, err := disk.Usage("/"); err == nil {
		storageGB = models.Round2(float64(usage.Total) / bytesPerGB)
	} else {
		logger.WithComponent("lifecycle").Warnf("Disk probe failed, using fallback storage size: %v", err)
	}

	return models.ResourceState{
		Instances: 1,
		Resources: models.ResourceAllocation{
			TotalCPUCores:      cpuCores,
			TotalMemoryGB:      memoryGB,
			TotalStorageGB:     storageGB,
			CPUPerInstance:     cpuCores,
			MemoryPerInstance:  memoryGB,
			StoragePerInstance: storageGB,
		},
		Status:        models.StatusActive,
		LastUpdated:   time.Now(),
		ScalingEvents: []models.ScalingEvent{},
	}
}

// loadState reads the state document at path. A missing or corrupt file
// is replaced by defaults with a warning; persistence failures never
// propagate out of the lifecycle manager.
func loadState(path string) models.ResourceState {
	state := defaultState()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WithComponent("lifecycle").Warnf("State file unreadable, using defaults: %v", err)
		}
		return state
	}

	if err := json.Unmarshal(data, &state); err != nil {
		logger.WithComponent("lifecycle").Warnf("State file corrupt, using defaults: %v", err)
		return defaultState()
	}

	if state.Instances < 1 {
		state.Instances = 1
	}
	if state.ScalingEvents == nil {
		state.ScalingEvents = []models.ScalingEvent{}
	}

	return state
}

// saveState rewrites the state document, refreshing last_updated. Best
// effort: a write failure is logged, not returned.
func saveState(path string, state *models.ResourceState) {
	state.LastUpdated = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		logger.WithComponent("lifecycle").Errorf("Failed to encode state: %v", err)
		return
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.WithComponent("lifecycle").Errorf("Failed to write state file: %v", err)
	}
}

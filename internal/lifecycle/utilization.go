package lifecycle

import (
	"context"
	"math"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/capacitylab/fleet-advisor/internal/logger"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

const networkRateSamples = 5

// utilization resolves a usage snapshot through a three-tier fallback:
// the attached telemetry store, then direct OS polling, then static
// defaults. It never fails.
func (m *Manager) utilization(ctx context.Context) models.Utilization {
	if m.telemetry != nil {
		if u, ok := storeUtilization(m.telemetry); ok {
			return u
		}
	}

	if u, ok := polledUtilization(ctx); ok {
		return u
	}

	return models.Utilization{
		CPUUtilizationPercent:     25.0,
		MemoryUtilizationPercent:  20.0,
		StorageUtilizationPercent: 15.0,
		NetworkUtilizationPercent: 10.0,
	}
}

func storeUtilization(telemetry TelemetryProvider) (models.Utilization, bool) {
	latest, ok := telemetry.Latest()
	if !ok {
		return models.Utilization{}, false
	}

	// Network utilization proxies from the rate of change of the
	// cumulative byte counters across the last few samples; MB/s read
	// directly as a percentage, clamped.
	network := 10.0
	recent := telemetry.Recent(networkRateSamples)
	if len(recent) > 1 {
		first := float64(recent[0].NetworkBytesSent + recent[0].NetworkBytesRecv)
		last := float64(recent[len(recent)-1].NetworkBytesSent + recent[len(recent)-1].NetworkBytesRecv)
		rate := (last - first) / float64(len(recent))
		network = math.Min(100, math.Max(0, rate/1024/1024))
	}

	return models.Utilization{
		CPUUtilizationPercent:     models.Round2(latest.CPUPercent),
		MemoryUtilizationPercent:  models.Round2(latest.MemoryPercent),
		StorageUtilizationPercent: models.Round2(latest.DiskPercent),
		NetworkUtilizationPercent: models.Round2(network),
	}, true
}

func polledUtilization(ctx context.Context) (models.Utilization, bool) {
	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil || len(cpuPercents) == 0 {
		logger.WithComponent("lifecycle").Debugf("Direct CPU poll failed: %v", err)
		return models.Utilization{}, false
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return models.Utilization{}, false
	}

	diskPercent := 50.0
	if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
		diskPercent = usage.UsedPercent
	}

	network := 5.0
	if counters, err := net.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		totalGB := float64(counters[0].BytesSent+counters[0].BytesRecv) / bytesPerGB
		network = math.Min(50, totalGB*10)
	}

	return models.Utilization{
		CPUUtilizationPercent:     models.Round2(cpuPercents[0]),
		MemoryUtilizationPercent:  models.Round2(vm.UsedPercent),
		StorageUtilizationPercent: models.Round2(diskPercent),
		NetworkUtilizationPercent: models.Round2(network),
	}, true
}

package telemetry

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/capacitylab/fleet-advisor/internal/logger"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

const bytesPerGB = 1024 * 1024 * 1024

// SystemSource reads metrics from the local host. Response time and
// connection count have no OS-level equivalent for a simulated fleet, so
// they are derived from CPU load with fixed factors.
type SystemSource struct {
	diskPath string
}

func NewSystemSource() *SystemSource {
	return &SystemSource{diskPath: "/"}
}

func (s *SystemSource) Sample(ctx context.Context) (*models.MetricSample, error) {
	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil || len(cpuPercents) == 0 {
		return nil, ErrSourceUnavailable
	}
	cpuPercent := cpuPercents[0]

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, ErrSourceUnavailable
	}

	diskPercent := 50.0
	if usage, err := disk.UsageWithContext(ctx, s.diskPath); err == nil {
		diskPercent = usage.UsedPercent
	} else {
		logger.WithComponent("telemetry").Warnf("Disk usage unavailable, using fallback: %v", err)
	}

	var bytesSent, bytesRecv uint64
	if counters, err := net.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		bytesSent = counters[0].BytesSent
		bytesRecv = counters[0].BytesRecv
	}

	responseTime := simulateResponseTime(cpuPercent)
	connections := simulateConnections(cpuPercent)

	return &models.MetricSample{
		Timestamp:         time.Now(),
		CPUPercent:        models.Round2(cpuPercent),
		MemoryPercent:     models.Round2(vm.UsedPercent),
		MemoryUsedGB:      models.Round2(float64(vm.Used) / bytesPerGB),
		DiskPercent:       models.Round2(diskPercent),
		NetworkBytesSent:  bytesSent,
		NetworkBytesRecv:  bytesRecv,
		ResponseTimeMs:    responseTime,
		ActiveConnections: connections,
		LoadScore:         models.LoadScore(cpuPercent, vm.UsedPercent, responseTime),
	}, nil
}

// simulateResponseTime stands in for an application latency probe: 50ms
// baseline plus up to 200ms under full CPU load.
func simulateResponseTime(cpuPercent float64) float64 {
	return models.Round2(50 + (cpuPercent/100)*200)
}

func simulateConnections(cpuPercent float64) int {
	return 100 + int((cpuPercent/100)*500)
}

func (s *SystemSource) HealthCheck(ctx context.Context) error {
	if _, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		return ErrSourceUnavailable
	}
	return nil
}

func (s *SystemSource) Close() error {
	return nil
}

package models

import (
	"fmt"
	"time"
)

// Load score weights: CPU dominates, memory and normalized response time
// split the remainder.
const (
	loadWeightCPU      = 0.4
	loadWeightMemory   = 0.3
	loadWeightResponse = 0.3

	// Response times at or above this many milliseconds saturate the
	// normalized response component at 100.
	responseTimeCeiling = 200.0
)

// MetricSample is one telemetry observation of the fleet workload.
type MetricSample struct {
	Timestamp         time.Time `json:"timestamp"`
	CPUPercent        float64   `json:"cpu_percent"`
	MemoryPercent     float64   `json:"memory_percent"`
	MemoryUsedGB      float64   `json:"memory_used_gb"`
	DiskPercent       float64   `json:"disk_percent"`
	NetworkBytesSent  uint64    `json:"network_bytes_sent"`
	NetworkBytesRecv  uint64    `json:"network_bytes_recv"`
	ResponseTimeMs    float64   `json:"response_time_ms"`
	ActiveConnections int       `json:"active_connections"`
	LoadScore         float64   `json:"load_score"`
}

// LoadScore computes the weighted composite demand score in [0,100].
func LoadScore(cpuPercent, memoryPercent, responseTimeMs float64) float64 {
	responseScore := (responseTimeMs / responseTimeCeiling) * 100
	if responseScore > 100 {
		responseScore = 100
	}

	score := cpuPercent*loadWeightCPU +
		memoryPercent*loadWeightMemory +
		responseScore*loadWeightResponse

	return Round2(score)
}

func (m *MetricSample) Validate() error {
	if m.Timestamp.IsZero() {
		return fmt.Errorf("sample timestamp is zero")
	}
	if m.CPUPercent < 0 || m.CPUPercent > 100 {
		return fmt.Errorf("cpu_percent %.2f out of range [0,100]", m.CPUPercent)
	}
	if m.MemoryPercent < 0 || m.MemoryPercent > 100 {
		return fmt.Errorf("memory_percent %.2f out of range [0,100]", m.MemoryPercent)
	}
	if m.DiskPercent < 0 || m.DiskPercent > 100 {
		return fmt.Errorf("disk_percent %.2f out of range [0,100]", m.DiskPercent)
	}
	if m.ResponseTimeMs < 0 {
		return fmt.Errorf("response_time_ms %.2f is negative", m.ResponseTimeMs)
	}
	if m.ActiveConnections < 0 {
		return fmt.Errorf("active_connections %d is negative", m.ActiveConnections)
	}
	if m.LoadScore < 0 || m.LoadScore > 100 {
		return fmt.Errorf("load_score %.2f out of range [0,100]", m.LoadScore)
	}
	return nil
}

// SampleSummary aggregates recent samples for reporting.
type SampleSummary struct {
	AvgCPU          float64 `json:"avg_cpu"`
	AvgMemory       float64 `json:"avg_memory"`
	AvgResponseTime float64 `json:"avg_response_time"`
	AvgLoadScore    float64 `json:"avg_load_score"`
	TotalSamples    int     `json:"total_samples"`
}

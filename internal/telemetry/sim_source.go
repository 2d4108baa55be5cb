package telemetry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/capacitylab/fleet-advisor/pkg/models"
)

// SimSource generates synthetic workload samples for demo mode and tests.
// Load follows the configured base with random variance; SetBaseLoad lets
// scenarios script spikes and decays.
type SimSource struct {
	mu        sync.Mutex
	rng       *rand.Rand
	baseLoad  float64
	variance  float64
	netSent   uint64
	netRecv   uint64
	sampleNum int
	failNext  error
}

type SimSourceConfig struct {
	BaseLoad float64
	Variance float64
	Seed     int64
}

func NewSimSource(cfg SimSourceConfig) *SimSource {
	if cfg.BaseLoad == 0 {
		cfg.BaseLoad = 50.0
	}
	if cfg.Variance == 0 {
		cfg.Variance = 10.0
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &SimSource{
		rng:      rand.New(rand.NewSource(seed)),
		baseLoad: cfg.BaseLoad,
		variance: cfg.Variance,
	}
}

func (s *SimSource) SetBaseLoad(load float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseLoad = load
}

// SetFailure makes the next Sample calls return err; nil clears it.
func (s *SimSource) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *SimSource) Sample(ctx context.Context) (*models.MetricSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		return nil, s.failNext
	}

	s.sampleNum++
	cpuPercent := s.clamped(s.baseLoad, s.variance)
	memPercent := s.clamped(s.baseLoad*0.9, s.variance)
	diskPercent := s.clamped(40, 5)

	// Cumulative counters grow with load, like real interface counters.
	s.netSent += uint64(200_000 + cpuPercent*20_000)
	s.netRecv += uint64(500_000 + cpuPercent*50_000)

	responseTime := simulateResponseTime(cpuPercent)
	connections := simulateConnections(cpuPercent)

	return &models.MetricSample{
		Timestamp:         time.Now(),
		CPUPercent:        models.Round2(cpuPercent),
		MemoryPercent:     models.Round2(memPercent),
		MemoryUsedGB:      models.Round2(memPercent / 100 * 16),
		DiskPercent:       models.Round2(diskPercent),
		NetworkBytesSent:  s.netSent,
		NetworkBytesRecv:  s.netRecv,
		ResponseTimeMs:    responseTime,
		ActiveConnections: connections,
		LoadScore:         models.LoadScore(cpuPercent, memPercent, responseTime),
	}, nil
}

func (s *SimSource) clamped(base, variance float64) float64 {
	value := base + (s.rng.Float64()*2-1)*variance
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return value
}

func (s *SimSource) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failNext
}

func (s *SimSource) Close() error {
	return nil
}

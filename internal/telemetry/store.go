package telemetry

import (
	"sync"

	"github.com/capacitylab/fleet-advisor/pkg/models"
)

const defaultStoreCapacity = 1000

// Store keeps recent samples in memory, time-ordered, capped at capacity
// with oldest-first eviction. Readers get copies.
type Store struct {
	mu       sync.RWMutex
	samples  []models.MetricSample
	capacity int
	total    int
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = defaultStoreCapacity
	}
	return &Store{
		samples:  make([]models.MetricSample, 0, capacity),
		capacity: capacity,
	}
}

func (s *Store) Add(sample models.MetricSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = append(s.samples, sample)
	s.total++
	if len(s.samples) > s.capacity {
		s.samples = s.samples[len(s.samples)-s.capacity:]
	}
}

// Recent returns up to n of the newest samples in chronological order.
func (s *Store) Recent(n int) []models.MetricSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.samples) {
		n = len(s.samples)
	}
	result := make([]models.MetricSample, n)
	copy(result, s.samples[len(s.samples)-n:])
	return result
}

func (s *Store) Latest() (models.MetricSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.samples) == 0 {
		return models.MetricSample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// Summary aggregates the newest n samples (default 50).
func (s *Store) Summary(n int) models.SampleSummary {
	if n <= 0 {
		n = 50
	}
	recent := s.Recent(n)

	s.mu.RLock()
	total := s.total
	s.mu.RUnlock()

	summary := models.SampleSummary{TotalSamples: total}
	if len(recent) == 0 {
		return summary
	}

	for _, sample := range recent {
		summary.AvgCPU += sample.CPUPercent
		summary.AvgMemory += sample.MemoryPercent
		summary.AvgResponseTime += sample.ResponseTimeMs
		summary.AvgLoadScore += sample.LoadScore
	}

	count := float64(len(recent))
	summary.AvgCPU = models.Round2(summary.AvgCPU / count)
	summary.AvgMemory = models.Round2(summary.AvgMemory / count)
	summary.AvgResponseTime = models.Round2(summary.AvgResponseTime / count)
	summary.AvgLoadScore = models.Round2(summary.AvgLoadScore / count)

	return summary
}

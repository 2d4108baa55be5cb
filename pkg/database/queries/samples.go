package queries

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/capacitylab/fleet-advisor/pkg/database"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

type SampleRepository struct {
	db *database.DB
}

func NewSampleRepository(db *database.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

func (r *SampleRepository) Insert(ctx context.Context, sample models.MetricSample) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metric_samples (
			collected_at, cpu_percent, memory_percent, memory_used_gb,
			disk_percent, network_bytes_sent, network_bytes_recv,
			response_time_ms, active_connections, load_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sample.Timestamp, sample.CPUPercent, sample.MemoryPercent,
		sample.MemoryUsedGB, sample.DiskPercent, sample.NetworkBytesSent,
		sample.NetworkBytesRecv, sample.ResponseTimeMs,
		sample.ActiveConnections, sample.LoadScore,
	)
	if err != nil {
		return fmt.Errorf("failed to insert metric sample: %w", err)
	}
	return nil
}

// Recent returns up to limit samples ordered oldest first.
func (r *SampleRepository) Recent(ctx context.Context, limit int) ([]models.MetricSample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT collected_at, cpu_percent, memory_percent, memory_used_gb,
		       disk_percent, network_bytes_sent, network_bytes_recv,
		       response_time_ms, active_connections, load_score
		FROM metric_samples
		ORDER BY collected_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric samples: %w", err)
	}
	defer rows.Close()

	var samples []models.MetricSample
	for rows.Next() {
		var s models.MetricSample
		if err := rows.Scan(
			&s.Timestamp, &s.CPUPercent, &s.MemoryPercent, &s.MemoryUsedGB,
			&s.DiskPercent, &s.NetworkBytesSent, &s.NetworkBytesRecv,
			&s.ResponseTimeMs, &s.ActiveConnections, &s.LoadScore,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metric sample: %w", err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metric samples: %w", err)
	}

	// reverse into chronological order
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}

func (r *SampleRepository) Latest(ctx context.Context) (*models.MetricSample, error) {
	var s models.MetricSample
	err := r.db.QueryRowContext(ctx, `
		SELECT collected_at, cpu_percent, memory_percent, memory_used_gb,
		       disk_percent, network_bytes_sent, network_bytes_recv,
		       response_time_ms, active_connections, load_score
		FROM metric_samples
		ORDER BY collected_at DESC
		LIMIT 1`).Scan(
		&s.Timestamp, &s.CPUPercent, &s.MemoryPercent, &s.MemoryUsedGB,
		&s.DiskPercent, &s.NetworkBytesSent, &s.NetworkBytesRecv,
		&s.ResponseTimeMs, &s.ActiveConnections, &s.LoadScore,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest sample: %w", err)
	}
	return &s, nil
}

// Prune deletes samples older than the given number of days and returns the
// number of rows removed.
func (r *SampleRepository) Prune(ctx context.Context, olderThanDays int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM metric_samples
		WHERE collected_at < NOW() - ($1 || ' days')::INTERVAL`,
		olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("failed to prune metric samples: %w", err)
	}
	return result.RowsAffected()
}

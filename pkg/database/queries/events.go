package queries

import (
	"context"
	"fmt"

	"github.com/capacitylab/fleet-advisor/pkg/database"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Insert(ctx context.Context, event models.ScalingEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scaling_events (
			occurred_at, action, instances_before, instances_after, reason, execution_time_seconds
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		event.Timestamp, string(event.Action), event.InstancesBefore,
		event.InstancesAfter, event.Reason, event.ExecutionTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scaling event: %w", err)
	}
	return nil
}

// Recent returns up to limit events ordered newest first.
func (r *EventRepository) Recent(ctx context.Context, limit int) ([]models.ScalingEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT occurred_at, action, instances_before, instances_after, reason, execution_time_seconds
		FROM scaling_events
		ORDER BY occurred_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scaling events: %w", err)
	}
	defer rows.Close()

	var events []models.ScalingEvent
	for rows.Next() {
		var e models.ScalingEvent
		var action string
		if err := rows.Scan(
			&e.Timestamp, &action, &e.InstancesBefore, &e.InstancesAfter,
			&e.Reason, &e.ExecutionTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scaling event: %w", err)
		}
		e.Action = models.ScalingAction(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scaling events: %w", err)
	}
	return events, nil
}

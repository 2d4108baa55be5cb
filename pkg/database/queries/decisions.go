package queries

import (
	"context"
	"fmt"

	"github.com/capacitylab/fleet-advisor/pkg/database"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

type DecisionRepository struct {
	db *database.DB
}

func NewDecisionRepository(db *database.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

func (r *DecisionRepository) Insert(ctx context.Context, decision models.ScalingDecision) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scaling_decisions (
			decided_at, action, reason, confidence,
			current_instances, target_instances, predicted_load, hourly_cost
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		decision.Timestamp, string(decision.Action), decision.Reason,
		decision.Confidence, decision.CurrentInstances, decision.RecommendedInstances,
		decision.PredictedLoad, decision.CostImpact.HourlyCostChange,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scaling decision: %w", err)
	}
	return nil
}

// Recent returns up to limit decisions ordered newest first.
func (r *DecisionRepository) Recent(ctx context.Context, limit int) ([]models.ScalingDecision, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT decided_at, action, reason, confidence,
		       current_instances, target_instances, predicted_load, hourly_cost
		FROM scaling_decisions
		ORDER BY decided_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scaling decisions: %w", err)
	}
	defer rows.Close()

	var decisions []models.ScalingDecision
	for rows.Next() {
		var d models.ScalingDecision
		var action string
		if err := rows.Scan(
			&d.Timestamp, &action, &d.Reason, &d.Confidence,
			&d.CurrentInstances, &d.RecommendedInstances, &d.PredictedLoad,
			&d.CostImpact.HourlyCostChange,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scaling decision: %w", err)
		}
		d.Action = models.ScalingAction(action)
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scaling decisions: %w", err)
	}
	return decisions, nil
}

// CountByAction returns how many recorded decisions carry each action.
func (r *DecisionRepository) CountByAction(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT action, COUNT(*) FROM scaling_decisions GROUP BY action`)
	if err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan decision count: %w", err)
		}
		counts[action] = count
	}
	return counts, rows.Err()
}

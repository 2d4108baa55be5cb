// Package history records the advisor's event stream: every event is logged
// at a level matching its severity, and the durable stages (samples,
// decisions, scaling executions) are persisted to PostgreSQL when a database
// is configured.
package history

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/capacitylab/fleet-advisor/internal/events"
	"github.com/capacitylab/fleet-advisor/internal/logger"
	"github.com/capacitylab/fleet-advisor/pkg/database/queries"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

// Recorder consumes the full event stream from the bus. Persistence is best
// effort: a failed insert is logged and the stream keeps flowing.
type Recorder struct {
	bus       *events.Bus
	samples   *queries.SampleRepository
	decisions *queries.DecisionRepository
	events    *queries.EventRepository
	log       *logrus.Entry
	wg        sync.WaitGroup
}

// NewRecorder builds a recorder. The repositories may all be nil, in which
// case events are logged but not persisted.
func NewRecorder(bus *events.Bus, samples *queries.SampleRepository, decisions *queries.DecisionRepository, eventRepo *queries.EventRepository) *Recorder {
	return &Recorder{
		bus:       bus,
		samples:   samples,
		decisions: decisions,
		events:    eventRepo,
		log:       logger.WithComponent("history"),
	}
}

// Start begins consuming events until the subscription channel closes or the
// context is cancelled.
func (r *Recorder) Start(ctx context.Context) {
	ch := r.bus.SubscribeAll()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-ch:
				if !ok {
					return
				}
				r.handle(ctx, event)
			}
		}
	}()
}

// Wait blocks until the consumer goroutine exits.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) handle(ctx context.Context, event *models.Event) {
	r.logEvent(event)

	switch event.Type {
	case models.EventTypeSampleCollected:
		if r.samples == nil {
			return
		}
		if sample, ok := event.Data.(*models.MetricSample); ok {
			if err := r.samples.Insert(ctx, *sample); err != nil {
				r.log.Warnf("Failed to persist sample: %v", err)
			}
		}
	case models.EventTypeDecisionMade:
		if r.decisions == nil {
			return
		}
		if decision, ok := event.Data.(*models.ScalingDecision); ok {
			if err := r.decisions.Insert(ctx, *decision); err != nil {
				r.log.Warnf("Failed to persist decision: %v", err)
			}
		}
	case models.EventTypeExecutionCompleted, models.EventTypeRollbackPerformed:
		if r.events == nil {
			return
		}
		if result, ok := event.Data.(*models.ExecutionResult); ok {
			if err := r.events.Insert(ctx, executionEvent(event, result)); err != nil {
				r.log.Warnf("Failed to persist scaling event: %v", err)
			}
		}
	}
}

func (r *Recorder) logEvent(event *models.Event) {
	entry := r.log.WithFields(logrus.Fields{
		"event_type": event.Type,
		"event_id":   event.ID,
	})
	if event.TraceID != "" {
		entry = entry.WithField("trace_id", event.TraceID)
	}

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Debug(event.Message)
	}
}

func executionEvent(event *models.Event, result *models.ExecutionResult) models.ScalingEvent {
	after := result.NewTotalInstances
	before := after - result.InstancesAdded + result.InstancesRemoved
	if result.Action == models.ActionMaintain {
		after = result.InstancesMaintained
		before = after
	}

	return models.ScalingEvent{
		Timestamp:       result.Timestamp,
		Action:          result.Action,
		InstancesBefore: before,
		InstancesAfter:  after,
		Reason:          event.Message,
		ExecutionTime:   result.ExecutionTimeSeconds,
	}
}

package events

import (
	"fmt"

	"github.com/capacitylab/fleet-advisor/pkg/models"
)

// Publisher wraps the bus with one helper per pipeline stage.
type Publisher struct {
	bus     *Bus
	traceID string
}

func NewPublisher(bus *Bus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{bus: p.bus, traceID: traceID}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) SampleCollected(sample *models.MetricSample) {
	event := models.NewEvent(models.EventTypeSampleCollected, "Sample collected").
		WithData(sample)
	p.publish(event)
}

func (p *Publisher) ForecastGenerated(predictions []float64, rec *models.Recommendation) {
	msg := "Forecast generated: " + string(rec.Action)
	event := models.NewEvent(models.EventTypeForecastGenerated, msg).
		WithData(map[string]interface{}{
			"predictions":    predictions,
			"recommendation": rec,
		})
	p.publish(event)
}

func (p *Publisher) AnomalyDetected(sample *models.MetricSample) {
	msg := fmt.Sprintf("Anomalous load score: %.2f", sample.LoadScore)
	event := models.NewEvent(models.EventTypeAnomalyDetected, msg).
		WithSeverity(models.SeverityWarning).
		WithData(sample)
	p.publish(event)
}

func (p *Publisher) DecisionMade(decision *models.ScalingDecision) {
	msg := "Scaling decision: " + string(decision.Action)
	event := models.NewEvent(models.EventTypeDecisionMade, msg).
		WithData(decision)
	p.publish(event)
}

func (p *Publisher) ExecutionStarted(decision *models.ScalingDecision) {
	msg := "Execution started: " + string(decision.Action)
	event := models.NewEvent(models.EventTypeExecutionStarted, msg).
		WithData(decision)
	p.publish(event)
}

func (p *Publisher) ExecutionCompleted(result *models.ExecutionResult) {
	msg := "Execution completed: " + string(result.Action)
	event := models.NewEvent(models.EventTypeExecutionCompleted, msg).
		WithData(result)
	p.publish(event)
}

func (p *Publisher) ExecutionFailed(result *models.ExecutionResult) {
	msg := "Execution failed: " + string(result.Action)
	event := models.NewEvent(models.EventTypeExecutionFailed, msg).
		WithSeverity(models.SeverityCritical).
		WithData(result)
	p.publish(event)
}

func (p *Publisher) RollbackPerformed(result *models.ExecutionResult) {
	event := models.NewEvent(models.EventTypeRollbackPerformed, "Rollback performed").
		WithSeverity(models.SeverityWarning).
		WithData(result)
	p.publish(event)
}

func (p *Publisher) Error(message string, err error) {
	event := models.NewEvent(models.EventTypeError, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{"error": err.Error()})
	p.publish(event)
}

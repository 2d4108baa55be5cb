package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/capacitylab/fleet-advisor/internal/logger"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

// EventBridge forwards pipeline events to WebSocket clients.
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) run() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				logger.Info("Event channel closed, stopping bridge")
				return
			}
			b.forwardEvent(event)
		}
	}
}

// WebSocketEvent is the message format sent to WebSocket clients.
type WebSocketEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func (b *EventBridge) forwardEvent(event *models.Event) {
	wsType := mapEventType(event.Type)
	if wsType == "" {
		return
	}

	msg := &WebSocketEvent{
		Type:      wsType,
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		Data:      event.Data,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	b.hub.BroadcastTyped(wsType, data)
}

func mapEventType(eventType models.EventType) string {
	switch eventType {
	case models.EventTypeForecastGenerated:
		return "forecast"
	case models.EventTypeAnomalyDetected:
		return "anomaly"
	case models.EventTypeDecisionMade:
		return "decision"
	case models.EventTypeExecutionStarted:
		return "execution_started"
	case models.EventTypeExecutionCompleted:
		return "scaling_event"
	case models.EventTypeExecutionFailed:
		return "execution_failed"
	case models.EventTypeRollbackPerformed:
		return "rollback"
	case models.EventTypeError:
		return "error"
	default:
		// Skip sample_collected, too chatty for the dashboard stream
		return ""
	}
}

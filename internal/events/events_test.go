package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capacitylab/fleet-advisor/internal/events"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

func receive(t *testing.T, ch <-chan *models.Event) *models.Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBus_TypedSubscription(t *testing.T) {
	bus := events.NewBus(10)
	defer bus.Close()

	decisions := bus.Subscribe(models.EventTypeDecisionMade)

	bus.Publish(models.NewEvent(models.EventTypeSampleCollected, "sample"))
	bus.Publish(models.NewEvent(models.EventTypeDecisionMade, "decision"))

	event := receive(t, decisions)
	assert.Equal(t, models.EventTypeDecisionMade, event.Type)
	assert.Equal(t, "decision", event.Message)

	select {
	case extra := <-decisions:
		t.Fatalf("unexpected event: %s", extra.Type)
	default:
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := events.NewBus(10)
	defer bus.Close()

	all := bus.SubscribeAll()

	bus.Publish(models.NewEvent(models.EventTypeSampleCollected, "sample"))
	bus.Publish(models.NewEvent(models.EventTypeAnomalyDetected, "anomaly"))

	assert.Equal(t, models.EventTypeSampleCollected, receive(t, all).Type)
	assert.Equal(t, models.EventTypeAnomalyDetected, receive(t, all).Type)
}

func TestBus_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	bus := events.NewBus(1)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeError)

	// second publish must not block even though nothing is draining
	bus.Publish(models.NewEvent(models.EventTypeError, "first"))
	bus.Publish(models.NewEvent(models.EventTypeError, "second"))

	assert.Equal(t, "first", receive(t, ch).Message)
}

func TestBus_CloseStopsDelivery(t *testing.T) {
	bus := events.NewBus(10)
	ch := bus.SubscribeAll()

	bus.Close()

	_, open := <-ch
	assert.False(t, open)

	// publishing after close is a no-op
	bus.Publish(models.NewEvent(models.EventTypeError, "late"))
}

func TestPublisher_SetsTraceID(t *testing.T) {
	bus := events.NewBus(10)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeDecisionMade)

	publisher := events.NewPublisher(bus).WithTraceID("trace-123")
	publisher.DecisionMade(&models.ScalingDecision{Action: models.ActionScaleUp})

	event := receive(t, ch)
	require.Equal(t, "trace-123", event.TraceID)
	assert.Contains(t, event.Message, "scale_up")
}

package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names the kind of change a SubscriptionEvent reports.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// SubscriptionEvent is a lightweight change notification. Consumers fetch
// current state from the database instead of trusting a payload.
type SubscriptionEvent struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSubscriptionEvent stamps a new event with the current time.
func NewSubscriptionEvent(eventType EventType, id string) *SubscriptionEvent {
	return &SubscriptionEvent{
		Type:      eventType,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *SubscriptionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SubscriptionEventFromJSON decodes and checks an event body.
func SubscriptionEventFromJSON(data []byte) (*SubscriptionEvent, error) {
	var e SubscriptionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.ID == "" {
		return nil, fmt.Errorf("event without subscription id")
	}
	return &e, nil
}

package amqp

import (
	"testing"
	"time"
)

func TestSubscriptionEventJSON(t *testing.T) {
	before := time.Now().UTC()
	e := NewSubscriptionEvent(EventUpdated, "abc")
	if e.Timestamp.Before(before) {
		t.Fatalf("timestamp %v earlier than %v", e.Timestamp, before)
	}

	body, err := e.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := SubscriptionEventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != EventUpdated || got.ID != "abc" || !got.Timestamp.Equal(e.Timestamp) {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestSubscriptionEventFromJSONRejects(t *testing.T) {
	cases := map[string]string{
		"not json":     `{`,
		"unknown type": `{"type":"renamed","id":"x"}`,
		"missing id":   `{"type":"created"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := SubscriptionEventFromJSON([]byte(body)); err == nil {
				t.Fatalf("expected error for %s", body)
			}
		})
	}
}

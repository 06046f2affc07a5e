package mypublisher

import (
	"encoding/json"

	"github.com/MinhChien3980/foodease-backend/lib/myevents"
	"github.com/MinhChien3980/foodease-backend/lib/mytime"
)

// CreatePubsubMessage wraps an event the way a pubsub push-subscription
// delivers it, for use in webservice tests.
func CreatePubsubMessage(topic string, event myevents.Event) string {
	eventBytes, _ := json.Marshal(event)
	envelope := myevents.EventEnvelope{
		UID:           "123",
		CreatedAt:     mytime.ExampleTime,
		Topic:         topic,
		AggregateUID:  event.GetAggregateName(),
		EventTypeName: event.GetEventTypeName(),
		EventPayload:  string(eventBytes),
	}
	envelopeBytes, _ := json.Marshal(envelope)

	req := myevents.PushRequest{
		Message: myevents.PushMessage{
			Data: envelopeBytes,
		},
		Subscription: topic,
	}

	reqBytes, _ := json.Marshal(req)

	return string(reqBytes)
}

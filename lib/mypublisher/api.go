package mypublisher

import (
	"context"

	"github.com/MinhChien3980/foodease-backend/lib/myevents"
)

type Publisher interface {
	CreateTopic(c context.Context, topic string) error
	Publish(c context.Context, topic string, event myevents.Event) error
}

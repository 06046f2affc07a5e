package mypubsub

import "context"

type PubSub interface {
	Publish(c context.Context, topic string, data string) error
	CreateTopic(c context.Context, topic string) error
	Subscribe(c context.Context, topic string, urlToPostTo string) error
}

var New func(c context.Context) (PubSub, func(), error)

package main

import (
	"context"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

// orderedPublisher publishes with message ordering on. A failed publish
// pauses its ordering key in the client, so the key is resumed before the
// row is retried on a later poll.
type orderedPublisher struct {
	pub *gcppubsub.Publisher
}

func newOrderedPublisher(pub *gcppubsub.Publisher) topicPublisher {
	if pub == nil {
		return nil
	}
	pub.EnableMessageOrdering = true
	return &orderedPublisher{pub: pub}
}

func (p *orderedPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) (string, error) {
	id, err := p.pub.Publish(ctx, msg).Get(ctx)
	if err != nil && msg.OrderingKey != "" {
		p.pub.ResumePublish(msg.OrderingKey)
	}
	return id, err
}

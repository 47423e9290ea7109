package pubsub

import (
	"context"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// Sender adapts a topic publisher to the synchronous send interface the
// outbox relay expects: publish, then block until the broker acks.
type Sender struct {
	publisher *pubsub.Publisher
}

func NewSender(publisher *pubsub.Publisher) *Sender {
	return &Sender{publisher: publisher}
}

func (s *Sender) Send(ctx context.Context, data []byte, attributes map[string]string) error {
	if s == nil || s.publisher == nil {
		return errors.New("publisher not configured")
	}
	result := s.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	})
	_, err := result.Get(ctx)
	return err
}

package outbox

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/openlearnhq/learning-paths/pkg/config"
	"github.com/openlearnhq/learning-paths/pkg/logger"
)

// MessageSender delivers a serialized event to the message broker. The
// Pub/Sub client provides the production implementation.
type MessageSender interface {
	Send(ctx context.Context, data []byte, attributes map[string]string) error
}

// Publisher drains unpublished outbox rows and hands them to the broker.
// It is the relay half of the outbox pattern and runs in its own process.
type Publisher struct {
	repo   *Repository
	sender MessageSender
	cfg    config.OutboxConfig
	logg   *logger.Logger
}

func NewPublisher(repo *Repository, sender MessageSender, cfg config.OutboxConfig, logg *logger.Logger) *Publisher {
	return &Publisher{repo: repo, sender: sender, cfg: cfg, logg: logg}
}

// Run polls for unpublished events until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	interval := p.cfg.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			published, err := p.PublishBatch(ctx)
			if err != nil && p.logg != nil {
				p.logg.Error(ctx, "outbox batch publish failed", err)
			}
			if published > 0 && p.logg != nil {
				logCtx := p.logg.WithField(ctx, "published", published)
				p.logg.Debug(logCtx, "outbox events published")
			}
		}
	}
}

// PublishBatch sends one batch of pending events. A failing event is marked
// with its error and retried on a later pass; it does not block the rest of
// the batch.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	events, err := p.repo.FetchUnpublished(p.cfg.BatchSize, p.cfg.MaxAttempts)
	if err != nil {
		return 0, err
	}

	published := 0
	var errs []error
	for _, event := range events {
		attributes := map[string]string{
			"eventType":     event.EventType.String(),
			"aggregateType": event.AggregateType.String(),
			"aggregateId":   event.AggregateID.String(),
		}
		sendCtx := ctx
		var cancel context.CancelFunc
		if p.cfg.PublishTimeout > 0 {
			sendCtx, cancel = context.WithTimeout(ctx, p.cfg.PublishTimeout)
		}
		sendErr := p.sender.Send(sendCtx, event.Payload, attributes)
		if cancel != nil {
			cancel()
		}
		if sendErr != nil {
			errs = append(errs, sendErr)
			if markErr := p.repo.MarkFailed(event.ID, sendErr); markErr != nil {
				errs = append(errs, markErr)
			}
			continue
		}
		if err := p.repo.MarkPublished(event.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		published++
	}
	return published, multierr.Combine(errs...)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	maxIdleBackoff = 10 * time.Second
	backoffJitter  = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetters interface {
	Park(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) (string, error)
}

// verdict is what happened to one outbox row in a batch.
type verdict int

const (
	verdictPublished verdict = iota
	verdictRetry
	verdictDeadLetter
)

// RelayParams wires the outbox relay.
type RelayParams struct {
	Config     config.OutboxConfig
	Logger     *logger.Logger
	DB         txRunner
	Events     eventStore
	DLQ        deadLetters
	Registry   resolver
	Publishers func(topic string) topicPublisher
	Metrics    *metrics.OutboxMetrics
}

// Relay moves committed outbox rows to Pub/Sub. Each batch runs in one
// transaction; rows are locked while they are published.
type Relay struct {
	cfg        config.OutboxConfig
	logg       *logger.Logger
	db         txRunner
	events     eventStore
	dlq        deadLetters
	registry   resolver
	publishers func(topic string) topicPublisher
	metrics    *metrics.OutboxMetrics
}

func NewRelay(params RelayParams) (*Relay, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Events == nil:
		return nil, errors.New("outbox repository is required")
	case params.DLQ == nil:
		return nil, errors.New("dlq repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.Publishers == nil:
		return nil, errors.New("publisher factory is required")
	}
	cfg := params.Config
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.PollIntervalMS <= 0 {
		cfg.PollIntervalMS = 500
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &Relay{
		cfg:        cfg,
		logg:       params.Logger,
		db:         params.DB,
		events:     params.Events,
		dlq:        params.DLQ,
		registry:   params.Registry,
		publishers: params.Publishers,
		metrics:    params.Metrics,
	}, nil
}

func (r *Relay) pollInterval() time.Duration {
	return time.Duration(r.cfg.PollIntervalMS) * time.Millisecond
}

// Run drains the outbox until ctx is cancelled. A full batch is followed
// immediately by the next one; an empty batch waits one poll interval and a
// failed batch backs off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	backoff := idleBackoff(r.pollInterval())
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return err
		}

		handled, err := r.RelayBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			r.metrics.IncBatchError()
			wait, _ = backoff.Next()
		case handled > 0:
			backoff = idleBackoff(r.pollInterval())
			continue
		default:
			backoff = idleBackoff(r.pollInterval())
			wait = r.pollInterval()
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func idleBackoff(base time.Duration) retry.Backoff {
	return retry.WithJitter(backoffJitter, retry.WithCappedDuration(maxIdleBackoff, retry.NewExponential(base)))
}

// RelayBatch handles one batch and reports how many rows it touched.
func (r *Relay) RelayBatch(ctx context.Context) (int, error) {
	var handled int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.events.FetchUnpublishedForPublish(tx, r.cfg.BatchSize, r.cfg.MaxAttempts)
		if err != nil {
			return err
		}
		for _, row := range rows {
			v, topic, cause := r.deliver(ctx, row)
			if err := r.settle(ctx, tx, row, v, topic, cause); err != nil {
				return err
			}
			handled++
		}
		return nil
	})
	return handled, err
}

func (r *Relay) deliver(ctx context.Context, row models.OutboxEvent) (verdict, string, error) {
	resolved, err := r.registry.Resolve(row)
	if err != nil {
		return verdictDeadLetter, "", err
	}
	topic := resolved.Route.Topic
	pub := r.publishers(topic)
	if pub == nil {
		return verdictDeadLetter, topic, registry.Permanent(fmt.Errorf("no publisher for topic %s", topic))
	}

	msg := &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: resolved.OrderingKey(row),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"occurred_at":    resolved.Envelope.OccurredAt.Format(time.RFC3339Nano),
		},
	}
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if _, err := pub.Publish(publishCtx, msg); err != nil {
		if registry.IsPermanent(err) {
			return verdictDeadLetter, topic, err
		}
		if row.AttemptCount+1 >= r.cfg.MaxAttempts {
			return verdictDeadLetter, topic, fmt.Errorf("max publish attempts reached: %w", err)
		}
		return verdictRetry, topic, err
	}
	return verdictPublished, topic, nil
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, v verdict, topic string, cause error) error {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
		"topic":         topic,
	})
	eventType := string(row.EventType)

	switch v {
	case verdictPublished:
		if err := r.events.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.metrics.Inc(eventType, metrics.PublishPublished)
		r.logg.Debug(ctx, "outbox event published")
	case verdictRetry:
		if err := r.events.MarkFailedTx(tx, row.ID, cause); err != nil {
			return fmt.Errorf("mark failed %s: %w", row.ID, err)
		}
		r.metrics.Inc(eventType, metrics.PublishFailed)
		r.logg.WarnErr(ctx, "outbox publish failed, will retry", cause)
	case verdictDeadLetter:
		reason := enums.OutboxDLQReasonNonRetryable
		if !registry.IsPermanent(cause) {
			reason = enums.OutboxDLQReasonMaxAttempts
		}
		if err := r.dlq.Park(tx, row, reason, cause); err != nil {
			return fmt.Errorf("park %s: %w", row.ID, err)
		}
		if err := r.events.MarkTerminalTx(tx, row.ID, cause, r.cfg.MaxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", row.ID, err)
		}
		r.metrics.Inc(eventType, metrics.PublishDLQ)
		r.logg.WarnErr(r.logg.WithField(ctx, "error_reason", reason), "outbox event dead-lettered", cause)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

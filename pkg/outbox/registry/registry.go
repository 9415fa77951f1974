// Package registry maps outbox event types to their topic and typed payload.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// ErrPermanent marks failures that no retry can fix.
var ErrPermanent = errors.New("permanent outbox failure")

// Permanent wraps err so IsPermanent reports true for it.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// Payload is a decoded event body.
type Payload interface {
	OrderingKey() string
}

// Route says where an event type is published and how its data decodes.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (Payload, error)
}

// ResolvedEvent is an outbox row that passed validation.
type ResolvedEvent struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  Payload
}

// OrderingKey falls back to the aggregate id when the payload has no key.
func (e *ResolvedEvent) OrderingKey(row models.OutboxEvent) string {
	if e.Payload != nil {
		if key := e.Payload.OrderingKey(); key != "" {
			return key
		}
	}
	return row.AggregateID.String()
}

// EventRegistry resolves outbox rows by event type.
type EventRegistry struct {
	routes map[enums.OutboxEventType]Route
}

// NewEventRegistry routes every order event to the orders topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	reg := &EventRegistry{routes: map[enums.OutboxEventType]Route{}}
	reg.add(route[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateOrder, cfg.OrdersTopic))
	reg.add(route[payloads.OrderGroupStatusChangedEvent](enums.EventOrderGroupStatusChanged, enums.AggregateOrderGroup, cfg.OrdersTopic))
	return reg, nil
}

func route[T any, PT interface {
	*T
	Payload
}](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) Route {
	return Route{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (Payload, error) {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, err
			}
			return PT(&v), nil
		},
	}
}

func (r *EventRegistry) add(rt Route) {
	r.routes[rt.EventType] = rt
}

// Topics lists the distinct topics events are routed to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]bool{}
	var topics []string
	for _, rt := range r.routes {
		if !seen[rt.Topic] {
			seen[rt.Topic] = true
			topics = append(topics, rt.Topic)
		}
	}
	return topics
}

// Resolve validates row and decodes its payload. Every error it returns is
// permanent.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	rt, ok := r.routes[row.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("unsupported event type %s", row.EventType))
	case rt.AggregateType != row.AggregateType:
		return nil, Permanent(fmt.Errorf("event %s belongs to %s, row says %s", row.EventType, rt.AggregateType, row.AggregateType))
	case row.AggregateID == uuid.Nil:
		return nil, Permanent(errors.New("missing aggregate_id"))
	}

	env, err := outbox.Unwrap(row.Payload)
	if err != nil {
		return nil, Permanent(err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, Permanent(fmt.Errorf("payload missing for %s", row.EventType))
	}
	payload, err := rt.decode(data)
	if err != nil {
		return nil, Permanent(fmt.Errorf("decode %s payload: %w", row.EventType, err))
	}
	return &ResolvedEvent{Route: rt, Envelope: env, Payload: payload}, nil
}

// Package registry decodes outbox rows into typed marketplace events and
// decides where and how they are published.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/archivesurmer-backend/pkg/config"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	"github.com/angelmondragon/archivesurmer-backend/pkg/outbox"
	"github.com/angelmondragon/archivesurmer-backend/pkg/outbox/payloads"
)

type entry struct {
	aggregate  enums.OutboxAggregateType
	newPayload func() any
}

var catalogue = map[enums.OutboxEventType]entry{
	enums.EventListingReserved:  {enums.AggregateListing, func() any { return &payloads.ListingReservedEvent{} }},
	enums.EventListingReleased:  {enums.AggregateListing, func() any { return &payloads.ListingReleasedEvent{} }},
	enums.EventListingSold:      {enums.AggregateListing, func() any { return &payloads.ListingSoldEvent{} }},
	enums.EventListingModerated: {enums.AggregateListing, func() any { return &payloads.ListingModeratedEvent{} }},
	enums.EventOfferCreated:     {enums.AggregateOffer, func() any { return &payloads.OfferEvent{} }},
	enums.EventOfferUpdated:     {enums.AggregateOffer, func() any { return &payloads.OfferEvent{} }},
}

// errPermanent marks failures that retrying cannot fix.
var errPermanent = errors.New("permanent")

// Permanent wraps err so IsPermanent reports true for it.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", errPermanent, err)
}

// IsPermanent reports whether err, or anything it wraps, came from Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, errPermanent)
}

// Resolved is an outbox row that passed validation.
type Resolved struct {
	Topic    string
	Row      models.OutboxEvent
	Envelope outbox.Envelope
	Payload  any
}

// Attributes are the Pub/Sub message attributes subscribers filter on.
func (r *Resolved) Attributes() map[string]string {
	return map[string]string{
		"event_id":       r.Envelope.EventID,
		"event_type":     string(r.Row.EventType),
		"aggregate_type": string(r.Row.AggregateType),
		"aggregate_id":   r.Row.AggregateID.String(),
		"occurred_at":    r.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// OrderingKey keeps events for one listing or offer in emit order.
func (r *Resolved) OrderingKey() string {
	return string(r.Row.AggregateType) + ":" + r.Row.AggregateID.String()
}

// Registry routes every marketplace event to the configured domain topic.
type Registry struct {
	topic string
}

func New(cfg config.PubSubConfig) (*Registry, error) {
	topic := strings.TrimSpace(cfg.DomainTopic)
	if topic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}
	return &Registry{topic: topic}, nil
}

// Resolve validates row and decodes its typed payload. Every error it
// returns is permanent.
func (r *Registry) Resolve(row models.OutboxEvent) (*Resolved, error) {
	e, ok := catalogue[row.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("unsupported event type %q", row.EventType))
	case e.aggregate != row.AggregateType:
		return nil, Permanent(fmt.Errorf("%s belongs to %s aggregates, row says %s", row.EventType, e.aggregate, row.AggregateType))
	case row.AggregateID == uuid.Nil:
		return nil, Permanent(fmt.Errorf("%s row has no aggregate_id", row.EventType))
	}

	var env outbox.Envelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, Permanent(fmt.Errorf("decode envelope: %w", err))
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, Permanent(fmt.Errorf("%s envelope has no data", row.EventType))
	}
	payload := e.newPayload()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, Permanent(fmt.Errorf("decode %s data: %w", row.EventType, err))
	}

	return &Resolved{Topic: r.topic, Row: row, Envelope: env, Payload: payload}, nil
}

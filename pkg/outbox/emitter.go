// Package outbox records domain events in the same transaction as the state
// change that produced them. cmd/outbox-publisher ships the rows to Pub/Sub.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

// EnvelopeVersion is bumped when the envelope layout changes.
const EnvelopeVersion = 1

// Actor identifies who caused the event.
type Actor struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
}

// Envelope is the JSON stored in outbox_events.payload and published verbatim.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *Actor          `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// Event is what domain services hand to Emit.
type Event struct {
	Type          enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *Actor
	Data          any
	OccurredAt    time.Time
}

// Emitter is the write side used by domain services inside their transactions.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event Event) error
}

type Writer struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewWriter(repo *Repository, logg *logger.Logger) *Writer {
	return &Writer{repo: repo, logg: logg, now: time.Now}
}

// Emit appends event to the outbox within tx, so the row commits or rolls
// back with the caller's writes.
func (w *Writer) Emit(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !event.Type.IsValid() {
		return fmt.Errorf("unknown outbox event type %q", event.Type)
	}
	if event.AggregateID == uuid.Nil {
		return fmt.Errorf("%s: aggregate id is required", event.Type)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("encode %s data: %w", event.Type, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = w.now()
	}
	env := Envelope{
		Version:    EnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: occurred.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", event.Type, err)
	}

	if err := w.repo.Insert(tx, models.OutboxEvent{
		EventType:     event.Type,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       datatypes.JSON(payload),
	}); err != nil {
		return fmt.Errorf("insert %s: %w", event.Type, err)
	}

	w.logg.Debug(w.logg.WithFields(ctx, map[string]any{
		"event_id":     env.EventID,
		"event_type":   event.Type,
		"aggregate_id": event.AggregateID.String(),
	}), "outbox.queued")
	return nil
}

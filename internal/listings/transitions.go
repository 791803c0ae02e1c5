package listings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/outbox"
	"github.com/angelmondragon/archivesurmer-backend/pkg/outbox/payloads"
)

// Release reasons recorded on listing_released events.
const (
	ReleaseCheckoutFailed = "checkout_failed"
	ReleaseSessionExpired = "session_expired"
	ReleasePaymentFailed  = "payment_failed"
	ReleaseStale          = "stale_reservation"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Lifecycle applies guarded status transitions. Each transition is a single
// compare-and-swap plus its audit row and outbox event, committed together;
// a lost guard is reported as false with no side effects.
type Lifecycle struct {
	tx     txRunner
	repo   Repository
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewLifecycle(tx txRunner, repo Repository, emitter outbox.Emitter, logg *logger.Logger) (*Lifecycle, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Lifecycle{
		tx:     tx,
		repo:   repo,
		outbox: emitter,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Reserve moves id from active to reserved. Only one concurrent caller wins.
func (l *Lifecycle) Reserve(ctx context.Context, id uuid.UUID, offerID *uuid.UUID) (bool, error) {
	now := l.now()
	return l.apply(ctx, Guard{ID: id, From: Sources(enums.ListingStatusReserved)}, map[string]any{
		"status":              enums.ListingStatusReserved,
		"reserved_at":         now,
		"checkout_session_id": nil,
	}, transition{
		kind:  enums.EventListingReserved,
		from:  enums.ListingStatusActive,
		to:    enums.ListingStatusReserved,
		actor: "checkout",
		payload: func(row *models.Listing) any {
			return payloads.ListingReservedEvent{ListingID: row.ID, SellerID: row.SellerID, OfferID: offerID}
		},
	})
}

// AttachSession records sessionID on a listing that is still reserved.
func (l *Lifecycle) AttachSession(ctx context.Context, id uuid.UUID, sessionID string) (bool, error) {
	ok, err := l.repo.CompareAndSwap(ctx, Guard{ID: id, From: []enums.ListingStatus{enums.ListingStatusReserved}}, map[string]any{
		"checkout_session_id": sessionID,
	})
	if err != nil {
		return false, err
	}
	if ok {
		logCtx := l.logg.WithField(l.logg.WithListingID(ctx, id.String()), "session_id", sessionID)
		l.logg.Info(logCtx, "checkout session attached")
	}
	return ok, nil
}

// Release returns a reserved listing to active and clears its session. A ref
// carrying a session only releases that session's reservation; without one,
// only a reservation that has no session attached yet is released.
func (l *Lifecycle) Release(ctx context.Context, ref Ref, reason string) (bool, error) {
	guard, err := l.resolve(ctx, ref)
	if err != nil || guard == nil {
		return false, err
	}
	guard.From = Sources(enums.ListingStatusActive, enums.ListingStatusReserved)
	if ref.SessionID != "" {
		guard.SessionID = ref.SessionID
	} else {
		guard.WithoutSession = true
	}
	return l.apply(ctx, *guard, releaseUpdates(), releaseTransition(reason))
}

// ReleaseStale releases reservations that never received a session and were
// taken before cutoff.
func (l *Lifecycle) ReleaseStale(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error) {
	guard := Guard{
		ID:             id,
		From:           Sources(enums.ListingStatusActive, enums.ListingStatusReserved),
		WithoutSession: true,
		ReservedBefore: &cutoff,
	}
	return l.apply(ctx, guard, releaseUpdates(), releaseTransition(ReleaseStale))
}

// MarkSold applies the terminal sale. Already-sold or archived listings are a
// no-op, so replays of the same payment event change nothing.
func (l *Lifecycle) MarkSold(ctx context.Context, ref Ref) (bool, error) {
	guard, err := l.resolve(ctx, ref)
	if err != nil || guard == nil {
		return false, err
	}
	guard.From = Sources(enums.ListingStatusSold)
	updates := map[string]any{
		"status":  enums.ListingStatusSold,
		"sold_at": l.now(),
	}
	if ref.SessionID != "" {
		updates["checkout_session_id"] = ref.SessionID
	}
	return l.apply(ctx, *guard, updates, transition{
		kind:  enums.EventListingSold,
		to:    enums.ListingStatusSold,
		actor: "payment_provider",
		payload: func(row *models.Listing) any {
			session := ""
			if row.CheckoutSessionID != nil {
				session = *row.CheckoutSessionID
			}
			return payloads.ListingSoldEvent{ListingID: row.ID, SellerID: row.SellerID, SessionID: session, PriceCents: row.PriceCents}
		},
	})
}

type transition struct {
	kind    enums.OutboxEventType
	from    enums.ListingStatus
	to      enums.ListingStatus
	actor   string
	details map[string]any
	payload func(row *models.Listing) any
}

func releaseUpdates() map[string]any {
	return map[string]any{
		"status":              enums.ListingStatusActive,
		"checkout_session_id": nil,
		"reserved_at":         nil,
	}
}

func releaseTransition(reason string) transition {
	actor := "checkout"
	switch reason {
	case ReleaseSessionExpired, ReleasePaymentFailed:
		actor = "payment_provider"
	case ReleaseStale:
		actor = "sweeper"
	}
	return transition{
		kind:    enums.EventListingReleased,
		from:    enums.ListingStatusReserved,
		to:      enums.ListingStatusActive,
		actor:   actor,
		details: map[string]any{"reason": reason},
		payload: func(row *models.Listing) any {
			return payloads.ListingReleasedEvent{ListingID: row.ID, Reason: reason}
		},
	}
}

// resolve turns a Ref into a guard. The id wins; a session-only reference is
// looked up and then pinned to that session. Unknown listings yield nil.
// Release pins the session itself; MarkSold stays tolerant of a mismatch.
func (l *Lifecycle) resolve(ctx context.Context, ref Ref) (*Guard, error) {
	if ref.ID != uuid.Nil {
		return &Guard{ID: ref.ID}, nil
	}
	if ref.SessionID == "" {
		return nil, nil
	}
	row, err := l.repo.FindBySessionID(ctx, ref.SessionID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &Guard{ID: row.ID, SessionID: ref.SessionID}, nil
}

func (l *Lifecycle) apply(ctx context.Context, guard Guard, updates map[string]any, t transition) (bool, error) {
	if err := checkGuard(guard.From, t.to); err != nil {
		return false, err
	}
	var (
		changed bool
		from    = t.from
	)
	err := l.tx.WithTx(ctx, func(tx *gorm.DB) error {
		changed, from = false, t.from
		repo := l.repo.WithTx(tx)
		if from == "" {
			current, err := repo.FindByID(ctx, guard.ID)
			if err != nil {
				if db.IsNotFound(err) {
					return nil
				}
				return err
			}
			from = current.Status
		}

		ok, err := repo.CompareAndSwap(ctx, guard, updates)
		if err != nil || !ok {
			return err
		}
		changed = true

		row, err := repo.FindByID(ctx, guard.ID)
		if err != nil {
			return err
		}
		if err := repo.AppendStatusEvent(ctx, statusEvent(row.ID, string(t.kind), string(from), string(t.to), t.actor, t.details)); err != nil {
			return err
		}
		return l.outbox.Emit(ctx, tx, outbox.Event{
			Type:          t.kind,
			AggregateType: enums.AggregateListing,
			AggregateID:   row.ID,
			Actor:         &outbox.Actor{Role: t.actor},
			Data:          t.payload(row),
		})
	})
	if err != nil {
		return false, err
	}
	if changed {
		logCtx := l.logg.WithFields(l.logg.WithListingID(ctx, guard.ID.String()), map[string]any{
			"from_status": from,
			"to_status":   t.to,
		})
		l.logg.Info(logCtx, "listing status changed")
	}
	return changed, nil
}

func statusEvent(listingID uuid.UUID, kind, from, to, actor string, details map[string]any) *models.ListingStatusEvent {
	event := &models.ListingStatusEvent{
		ListingID:  listingID,
		EventType:  kind,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			event.Details = datatypes.JSON(raw)
		}
	}
	return event
}

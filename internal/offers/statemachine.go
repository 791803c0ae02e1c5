package offers

import (
	"errors"
	"time"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
)

const defaultRejectMessage = "Offer rejected."

var (
	// ErrTerminal reports an action against an accepted, rejected, cancelled or expired offer.
	ErrTerminal = errors.New("offer is terminal")
	// ErrCounterAmount reports a counter without a positive amount.
	ErrCounterAmount = errors.New("counter amount must be positive")
	// ErrNotCountered reports accept_counter on an offer without a live counter.
	ErrNotCountered = errors.New("offer has no counter to accept")
)

// Step is the outcome of applying one action to an offer. Updates holds the
// column changes for the guarded write.
type Step struct {
	From    enums.OfferStatus
	To      enums.OfferStatus
	Updates map[string]any
}

// Resolved reports whether the step closes the offer.
func (s Step) Resolved() bool {
	return s.To.IsTerminal()
}

// Apply computes the transition for action without touching storage.
// Identity checks are the caller's job; Apply only enforces state rules.
func Apply(offer *models.Offer, action enums.OfferAction, counterCents int64, message string, now time.Time) (Step, error) {
	if offer.Status.IsTerminal() {
		return Step{}, ErrTerminal
	}
	step := Step{From: offer.Status, Updates: map[string]any{}}

	switch action {
	case enums.OfferActionAccept:
		final := offer.AmountCents
		if offer.CounterAmountCents != nil && *offer.CounterAmountCents > 0 {
			final = *offer.CounterAmountCents
		}
		step.To = enums.OfferStatusAccepted
		step.Updates["final_amount_cents"] = final
		step.Updates["seller_message"] = optional(message)
	case enums.OfferActionReject:
		if message == "" {
			message = defaultRejectMessage
		}
		step.To = enums.OfferStatusRejected
		step.Updates["seller_message"] = message
	case enums.OfferActionCounter:
		if counterCents <= 0 {
			return Step{}, ErrCounterAmount
		}
		step.To = enums.OfferStatusCountered
		step.Updates["counter_amount_cents"] = counterCents
		step.Updates["seller_message"] = optional(message)
	case enums.OfferActionCancel:
		step.To = enums.OfferStatusCancelled
	case enums.OfferActionAcceptCounter:
		if offer.Status != enums.OfferStatusCountered || offer.CounterAmountCents == nil || *offer.CounterAmountCents <= 0 {
			return Step{}, ErrNotCountered
		}
		step.To = enums.OfferStatusAccepted
		step.Updates["final_amount_cents"] = *offer.CounterAmountCents
	default:
		return Step{}, errors.New("unknown offer action")
	}

	step.Updates["status"] = step.To
	if step.Resolved() {
		step.Updates["resolved_at"] = now
	}
	return step, nil
}

// Expire is the time-based transition run by the expiry job.
func Expire(offer *models.Offer, now time.Time) (Step, error) {
	if offer.Status.IsTerminal() {
		return Step{}, ErrTerminal
	}
	return Step{
		From: offer.Status,
		To:   enums.OfferStatusExpired,
		Updates: map[string]any{
			"status":      enums.OfferStatusExpired,
			"resolved_at": now,
		},
	}, nil
}

// DisplayCents is the amount a client should show: final, then counter, then original.
func DisplayCents(offer *models.Offer) int64 {
	if offer.FinalAmountCents != nil && *offer.FinalAmountCents > 0 {
		return *offer.FinalAmountCents
	}
	if offer.CounterAmountCents != nil && *offer.CounterAmountCents > 0 {
		return *offer.CounterAmountCents
	}
	return offer.AmountCents
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

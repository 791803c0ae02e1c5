package stripewebhook

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/archivesurmer-backend/internal/listings"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/metrics"
	"github.com/angelmondragon/archivesurmer-backend/pkg/payments"
)

// Outcome labels reported per handled event.
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeIgnored = "ignored"
	OutcomeFailed  = "failed"
)

type listingReconciler interface {
	MarkSold(ctx context.Context, ref listings.Ref) (bool, error)
	Release(ctx context.Context, ref listings.Ref, reason string) (bool, error)
}

type ServiceParams struct {
	Listings listingReconciler
	Metrics  *metrics.MarketplaceMetrics
	Logger   *logger.Logger
}

// Service reconciles listing state with checkout session events. Every
// transition it drives is guarded, so replaying an event is a no-op.
type Service struct {
	listings listingReconciler
	metrics  *metrics.MarketplaceMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Listings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listing reconciler required")
	}
	return &Service{
		listings: params.Listings,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// HandleEvent applies event and returns the outcome label. Store errors are
// returned unchanged so the provider redelivers.
func (s *Service) HandleEvent(ctx context.Context, event payments.Event) (string, error) {
	outcome, err := s.handle(ctx, event)
	if err != nil {
		outcome = OutcomeFailed
	}
	s.metrics.ObserveWebhook(string(event.Type), outcome)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
		"session_id": event.SessionID,
		"outcome":    outcome,
	})
	if err != nil {
		s.logg.Error(logCtx, "payment webhook failed", err)
		return outcome, err
	}
	s.logg.Info(logCtx, "payment webhook handled")
	return outcome, nil
}

func (s *Service) handle(ctx context.Context, event payments.Event) (string, error) {
	var (
		changed bool
		err     error
	)
	switch event.Type {
	case payments.EventCheckoutCompleted:
		ref := refFor(event)
		if ref.IsZero() {
			return OutcomeIgnored, nil
		}
		changed, err = s.listings.MarkSold(ctx, ref)
	case payments.EventCheckoutExpired:
		ref := refFor(event)
		if ref.IsZero() {
			return OutcomeIgnored, nil
		}
		changed, err = s.listings.Release(ctx, ref, listings.ReleaseSessionExpired)
	case payments.EventCheckoutAsyncPaymentFailed:
		ref := refFor(event)
		if ref.IsZero() {
			return OutcomeIgnored, nil
		}
		changed, err = s.listings.Release(ctx, ref, listings.ReleasePaymentFailed)
	default:
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile listing")
	}
	if changed {
		return OutcomeApplied, nil
	}
	return OutcomeNoop, nil
}

// refFor prefers the listing id from session metadata and falls back to the
// session id. A malformed metadata id is treated as absent.
func refFor(event payments.Event) listings.Ref {
	ref := listings.Ref{SessionID: strings.TrimSpace(event.SessionID)}
	if id, err := uuid.Parse(strings.TrimSpace(event.ListingID)); err == nil {
		ref.ID = id
	}
	return ref
}

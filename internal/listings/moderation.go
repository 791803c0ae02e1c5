package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/outbox"
	"github.com/angelmondragon/archivesurmer-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/archivesurmer-backend/pkg/pagination"
)

const defaultRejectReason = "Listing rejected during moderation review."

// ModerationInput is an admin decision on one listing.
type ModerationInput struct {
	ListingID uuid.UUID
	Action    string
	Reason    string
}

// ModerationService drives the editorial review queue.
type ModerationService interface {
	Queue(ctx context.Context, moderationStatus, limit, offset string) ([]ListingDTO, error)
	Decide(ctx context.Context, input ModerationInput) (*ListingDTO, error)
}

type moderationService struct {
	tx     txRunner
	repo   Repository
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewModerationService(tx txRunner, repo Repository, emitter outbox.Emitter, logg *logger.Logger) (ModerationService, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &moderationService{
		tx:     tx,
		repo:   repo,
		outbox: emitter,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *moderationService) Queue(ctx context.Context, moderationStatus, limit, offset string) ([]ListingDTO, error) {
	var filter *enums.ModerationStatus
	raw := strings.ToLower(strings.TrimSpace(moderationStatus))
	switch raw {
	case "all":
	case "":
		pending := enums.ModerationPending
		filter = &pending
	default:
		parsed, err := enums.ParseModerationStatus(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "moderation_status must be pending, approved, rejected, or all.")
		}
		filter = &parsed
	}

	rows, err := s.repo.ListModerationQueue(ctx, filter, pagination.Moderation.Parse(limit, offset))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list moderation queue")
	}
	out := make([]ListingDTO, 0, len(rows))
	for i := range rows {
		out = append(out, ToDTO(&rows[i]))
	}
	return out, nil
}

// Decide applies approve or reject. Approval needs at least one valid media
// URL; rejection archives a listing that is still purchasable or reserved.
// The write is guarded on the status read, so a concurrent checkout makes the
// decision fail with a conflict instead of being overwritten.
func (s *moderationService) Decide(ctx context.Context, input ModerationInput) (*ListingDTO, error) {
	decision, err := enums.ParseModerationDecision(input.Action)
	if err != nil || input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing_id and action (approve|reject) are required.")
	}

	var updated *models.Listing
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, input.ListingID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Listing not found.")
			}
			return err
		}

		now := s.now()
		var (
			updates    map[string]any
			next       enums.ListingStatus
			moderation enums.ModerationStatus
			notes      string
		)
		switch decision {
		case enums.ModerationDecisionApprove:
			approved, primary, err := ApprovalMedia(current.MediaURLs, derefString(current.ImageURL))
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "Cannot approve a listing without at least one valid image.")
			}
			next = StatusAfterApproval(current.Status)
			moderation = enums.ModerationApproved
			notes = strings.TrimSpace(input.Reason)
			updates = map[string]any{
				"moderation_status":   moderation,
				"moderation_notes":    nullableString(notes),
				"moderated_at":        now,
				"approved_media_urls": approved,
				"image_url":           primary,
				"status":              next,
			}
		default:
			notes = strings.TrimSpace(input.Reason)
			if notes == "" {
				notes = defaultRejectReason
			}
			next = StatusAfterRejection(current.Status)
			moderation = enums.ModerationRejected
			updates = map[string]any{
				"moderation_status": moderation,
				"moderation_notes":  notes,
				"moderated_at":      now,
				"status":            next,
			}
			if current.Status == enums.ListingStatusReserved {
				updates["checkout_session_id"] = nil
				updates["reserved_at"] = nil
			}
		}

		guard := Guard{ID: current.ID, From: []enums.ListingStatus{current.Status}}
		if err := checkGuard(guard.From, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "Listing cannot move to that status.")
		}
		ok, err := repo.CompareAndSwap(ctx, guard, updates)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "Listing changed during moderation. Reload and retry.")
		}

		details := map[string]any{"decision": string(decision)}
		if notes != "" {
			details["notes"] = notes
		}
		if err := repo.AppendStatusEvent(ctx, statusEvent(current.ID, string(enums.EventListingModerated), string(current.Status), string(next), "admin", details)); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.Event{
			Type:          enums.EventListingModerated,
			AggregateType: enums.AggregateListing,
			AggregateID:   current.ID,
			Actor:         &outbox.Actor{Role: "admin"},
			Data:          payloads.ListingModeratedEvent{ListingID: current.ID, Status: moderation, Notes: notes},
		}); err != nil {
			return err
		}

		updated, err = repo.FindByID(ctx, current.ID)
		return err
	})
	if err != nil {
		var typed *pkgerrors.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply moderation decision")
	}

	logCtx := s.logg.WithFields(s.logg.WithListingID(ctx, updated.ID.String()), map[string]any{
		"decision":          string(decision),
		"moderation_status": updated.ModerationStatus,
		"status":            updated.Status,
	})
	s.logg.Info(logCtx, "listing moderated")
	dto := ToDTO(updated)
	return &dto, nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

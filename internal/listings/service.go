package listings

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/archivesurmer-backend/pkg/db/types"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/money"
	"github.com/angelmondragon/archivesurmer-backend/pkg/pagination"
)

const (
	maxSearchLen = 80

	defaultNewCondition  = "New with tags"
	defaultUsedCondition = "Pre-owned"
)

// SellerResolver maps a seller email to a profile.
type SellerResolver interface {
	ResolveSeller(ctx context.Context, email string) (*models.SellerProfile, error)
}

// Service is the catalogue surface: browse, submit and owner status changes.
type Service interface {
	List(ctx context.Context, query ListQuery) ([]ListingDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	Create(ctx context.Context, input CreateInput) (*ListingDTO, error)
	SetOwnerStatus(ctx context.Context, input OwnerStatusInput) (*ListingDTO, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	sellers SellerResolver
	logg    *logger.Logger
}

func NewService(tx txRunner, repo Repository, sellers SellerResolver, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if sellers == nil {
		return nil, fmt.Errorf("seller resolver required")
	}
	return &service{tx: tx, repo: repo, sellers: sellers, logg: logg}, nil
}

func (s *service) List(ctx context.Context, query ListQuery) ([]ListingDTO, error) {
	filter := ListFilter{Search: cleanSearch(query.Search)}

	status := strings.ToLower(strings.TrimSpace(query.Status))
	switch status {
	case "":
		active := enums.ListingStatusActive
		filter.Status = &active
	case "all":
	default:
		parsed, err := enums.ParseListingStatus(status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be active, reserved, archived, sold or all")
		}
		filter.Status = &parsed
	}

	switch strings.ToLower(strings.TrimSpace(query.Condition)) {
	case "new":
		isNew := true
		filter.IsNew = &isNew
	case "used", "pre-owned", "preowned":
		isNew := false
		filter.IsNew = &isNew
	}

	if strings.TrimSpace(query.SellerEmail) != "" {
		seller, err := s.sellers.ResolveSeller(ctx, query.SellerEmail)
		if err != nil {
			return nil, err
		}
		filter.SellerID = &seller.ID
	}

	rows, err := s.repo.List(ctx, filter, pagination.Listings.Parse(query.Limit, query.Offset))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}
	out := make([]ListingDTO, 0, len(rows))
	for i := range rows {
		out = append(out, ToDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Listing not found.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return listing, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ListingDTO, error) {
	title := strings.TrimSpace(input.Title)
	brand := strings.TrimSpace(input.Brand)
	if title == "" || brand == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and brand are required.")
	}
	priceCents, err := resolvePrice(input)
	if err != nil {
		return nil, err
	}

	seller, err := s.sellers.ResolveSeller(ctx, input.SellerEmail)
	if err != nil {
		return nil, err
	}
	if !seller.HasPaymentAccount() {
		return nil, pkgerrors.New(pkgerrors.CodeFailedPrecondition, "Seller has no Stripe account. Complete onboarding first.")
	}

	condition := strings.TrimSpace(input.Condition)
	if condition == "" {
		condition = defaultUsedCondition
		if input.IsNew {
			condition = defaultNewCondition
		}
	}

	listing := &models.Listing{
		SellerID:         seller.ID,
		Title:            title,
		Brand:            brand,
		Description:      strings.TrimSpace(input.Description),
		Size:             strings.TrimSpace(input.Size),
		Condition:        condition,
		IsNew:            input.IsNew,
		PriceCents:       priceCents,
		Currency:         NormalizeCurrency(input.Currency),
		MediaURLs:        dbtypes.NormalizeURLs(input.MediaURLs),
		Status:           enums.ListingStatusActive,
		ModerationStatus: enums.ModerationPending,
	}
	if image := strings.TrimSpace(input.ImageURL); dbtypes.IsHTTPURL(image) {
		listing.ImageURL = &image
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}
	s.logg.Info(s.logg.WithListingID(s.logg.WithActor(ctx, "seller", seller.Email), listing.ID.String()), "listing submitted for moderation")

	dto := ToDTO(listing)
	return &dto, nil
}

// SetOwnerStatus toggles active/archived for the owning seller. The update is
// guarded on ownership and on the current status still being owner-settable.
func (s *service) SetOwnerStatus(ctx context.Context, input OwnerStatusInput) (*ListingDTO, error) {
	next, err := enums.ParseListingStatus(input.Status)
	if err != nil || !next.OwnerSettable() || input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing_id and valid status (active|archived) are required.")
	}
	seller, err := s.sellers.ResolveSeller(ctx, input.SellerEmail)
	if err != nil {
		return nil, err
	}

	var updated *models.Listing
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, input.ListingID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Listing not found for this seller.")
			}
			return err
		}
		if current.SellerID != seller.ID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Listing not found for this seller.")
		}

		ok, err := repo.CompareAndSwap(ctx, Guard{
			ID:       input.ListingID,
			SellerID: seller.ID,
			From:     OwnerFrom(next),
		}, map[string]any{"status": next})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "Listing is %s and cannot be changed.", current.Status)
		}
		if current.Status != next {
			if err := repo.AppendStatusEvent(ctx, statusEvent(current.ID, "owner_status", string(current.Status), string(next), "seller", nil)); err != nil {
				return err
			}
		}
		updated, err = repo.FindByID(ctx, input.ListingID)
		return err
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing status")
	}

	s.logg.Info(s.logg.WithListingID(ctx, updated.ID.String()), "listing status set by owner")
	dto := ToDTO(updated)
	return &dto, nil
}

// NormalizeCurrency returns a lowercase 3-letter code, defaulting to eur.
func NormalizeCurrency(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	if len(c) != 3 {
		return "eur"
	}
	for _, r := range c {
		if r < 'a' || r > 'z' {
			return "eur"
		}
	}
	return c
}

func resolvePrice(input CreateInput) (int64, error) {
	if input.PriceCents != nil {
		if *input.PriceCents <= 0 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "price must be a positive number.")
		}
		return *input.PriceCents, nil
	}
	if input.Price != nil {
		cents, err := money.FromMajorFloat(*input.Price)
		if err != nil {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "price must be a positive number.")
		}
		return cents, nil
	}
	return 0, pkgerrors.New(pkgerrors.CodeValidation, "price must be a positive number.")
}

func cleanSearch(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '%', '_', ',':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if utf8.RuneCountInString(cleaned) > maxSearchLen {
		cleaned = string([]rune(cleaned)[:maxSearchLen])
	}
	return strings.TrimSpace(cleaned)
}

package wishlist

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
)

const customerMissingMessage = "Customer account not found. Create your customer account first."

type CustomerFinder interface {
	FindCustomer(ctx context.Context, email string) (*models.CustomerProfile, error)
}

type ListingReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo *Repository
	Customers    CustomerFinder
	Listings     ListingReader
}

// Service exposes business rules for wishlist management.
type Service interface {
	GetWishlist(ctx context.Context, customerEmail string) (ListDTO, error)
	AddItem(ctx context.Context, customerEmail string, listingID uuid.UUID) (*AddResult, error)
	RemoveItem(ctx context.Context, customerEmail string, listingID uuid.UUID) (*RemoveResult, error)
}

type service struct {
	wishlistRepo *Repository
	customers    CustomerFinder
	listings     ListingReader
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer finder is required")
	}
	if params.Listings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing reader is required")
	}
	return &service{
		wishlistRepo: params.WishlistRepo,
		customers:    params.Customers,
		listings:     params.Listings,
	}, nil
}

// GetWishlist returns an empty list for unknown customers.
func (s *service) GetWishlist(ctx context.Context, customerEmail string) (ListDTO, error) {
	customer, err := s.customers.FindCustomer(ctx, customerEmail)
	if err != nil {
		return ListDTO{}, err
	}
	if customer == nil {
		return ListDTO{Items: []ItemDTO{}}, nil
	}

	rows, err := s.wishlistRepo.ListItems(ctx, customer.ID)
	if err != nil {
		return ListDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	items := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		items = append(items, toItemDTO(&rows[i]))
	}
	return ListDTO{Count: len(items), Items: items}, nil
}

// AddItem saves an approved listing. Saving twice returns the existing row.
func (s *service) AddItem(ctx context.Context, customerEmail string, listingID uuid.UUID) (*AddResult, error) {
	customer, err := s.requireCustomer(ctx, customerEmail)
	if err != nil {
		return nil, err
	}
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing_id is required.")
	}

	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Listing not found.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing.ModerationStatus != enums.ModerationApproved {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Only approved listings can be saved to wishlist.")
	}

	item, exists, err := s.wishlistRepo.AddItem(ctx, customer.ID, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wishlist item")
	}
	return &AddResult{Exists: exists, Item: toItemDTO(item)}, nil
}

// RemoveItem drops the wishlist entry regardless of prior state.
func (s *service) RemoveItem(ctx context.Context, customerEmail string, listingID uuid.UUID) (*RemoveResult, error) {
	customer, err := s.requireCustomer(ctx, customerEmail)
	if err != nil {
		return nil, err
	}
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing_id is required.")
	}
	if err := s.wishlistRepo.RemoveItem(ctx, customer.ID, listingID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return &RemoveResult{Removed: true, ListingID: listingID}, nil
}

func (s *service) requireCustomer(ctx context.Context, email string) (*models.CustomerProfile, error) {
	customer, err := s.customers.FindCustomer(ctx, email)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, customerMissingMessage)
	}
	return customer, nil
}

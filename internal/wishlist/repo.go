package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts the customer-listing pair and ignores duplicates. The
// returned flag is true when the row already existed.
func (r *Repository) AddItem(ctx context.Context, customerID, listingID uuid.UUID) (*models.WishlistItem, bool, error) {
	if customerID == uuid.Nil || listingID == uuid.Nil {
		return nil, false, gorm.ErrInvalidValue
	}

	item := &models.WishlistItem{CustomerID: customerID, ListingID: listingID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}, {Name: "listing_id"}},
			DoNothing: true,
		}).
		Create(item)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return item, false, nil
	}

	existing, err := r.FindItem(ctx, customerID, listingID)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

func (r *Repository) FindItem(ctx context.Context, customerID, listingID uuid.UUID) (*models.WishlistItem, error) {
	var item models.WishlistItem
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND listing_id = ?", customerID, listingID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveItem deletes the customer-listing pair if it exists.
func (r *Repository) RemoveItem(ctx context.Context, customerID, listingID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("customer_id = ? AND listing_id = ?", customerID, listingID).
		Delete(&models.WishlistItem{}).
		Error
}

// ListItems returns every saved listing for a customer, newest first.
func (r *Repository) ListItems(ctx context.Context, customerID uuid.UUID) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	err := r.db.WithContext(ctx).
		Preload("Listing").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&items).Error
	return items, err
}

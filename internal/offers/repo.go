package offers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	"github.com/angelmondragon/archivesurmer-backend/pkg/pagination"
)

// OpenOfferIndex is the partial unique index allowing one open offer per
// customer and listing.
const OpenOfferIndex = "ux_offers_open_per_customer"

// ListFilter narrows an offer query. At least one field must be set by callers.
type ListFilter struct {
	CustomerID *uuid.UUID
	SellerID   *uuid.UUID
	ListingID  *uuid.UUID
	Status     *enums.OfferStatus
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, offer *models.Offer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	FindOpen(ctx context.Context, listingID, customerID uuid.UUID) (*models.Offer, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Offer, error)
	FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.Offer, error)
	CompareAndSwap(ctx context.Context, id uuid.UUID, from enums.OfferStatus, updates map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, offer *models.Offer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) FindOpen(ctx context.Context, listingID, customerID uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND customer_id = ?", listingID, customerID).
		Where("status IN ?", enums.OpenOfferStatuses).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Offer, error) {
	q := r.db.WithContext(ctx).
		Preload("Listing").
		Preload("Seller").
		Preload("Customer")
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.SellerID != nil {
		q = q.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.ListingID != nil {
		q = q.Where("listing_id = ?", *filter.ListingID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	var rows []models.Offer
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&rows).Error
	return rows, err
}

// FindExpired returns open offers created before cutoff, oldest first.
func (r *repository) FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.Offer, error) {
	var rows []models.Offer
	err := r.db.WithContext(ctx).
		Where("status IN ?", enums.OpenOfferStatuses).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// CompareAndSwap writes updates only while the offer still has status from and
// is unresolved. A lost race is (false, nil).
func (r *repository) CompareAndSwap(ctx context.Context, id uuid.UUID, from enums.OfferStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND status = ? AND resolved_at IS NULL", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

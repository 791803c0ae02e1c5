package listings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	"github.com/angelmondragon/archivesurmer-backend/pkg/pagination"
)

// Guard is the compare half of a compare-and-swap on a listing row. Zero
// fields are not checked; ID or SessionID must be set.
type Guard struct {
	ID             uuid.UUID
	SessionID      string
	SellerID       uuid.UUID
	From           []enums.ListingStatus
	WithoutSession bool
	ReservedBefore *time.Time
}

// Repository persists listings and their status history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Listing, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Listing, error)
	ListModerationQueue(ctx context.Context, status *enums.ModerationStatus, params pagination.Params) ([]models.Listing, error)
	FindStaleReservations(ctx context.Context, cutoff time.Time, limit int) ([]models.Listing, error)
	CompareAndSwap(ctx context.Context, guard Guard, updates map[string]any) (bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	AppendStatusEvent(ctx context.Context, event *models.ListingStatusEvent) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a listings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Where("checkout_session_id = ?", sessionID).
		Order("updated_at DESC").
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Listing, error) {
	q := r.db.WithContext(ctx).Model(&models.Listing{})
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.SellerID != nil {
		q = q.Where("seller_id = ?", *filter.SellerID)
	} else {
		q = q.Where("moderation_status = ?", enums.ModerationApproved)
	}
	if filter.IsNew != nil {
		q = q.Where("is_new = ?", *filter.IsNew)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(brand) LIKE ?)", pattern, pattern)
	}

	var rows []models.Listing
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListModerationQueue(ctx context.Context, status *enums.ModerationStatus, params pagination.Params) ([]models.Listing, error) {
	q := r.db.WithContext(ctx).Preload("Seller")
	if status != nil {
		q = q.Where("moderation_status = ?", *status)
	}
	var rows []models.Listing
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindStaleReservations(ctx context.Context, cutoff time.Time, limit int) ([]models.Listing, error) {
	var rows []models.Listing
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.ListingStatusReserved).
		Where("checkout_session_id IS NULL").
		Where("reserved_at IS NOT NULL AND reserved_at < ?", cutoff).
		Order("reserved_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// CompareAndSwap applies updates only where the row still matches guard and
// reports whether a row changed. A lost race is (false, nil), never an error.
func (r *repository) CompareAndSwap(ctx context.Context, guard Guard, updates map[string]any) (bool, error) {
	if guard.ID == uuid.Nil && guard.SessionID == "" {
		return false, nil
	}
	q := r.db.WithContext(ctx).Model(&models.Listing{})
	if guard.ID != uuid.Nil {
		q = q.Where("id = ?", guard.ID)
	}
	if guard.SessionID != "" {
		q = q.Where("checkout_session_id = ?", guard.SessionID)
	}
	if guard.SellerID != uuid.Nil {
		q = q.Where("seller_id = ?", guard.SellerID)
	}
	if len(guard.From) > 0 {
		q = q.Where("status IN ?", guard.From)
	}
	if guard.WithoutSession {
		q = q.Where("checkout_session_id IS NULL")
	}
	if guard.ReservedBefore != nil {
		q = q.Where("reserved_at < ?", *guard.ReservedBefore)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) AppendStatusEvent(ctx context.Context, event *models.ListingStatusEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

package profiles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
)

// Repository persists seller and customer profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindSellerByEmail(ctx context.Context, email string) (*models.SellerProfile, error)
	FindSellerByID(ctx context.Context, id uuid.UUID) (*models.SellerProfile, error)
	FindSellerByAccountID(ctx context.Context, accountID string) (*models.SellerProfile, error)
	CreateSeller(ctx context.Context, seller *models.SellerProfile) error
	UpdateSeller(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindCustomerByEmail(ctx context.Context, email string) (*models.CustomerProfile, error)
	CreateCustomer(ctx context.Context, customer *models.CustomerProfile) error
	UpdateCustomer(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a profiles repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindSellerByEmail(ctx context.Context, email string) (*models.SellerProfile, error) {
	var seller models.SellerProfile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repository) FindSellerByID(ctx context.Context, id uuid.UUID) (*models.SellerProfile, error) {
	var seller models.SellerProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repository) FindSellerByAccountID(ctx context.Context, accountID string) (*models.SellerProfile, error) {
	var seller models.SellerProfile
	if err := r.db.WithContext(ctx).Where("stripe_account_id = ?", accountID).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repository) CreateSeller(ctx context.Context, seller *models.SellerProfile) error {
	return r.db.WithContext(ctx).Create(seller).Error
}

func (r *repository) UpdateSeller(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.SellerProfile{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindCustomerByEmail(ctx context.Context, email string) (*models.CustomerProfile, error) {
	var customer models.CustomerProfile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) CreateCustomer(ctx context.Context, customer *models.CustomerProfile) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) UpdateCustomer(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.CustomerProfile{}).
		Where("id = ?", id).
		Updates(updates).Error
}

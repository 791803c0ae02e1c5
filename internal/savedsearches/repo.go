package savedsearches

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/pagination"
)

// Repository persists customer saved searches.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, search *models.SavedSearch) error {
	return r.db.WithContext(ctx).Create(search).Error
}

// List returns a customer's searches, newest first.
func (r *Repository) List(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.SavedSearch, error) {
	var searches []models.SavedSearch
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&searches).Error
	return searches, err
}

// Delete scopes the delete to the owning customer so foreign ids are no-ops.
func (r *Repository) Delete(ctx context.Context, customerID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", id, customerID).
		Delete(&models.SavedSearch{}).
		Error
}

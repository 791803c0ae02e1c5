// Package savedsearches stores catalogue filters customers want to revisit or
// be notified about.
package savedsearches

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/money"
	"github.com/angelmondragon/archivesurmer-backend/pkg/pagination"
)

const (
	maxQueryLen     = 120
	maxBrandLen     = 80
	maxSizeLen      = 40
	maxConditionLen = 40
)

type CustomerFinder interface {
	FindCustomer(ctx context.Context, email string) (*models.CustomerProfile, error)
}

type Service interface {
	List(ctx context.Context, customerEmail, limit, offset string) (ListDTO, error)
	Create(ctx context.Context, input CreateInput) (*SavedSearchDTO, error)
	Delete(ctx context.Context, customerEmail string, id uuid.UUID) (*RemoveResult, error)
}

type service struct {
	repo      *Repository
	customers CustomerFinder
}

func NewService(repo *Repository, customers CustomerFinder) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "saved search repo is required")
	}
	if customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer finder is required")
	}
	return &service{repo: repo, customers: customers}, nil
}

func (s *service) List(ctx context.Context, customerEmail, limit, offset string) (ListDTO, error) {
	customer, err := s.customers.FindCustomer(ctx, customerEmail)
	if err != nil {
		return ListDTO{}, err
	}
	if customer == nil {
		return ListDTO{Searches: []SavedSearchDTO{}}, nil
	}

	rows, err := s.repo.List(ctx, customer.ID, pagination.SavedSearches.Parse(limit, offset))
	if err != nil {
		return ListDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list saved searches")
	}
	out := make([]SavedSearchDTO, 0, len(rows))
	for i := range rows {
		out = append(out, ToDTO(&rows[i]))
	}
	return ListDTO{Count: len(out), Searches: out}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*SavedSearchDTO, error) {
	customer, err := s.requireCustomer(ctx, input.CustomerEmail)
	if err != nil {
		return nil, err
	}

	sortKey, err := enums.ParseSavedSearchSort(input.Sort)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sort must be one of: newest, price_asc, price_desc.")
	}
	minCents, err := optionalCents(input.MinPrice)
	if err != nil {
		return nil, err
	}
	maxCents, err := optionalCents(input.MaxPrice)
	if err != nil {
		return nil, err
	}
	if minCents != nil && maxCents != nil && *minCents > *maxCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_price cannot be higher than max_price.")
	}

	notify := true
	if input.NotifyEmail != nil {
		notify = *input.NotifyEmail
	}

	search := &models.SavedSearch{
		CustomerID:    customer.ID,
		SearchQuery:   optionalText(input.SearchQuery, maxQueryLen),
		Brand:         optionalText(input.Brand, maxBrandLen),
		Size:          optionalText(input.Size, maxSizeLen),
		Condition:     optionalText(input.Condition, maxConditionLen),
		MinPriceCents: minCents,
		MaxPriceCents: maxCents,
		SortKey:       sortKey,
		NotifyEmail:   notify,
	}
	if err := s.repo.Create(ctx, search); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create saved search")
	}
	dto := ToDTO(search)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, customerEmail string, id uuid.UUID) (*RemoveResult, error) {
	customer, err := s.requireCustomer(ctx, customerEmail)
	if err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "saved_search_id is required.")
	}
	if err := s.repo.Delete(ctx, customer.ID, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete saved search")
	}
	return &RemoveResult{Removed: true, ID: id}, nil
}

func (s *service) requireCustomer(ctx context.Context, email string) (*models.CustomerProfile, error) {
	customer, err := s.customers.FindCustomer(ctx, email)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Customer account not found. Create your customer account first.")
	}
	return customer, nil
}

// optionalCents accepts nil, zero or a positive major-unit amount.
func optionalCents(v *float64) (*int64, error) {
	if v == nil {
		return nil, nil
	}
	invalid := pkgerrors.New(pkgerrors.CodeValidation, "min_price/max_price must be positive numbers when provided.")
	if *v < 0 {
		return nil, invalid
	}
	var cents int64
	if *v > 0 {
		c, err := money.FromMajorFloat(*v)
		if err != nil {
			return nil, invalid
		}
		cents = c
	}
	return &cents, nil
}

func optionalText(raw string, max int) *string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	if utf8.RuneCountInString(v) > max {
		v = strings.TrimSpace(string([]rune(v)[:max]))
	}
	return &v
}

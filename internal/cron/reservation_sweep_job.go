package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/archivesurmer-backend/pkg/db/models"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

const (
	defaultReservationTTL = 15 * time.Minute
	defaultSweepBatch     = 200
)

// ReservationSweepJobParams configure the abandoned reservation sweep.
type ReservationSweepJobParams struct {
	Logger    *logger.Logger
	Listings  staleReservationReader
	Releaser  staleReservationReleaser
	TTL       time.Duration
	BatchSize int
}

type staleReservationReader interface {
	FindStaleReservations(ctx context.Context, cutoff time.Time, limit int) ([]models.Listing, error)
}

type staleReservationReleaser interface {
	ReleaseStale(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error)
}

// NewReservationSweepJob builds the job that returns listings reserved by a
// checkout that never opened a session back to active.
func NewReservationSweepJob(params ReservationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing reader required")
	}
	if params.Releaser == nil {
		return nil, fmt.Errorf("listing releaser required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultReservationTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &reservationSweepJob{
		logg:     params.Logger,
		listings: params.Listings,
		releaser: params.Releaser,
		ttl:      ttl,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type reservationSweepJob struct {
	logg     *logger.Logger
	listings staleReservationReader
	releaser staleReservationReleaser
	ttl      time.Duration
	batch    int
	now      func() time.Time
}

func (j *reservationSweepJob) Name() string { return "reservation-sweep" }

func (j *reservationSweepJob) Run(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.ttl)
	rows, err := j.listings.FindStaleReservations(ctx, cutoff, j.batch)
	if err != nil {
		return 0, fmt.Errorf("query stale reservations: %w", err)
	}

	var errs error
	released := 0
	for _, row := range rows {
		ok, err := j.releaser.ReleaseStale(ctx, row.ID, cutoff)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("release listing %s: %w", row.ID, err))
			continue
		}
		if ok {
			released++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(rows),
		"released":   released,
	})
	j.logg.Info(logCtx, "reservation sweep complete")
	return released, errs
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

const (
	defaultOfferTTL    = 7 * 24 * time.Hour
	defaultExpiryBatch = 500
)

type OfferExpiryJobParams struct {
	Logger    *logger.Logger
	Offers    offerExpirer
	TTL       time.Duration
	BatchSize int
}

type offerExpirer interface {
	ExpireBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// NewOfferExpiryJob builds the job that expires pending and countered offers
// older than the offer TTL.
func NewOfferExpiryJob(params OfferExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Offers == nil {
		return nil, fmt.Errorf("offer service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultOfferTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &offerExpiryJob{
		logg:   params.Logger,
		offers: params.Offers,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type offerExpiryJob struct {
	logg   *logger.Logger
	offers offerExpirer
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *offerExpiryJob) Name() string { return "offer-expiry" }

func (j *offerExpiryJob) Run(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired, err := j.offers.ExpireBefore(ctx, cutoff, j.batch)
	if err != nil {
		return 0, fmt.Errorf("expire offers: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"cutoff": cutoff, "expired": expired})
	j.logg.Info(logCtx, "offer expiry complete")
	return expired, nil
}

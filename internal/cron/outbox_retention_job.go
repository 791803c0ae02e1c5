package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

const (
	publishedKeepFor = 30 * 24 * time.Hour
	parkedKeepFor    = 90 * 24 * time.Hour
	retentionPace    = 6 * time.Hour
	parkedAttemptCap = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
	DeleteParkedBefore(tx *gorm.DB, cutoff time.Time, maxAttempts int) (int64, error)
}

// OutboxRetentionJobParams wires the outbox retention sweep. Zero durations
// fall back to 30 days for published rows and 90 days for parked ones.
type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Repository   outboxPurger
	PublishedFor time.Duration
	ParkedFor    time.Duration
	MaxAttempts  int
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxPurger
	published   time.Duration
	parked      time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	var errs []error
	if params.Logger == nil {
		errs = append(errs, errors.New("logger required"))
	}
	if params.DB == nil {
		errs = append(errs, errors.New("db runner required"))
	}
	if params.Repository == nil {
		errs = append(errs, errors.New("outbox repository required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	job := &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		published:   params.PublishedFor,
		parked:      params.ParkedFor,
		maxAttempts: params.MaxAttempts,
		now:         time.Now,
	}
	if job.published <= 0 {
		job.published = publishedKeepFor
	}
	if job.parked <= 0 {
		job.parked = parkedKeepFor
	}
	if job.maxAttempts <= 0 {
		job.maxAttempts = parkedAttemptCap
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Every() time.Duration { return retentionPace }

// Run purges delivered rows past their window and, on a longer window, rows
// the publisher gave up on. Both deletes share one transaction.
func (j *outboxRetentionJob) Run(ctx context.Context) (int, error) {
	now := j.now().UTC()
	var published, parked int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if published, err = j.repo.DeletePublishedBefore(tx, now.Add(-j.published)); err != nil {
			return fmt.Errorf("published rows: %w", err)
		}
		if parked, err = j.repo.DeleteParkedBefore(tx, now.Add(-j.parked), j.maxAttempts); err != nil {
			return fmt.Errorf("parked rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("outbox retention: %w", err)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"published_deleted": published,
		"parked_deleted":    parked,
		"published_window":  j.published.String(),
		"parked_window":     j.parked.String(),
	}), "outbox.retention.swept")
	return int(published + parked), nil
}

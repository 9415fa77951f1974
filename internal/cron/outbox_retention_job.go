package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDLQRetention    = 90 * 24 * time.Hour
	defaultRetentionBatch  = 1000
)

type publishedPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

type deadLetterPurger interface {
	DeleteParkedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// OutboxRetentionJobParams wires the outbox retention job. DeadLetters is
// optional; without it parked rows are kept forever.
type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Events       publishedPurger
	DeadLetters  deadLetterPurger
	Retention    time.Duration
	DLQRetention time.Duration
	BatchSize    int
}

// outboxRetentionJob purges published order events past the retention window
// in bounded batches, one transaction per batch, then old dead letters.
// Unpublished rows are never touched.
type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	events       publishedPurger
	deadLetters  deadLetterPurger
	retention    time.Duration
	dlqRetention time.Duration
	batch        int
	now          func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Events == nil:
		return nil, errors.New("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		events:       params.Events,
		deadLetters:  params.DeadLetters,
		retention:    params.Retention,
		dlqRetention: params.DLQRetention,
		batch:        params.BatchSize,
		now:          time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultOutboxRetention
	}
	if job.dlqRetention <= 0 {
		job.dlqRetention = defaultDLQRetention
	}
	if job.batch <= 0 {
		job.batch = defaultRetentionBatch
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.retention)

	var total int64
	for {
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			n, err := j.events.DeletePublishedBefore(ctx, tx, cutoff, j.batch)
			deleted = n
			return err
		})
		if err != nil {
			return fmt.Errorf("purge published events: %w", err)
		}
		total += deleted
		if deleted < int64(j.batch) || ctx.Err() != nil {
			break
		}
	}

	var parked int64
	if j.deadLetters != nil {
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			n, err := j.deadLetters.DeleteParkedBefore(ctx, tx, now.Add(-j.dlqRetention))
			parked = n
			return err
		})
		if err != nil {
			return fmt.Errorf("purge dead letters: %w", err)
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":              cutoff,
		"events_deleted":      total,
		"dead_letters_purged": parked,
	}), "outbox retention finished")
	return ctx.Err()
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultCartIdleAfter = 60 * 24 * time.Hour

// IdleCartJobParams wires the idle cart job.
type IdleCartJobParams struct {
	Logger     *logger.Logger
	Repository idleCartRepo
	IdleAfter  time.Duration
}

type idleCartRepo interface {
	DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewIdleCartJob drops cart items nobody has touched within IdleAfter. Stale
// lines referencing deleted catalog rows go with them.
func NewIdleCartJob(params IdleCartJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	idle := params.IdleAfter
	if idle <= 0 {
		idle = defaultCartIdleAfter
	}
	return &idleCartJob{logg: params.Logger, repo: params.Repository, idleAfter: idle, now: time.Now}, nil
}

type idleCartJob struct {
	logg      *logger.Logger
	repo      idleCartRepo
	idleAfter time.Duration
	now       func() time.Time
}

func (j *idleCartJob) Name() string { return "idle-cart-cleanup" }

func (j *idleCartJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.idleAfter)
	deleted, err := j.repo.DeleteIdleBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("idle cart cleanup: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "idle cart cleanup complete")
	return nil
}

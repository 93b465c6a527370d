package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentaldesk/rentaldesk/internal/dashboard"
)

// DashboardWarmupJob pre-populates dashboard caches for every active owner
// plus the administrative rollup.
type DashboardWarmupJob struct {
	Dashboard *dashboard.Service
	Cache     *dashboard.Cache
	Pool      *pgxpool.Pool
	Logger    *slog.Logger
	clock     func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(svc *dashboard.Service, cache *dashboard.Cache, pool *pgxpool.Pool, logger *slog.Logger) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Dashboard: svc,
		Cache:     cache,
		Pool:      pool,
		Logger:    logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Dashboard == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	start := j.now()
	logger.Info("starting dashboard warmup")

	if payload.BumpVersion {
		if err := j.Cache.Bump(ctx); err != nil {
			logger.Error("bump cache version", slog.Any("error", err))
			return err
		}
	}

	owners, err := j.fetchOwners(ctx)
	if err != nil {
		logger.Error("load owners for warmup", slog.Any("error", err))
		return err
	}

	// Administrative rollup first, then each owner scope.
	if err := j.warmScope(ctx, nil); err != nil {
		logger.Error("warm admin scope", slog.Any("error", err))
		return err
	}
	for _, ownerID := range owners {
		id := ownerID
		if err := j.warmScope(ctx, &id); err != nil {
			logger.Error("warm owner scope", slog.Int64("owner_id", ownerID), slog.Any("error", err))
			return err
		}
	}

	logger.Info("completed dashboard warmup",
		slog.Int("owners", len(owners)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *DashboardWarmupJob) warmScope(ctx context.Context, ownerID *int64) error {
	scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	return j.Dashboard.Prime(scopeCtx, ownerID)
}

func (j *DashboardWarmupJob) fetchOwners(ctx context.Context) ([]int64, error) {
	if j.Pool == nil {
		return nil, errors.New("dashboard warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `
		SELECT DISTINCT owner_id FROM quotes
		UNION
		SELECT DISTINCT owner_id FROM leads
		ORDER BY owner_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make([]int64, 0)
	for rows.Next() {
		var ownerID int64
		if err := rows.Scan(&ownerID); err != nil {
			return nil, err
		}
		owners = append(owners, ownerID)
	}
	return owners, rows.Err()
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

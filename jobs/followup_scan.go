package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/rentaldesk/rentaldesk/internal/leads"
)

// FollowupScanJob sweeps leads whose follow-up date is due and logs a
// reminder per owner. The sweep is read-only; it never mutates lead rows,
// so a crashed run needs no compensation.
type FollowupScanJob struct {
	Leads  *leads.Service
	Logger *slog.Logger
	clock  func() time.Time
}

// NewFollowupScanJob wires dependencies for the sweep handler.
func NewFollowupScanJob(leadSvc *leads.Service, logger *slog.Logger) *FollowupScanJob {
	return &FollowupScanJob{
		Leads:  leadSvc,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes follow-up sweep tasks.
func (j *FollowupScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Leads == nil {
		return errors.New("followup scan: handler not configured")
	}
	var payload FollowupScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	start := j.now()
	logger.Info("starting follow-up scan", slog.Bool("dry_run", payload.DryRun))

	owners, err := j.Leads.OwnersWithDueFollowUps(ctx)
	if err != nil {
		logger.Error("list owners with due follow-ups", slog.Any("error", err))
		return err
	}
	if len(owners) == 0 {
		logger.Info("no due follow-ups")
		return nil
	}

	total := 0
	for _, ownerID := range owners {
		due, err := j.Leads.GetPendingFollowUps(ctx, ownerID)
		if err != nil {
			logger.Error("load due follow-ups", slog.Int64("owner_id", ownerID), slog.Any("error", err))
			return err
		}
		total += len(due)
		if payload.DryRun {
			logger.Info("would remind owner", slog.Int64("owner_id", ownerID), slog.Int("leads", len(due)))
			continue
		}
		for _, lead := range due {
			logger.Info("follow-up due",
				slog.Int64("owner_id", ownerID),
				slog.Int64("lead_id", lead.ID),
				slog.String("lead", lead.Name),
				slog.String("status", string(lead.Status)))
		}
	}

	logger.Info("completed follow-up scan",
		slog.Int("owners", len(owners)),
		slog.Int("leads", total),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *FollowupScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskFollowupScan))
	}
	return slog.Default().With(slog.String("job", TaskFollowupScan))
}

func (j *FollowupScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

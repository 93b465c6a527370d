package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskFollowupScan is the task type for the lead follow-up sweep.
	TaskFollowupScan = "leads:followup_scan"
	// TaskDashboardWarmup is the task type for pre-populating dashboard caches.
	TaskDashboardWarmup = "dashboard:warmup"
)

// FollowupScanPayload tunes the follow-up sweep.
type FollowupScanPayload struct {
	// DryRun skips reminder emission and only logs what would fire.
	DryRun bool `json:"dry_run,omitempty"`
}

// DashboardWarmupPayload tunes the cache warmup pass.
type DashboardWarmupPayload struct {
	// BumpVersion invalidates existing entries before priming new ones.
	BumpVersion bool `json:"bump_version,omitempty"`
}

// NewFollowupScanTask constructs an Asynq task for the follow-up sweep.
func NewFollowupScanTask(payload FollowupScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowupScan, data), nil
}

// NewDashboardWarmupTask constructs an Asynq task for the warmup pass.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}

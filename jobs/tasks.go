package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerWarmup recomputes the ledger and refills the status cache.
	TaskLedgerWarmup = "ledger:warmup"
	// TaskUtilizationScan reports cost areas above the alert threshold.
	TaskUtilizationScan = "ledger:utilization_scan"
)

// taskNamespace scopes deterministic task IDs to this service.
var taskNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mnledger/jobs"))

// LedgerWarmupPayload describes why the warmup was requested.
type LedgerWarmupPayload struct {
	Reason string `json:"reason"`
}

// UtilizationScanPayload carries the alert threshold in percent.
type UtilizationScanPayload struct {
	ThresholdPct float64 `json:"threshold_pct"`
}

// NewLedgerWarmupTask builds a warmup task.
func NewLedgerWarmupTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "scheduled"
	}
	body, err := json.Marshal(LedgerWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerWarmup, body, asynq.Queue(QueueDefault)), nil
}

// NewUtilizationScanTask builds a scan task for the given threshold.
func NewUtilizationScanTask(thresholdPct float64) (*asynq.Task, error) {
	if thresholdPct <= 0 {
		return nil, fmt.Errorf("jobs: utilization threshold must be positive, got %v", thresholdPct)
	}
	body, err := json.Marshal(UtilizationScanPayload{ThresholdPct: thresholdPct})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskUtilizationScan, body, asynq.Queue(QueueDefault)), nil
}

// TaskID derives a stable ID so repeated manual triggers within the same
// minute collapse into one queued task.
func TaskID(taskType string, at time.Time) string {
	bucket := at.UTC().Truncate(time.Minute).Format(time.RFC3339)
	return uuid.NewSHA1(taskNamespace, []byte(taskType+"|"+bucket)).String()
}

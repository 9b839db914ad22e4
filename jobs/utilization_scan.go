package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/mnledger/internal/jobs"
	"github.com/odyssey-erp/mnledger/internal/ledger"
)

// LedgerSource recomputes the ledger straight from storage.
type LedgerSource interface {
	Recompute(ctx context.Context) (ledger.Status, error)
}

// UtilizationScanJob publishes per-area utilization and flags areas close to
// their allocation.
type UtilizationScanJob struct {
	Ledger  LedgerSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewUtilizationScanJob initialises the scan handler.
func NewUtilizationScanJob(source LedgerSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *UtilizationScanJob {
	return &UtilizationScanJob{
		Ledger:  source,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan.
func (j *UtilizationScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("utilization scan: handler not configured")
	}
	var payload UtilizationScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.ThresholdPct <= 0 {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskUtilizationScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	logger := j.logger().With(slog.Float64("threshold_pct", payload.ThresholdPct))
	logger.Info("starting utilization scan")

	status, err := j.Ledger.Recompute(ctx)
	if err != nil {
		resultErr = err
		logger.Error("recompute ledger", slog.Any("error", err))
		return resultErr
	}

	flagged := ledger.Above(status, payload.ThresholdPct)
	for _, area := range status.Areas {
		j.metrics().SetUtilization(area.CostArea, area.UtilizationPct)
	}
	for _, area := range flagged {
		logger.Warn("cost area above utilization threshold",
			slog.String("cost_area", area.CostArea),
			slog.String("department", area.Department),
			slog.Float64("utilization_pct", area.UtilizationPct),
			slog.Float64("remaining", area.Remaining),
		)
		j.metrics().AddAlerts(area.CostArea)
	}

	logger.Info("completed utilization scan",
		slog.Int("areas", len(status.Areas)),
		slog.Int("flagged", len(flagged)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *UtilizationScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskUtilizationScan))
	}
	return slog.Default().With(slog.String("job", TaskUtilizationScan))
}

func (j *UtilizationScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *UtilizationScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

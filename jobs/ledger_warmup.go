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

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LedgerWarmer recomputes the ledger and stores it in the read cache.
type LedgerWarmer interface {
	Warm(ctx context.Context) (ledger.Status, error)
}

// LedgerWarmupJob pre-populates the ledger status cache.
type LedgerWarmupJob struct {
	Ledger  LedgerWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLedgerWarmupJob wires dependencies for the warmup handler.
func NewLedgerWarmupJob(warmer LedgerWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerWarmupJob {
	return &LedgerWarmupJob{
		Ledger:  warmer,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes ledger warmup tasks.
func (j *LedgerWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("ledger warmup: handler not configured")
	}
	var payload LedgerWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskLedgerWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	logger := j.logger().With(slog.String("reason", payload.Reason))
	logger.Info("starting ledger warmup")

	status, err := j.Ledger.Warm(ctx)
	if err != nil {
		resultErr = err
		logger.Error("warm ledger", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed ledger warmup",
		slog.Int("areas", len(status.Areas)),
		slog.Float64("remaining", status.Totals.Remaining),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *LedgerWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerWarmup))
	}
	return slog.Default().With(slog.String("job", TaskLedgerWarmup))
}

func (j *LedgerWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LedgerWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

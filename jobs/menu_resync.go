package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/harmonia-web/portal/internal/jobs"
	"github.com/harmonia-web/portal/internal/menu"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const resyncFetchTimeout = 20 * time.Second

// MenuResyncJob checks that the remote taxonomy still resolves and then
// invalidates navigation caches on every web node.
type MenuResyncJob struct {
	Fetcher     menu.Fetcher
	Broadcaster menu.Broadcaster
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// NewMenuResyncJob wires dependencies for the resync handler.
func NewMenuResyncJob(fetcher menu.Fetcher, broadcaster menu.Broadcaster, logger *slog.Logger, metrics *jobmetrics.Metrics) *MenuResyncJob {
	return &MenuResyncJob{
		Fetcher:     fetcher,
		Broadcaster: broadcaster,
		Logger:      logger,
		Metrics:     metrics,
	}
}

// Handle processes menu resync tasks. A taxonomy that cannot be fetched is
// retried without touching the caches, so web nodes keep their last good
// navigation.
func (j *MenuResyncJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Fetcher == nil || j.Broadcaster == nil {
		return errors.New("menu resync: handler not configured")
	}
	var payload MenuResyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("menu resync: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskMenuResync)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	start := time.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, resyncFetchTimeout)
	defer cancel()
	types, err := j.Fetcher.MenuStructure(fetchCtx)
	if err != nil {
		logger.Error("fetch menu taxonomy", slog.Any("error", err))
		return fmt.Errorf("menu resync: fetch: %w", err)
	}
	items, ok := menu.Transform(types)
	if !ok {
		logger.Warn("menu taxonomy has no usable menu type, web nodes will serve the default navigation")
	}

	if err := j.Broadcaster.Publish(ctx); err != nil {
		logger.Error("publish menu invalidation", slog.Any("error", err))
		return fmt.Errorf("menu resync: publish: %w", err)
	}
	j.metrics().RecordResync(payload.Reason, len(items))

	logger.Info("completed menu resync", slog.Int("entries", len(items)), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *MenuResyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskMenuResync))
	}
	return slog.Default().With(slog.String("job", TaskMenuResync))
}

func (j *MenuResyncJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

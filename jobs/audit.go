package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/bemobi-ops/ops-console/internal/jobs"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

// AuditRecorder persists audit records. *shared.AuditLogger satisfies it.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// AuditJob writes queued audit records into audit_logs.
type AuditJob struct {
	recorder AuditRecorder
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewAuditJob constructs the handler for TaskAuditRecord.
func NewAuditJob(recorder AuditRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditJob{recorder: recorder, logger: logger, metrics: metrics}
}

// Handle processes TaskAuditRecord. Undecodable or incomplete payloads are
// dropped without retry; storage errors are returned for redelivery.
func (j *AuditJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track("audit_record")
	var log shared.AuditLog
	if err := json.Unmarshal(task.Payload(), &log); err != nil {
		j.logger.Error("audit payload decode", slog.Any("error", err))
		return tracker.End(fmt.Errorf("decode audit payload: %v: %w", err, asynq.SkipRetry))
	}
	if err := log.Validate(); err != nil {
		j.logger.Error("audit payload invalid", slog.String("action", log.Action), slog.Any("error", err))
		return tracker.End(fmt.Errorf("%v: %w", err, asynq.SkipRetry))
	}
	if err := j.recorder.Record(ctx, log); err != nil {
		j.logger.Warn("audit record", slog.String("action", log.Action), slog.String("entity_id", log.EntityID), slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("audit recorded", slog.String("action", log.Action), slog.Int64("actor_id", log.ActorID), slog.String("entity_id", log.EntityID))
	return tracker.End(nil)
}

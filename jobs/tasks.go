package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/bemobi-ops/ops-console/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueAudit receives audit records of user-management mutations.
	QueueAudit = "audit"
	// TaskAuditRecord persists one shared.AuditLog.
	TaskAuditRecord = "audit:record"
)

// auditMaxRetry bounds redelivery of an audit record while Postgres is down.
const auditMaxRetry = 10

// NewAuditTask constructs the asynq task carrying log. The task id is random
// so a retried Submit never collapses two distinct mutations.
func NewAuditTask(log shared.AuditLog) (*asynq.Task, error) {
	if err := log.Validate(); err != nil {
		return nil, err
	}
	if log.At.IsZero() {
		log.At = time.Now().UTC()
	}
	data, err := json.Marshal(log)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRecord, data,
		asynq.Queue(QueueAudit),
		asynq.MaxRetry(auditMaxRetry),
		asynq.TaskID(uuid.NewString()),
	), nil
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-hr/odyssey-hr/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPrincipalsInvalidate drops cached principals after account or grant changes.
	TaskPrincipalsInvalidate = "principals:invalidate"
)

// PrincipalsInvalidatePayload names the account whose cached principal is stale.
// A zero UserID invalidates every principal.
type PrincipalsInvalidatePayload struct {
	UserID int64 `json:"user_id"`
}

// NewPrincipalsInvalidateTask constructs an Asynq task.
func NewPrincipalsInvalidateTask(payload PrincipalsInvalidatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPrincipalsInvalidate, data), nil
}

// Invalidator drops cached principals.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// InvalidationRecorder counts completed invalidations by scope.
type InvalidationRecorder interface {
	RecordInvalidation(scope string)
}

// Invalidation scopes reported to InvalidationRecorder.
const (
	ScopeUser = "user"
	ScopeAll  = "all"
)

// PrincipalsInvalidateJob handles TaskPrincipalsInvalidate.
type PrincipalsInvalidateJob struct {
	Cache    Invalidator
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Recorder InvalidationRecorder
}

// Handle processes a principal invalidation task.
func (j *PrincipalsInvalidateJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Cache == nil {
		return errors.New("principals invalidate: handler not configured")
	}
	tracker := j.Metrics.Track(TaskPrincipalsInvalidate)
	defer func() {
		err = tracker.End(err)
	}()

	var payload PrincipalsInvalidatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("principals invalidate: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.UserID < 0 {
		return fmt.Errorf("principals invalidate: negative user id %d: %w", payload.UserID, asynq.SkipRetry)
	}

	logger := j.logger().With(slog.Int64("user_id", payload.UserID))
	if err = j.Cache.Invalidate(ctx, payload.UserID); err != nil {
		logger.Error("invalidate principals", slog.Any("error", err))
		return err
	}
	scope := ScopeUser
	if payload.UserID == 0 {
		scope = ScopeAll
	}
	if j.Recorder != nil {
		j.Recorder.RecordInvalidation(scope)
	}
	logger.Info("invalidated principals", slog.String("scope", scope))
	return nil
}

func (j *PrincipalsInvalidateJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

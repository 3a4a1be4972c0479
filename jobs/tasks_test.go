package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-hr/odyssey-hr/internal/jobs"
	"github.com/odyssey-hr/odyssey-hr/internal/principals"
)

type recordingInvalidator struct {
	ids []int64
	err error
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, userID int64) error {
	r.ids = append(r.ids, userID)
	return r.err
}

func newTask(t *testing.T, userID int64) *asynq.Task {
	t.Helper()
	task, err := NewPrincipalsInvalidateTask(PrincipalsInvalidatePayload{UserID: userID})
	require.NoError(t, err)
	return task
}

func TestPrincipalsInvalidateTaskPayload(t *testing.T) {
	task := newTask(t, 42)
	require.Equal(t, TaskPrincipalsInvalidate, task.Type())

	var payload PrincipalsInvalidatePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, int64(42), payload.UserID)
}

func TestPrincipalsInvalidateJobCallsCache(t *testing.T) {
	inv := &recordingInvalidator{}
	job := &PrincipalsInvalidateJob{Cache: inv, Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry())}

	require.NoError(t, job.Handle(context.Background(), newTask(t, 7)))
	require.NoError(t, job.Handle(context.Background(), newTask(t, 0)))
	require.Equal(t, []int64{7, 0}, inv.ids)
}

type scopeRecorder struct {
	scopes []string
}

func (s *scopeRecorder) RecordInvalidation(scope string) {
	s.scopes = append(s.scopes, scope)
}

func TestPrincipalsInvalidateJobRecordsScope(t *testing.T) {
	rec := &scopeRecorder{}
	job := &PrincipalsInvalidateJob{Cache: &recordingInvalidator{}, Recorder: rec}

	require.NoError(t, job.Handle(context.Background(), newTask(t, 7)))
	require.NoError(t, job.Handle(context.Background(), newTask(t, 0)))
	require.Equal(t, []string{ScopeUser, ScopeAll}, rec.scopes)

	failing := &PrincipalsInvalidateJob{Cache: &recordingInvalidator{err: errors.New("redis down")}, Recorder: rec}
	require.Error(t, failing.Handle(context.Background(), newTask(t, 9)))
	require.Len(t, rec.scopes, 2)
}

func TestPrincipalsInvalidateJobSkipsMalformedPayload(t *testing.T) {
	inv := &recordingInvalidator{}
	job := &PrincipalsInvalidateJob{Cache: inv}

	err := job.Handle(context.Background(), asynq.NewTask(TaskPrincipalsInvalidate, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	err = job.Handle(context.Background(), newTask(t, -1))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, inv.ids)
}

func TestPrincipalsInvalidateJobSurfacesFailure(t *testing.T) {
	boom := errors.New("redis down")
	job := &PrincipalsInvalidateJob{Cache: &recordingInvalidator{err: boom}}
	require.ErrorIs(t, job.Handle(context.Background(), newTask(t, 3)), boom)

	var unconfigured *PrincipalsInvalidateJob
	require.Error(t, unconfigured.Handle(context.Background(), newTask(t, 3)))
}

func TestPrincipalsInvalidateJobBumpsRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := principals.NewCache(client, time.Minute)

	job := &PrincipalsInvalidateJob{Cache: cache}
	require.NoError(t, job.Handle(context.Background(), newTask(t, 0)))

	ver, err := cache.Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), ver)
}

func TestPrincipalsInvalidateJobCountsSkippedRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	job := &PrincipalsInvalidateJob{Cache: &recordingInvalidator{}, Metrics: jobmetrics.NewMetrics(reg)}

	err := job.Handle(context.Background(), newTask(t, -5))
	require.ErrorIs(t, err, asynq.SkipRetry)

	count, err := testutil.GatherAndCount(reg, "odyssey_jobs_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestJobsHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, nil)
	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, queueHealth{Queue: QueueDefault}, body)
}

func TestJobsHealthReportsBacklog(t *testing.T) {
	h := NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4, Retry: 1, Failed: 2}}, nil)
	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 4, body.Pending)
	require.Equal(t, 1, body.Retry)
	require.Equal(t, 2, body.Failed)
}

func TestJobsHealthInspectorFailure(t *testing.T) {
	h := NewHandler(fakeInspector{err: errors.New("redis down")}, nil)
	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestNewWorkerRejectsIncompleteHandler(t *testing.T) {
	_, err := NewWorker(WorkerConfig{Handlers: []TaskHandler{{Type: TaskPrincipalsInvalidate}}})
	require.Error(t, err)
}

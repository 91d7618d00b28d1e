package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	calls atomic.Int32
	err   error
	panic bool
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Execute(ctx context.Context) error {
	j.calls.Add(1)
	if j.panic {
		panic("boom")
	}
	return j.err
}

func newTestScheduler() *Scheduler {
	return NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScheduler_AddJobRejectsBadSpec(t *testing.T) {
	s := newTestScheduler()

	err := s.AddJob("not a cron", &countingJob{name: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule bad")
	assert.Empty(t, s.Jobs())
}

func TestScheduler_AddJobReplacesSameName(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob("0 3 * * *", &countingJob{name: "block_inactive_users"}))
	require.NoError(t, s.AddJob("0 4 * * *", &countingJob{name: "block_inactive_users"}))

	assert.Equal(t, []string{"block_inactive_users"}, s.Jobs())
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_RunOnce(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "ok"}
	failing := &countingJob{name: "fail", err: errors.New("db down")}

	require.NoError(t, s.AddJob("@daily", job))
	require.NoError(t, s.AddJob("@daily", failing))

	require.NoError(t, s.RunOnce(context.Background(), "ok"))
	assert.EqualError(t, s.RunOnce(context.Background(), "fail"), "db down")
	assert.Error(t, s.RunOnce(context.Background(), "missing"))

	assert.Equal(t, int32(1), job.calls.Load())
	assert.Equal(t, int32(1), failing.calls.Load())
}

func TestScheduler_ExecuteJobRecoversPanic(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "panics", panic: true}

	assert.NotPanics(t, func() { s.executeJob(job) })
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)), WithLocation(time.UTC), WithTimeout(time.Second))
	require.NoError(t, s.AddJob("@every 1h", &countingJob{name: "hourly"}))

	s.Start()
	s.Start()
	assert.True(t, s.running)

	s.Stop()
	s.Stop()
	assert.False(t, s.running)
	assert.Equal(t, time.Second, s.timeout)
}

type blockingJob struct {
	once    sync.Once
	started chan struct{}
	err     chan error
}

func (j *blockingJob) Name() string { return "blocking" }

func (j *blockingJob) Execute(ctx context.Context) error {
	j.once.Do(func() { close(j.started) })
	<-ctx.Done()
	select {
	case j.err <- ctx.Err():
	default:
	}
	return ctx.Err()
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	s := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)), WithTimeout(time.Minute))
	job := &blockingJob{started: make(chan struct{}), err: make(chan error, 1)}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	select {
	case <-job.started:
	case <-time.After(5 * time.Second):
		s.Stop()
		t.Fatal("job never started")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a job was running")
	}
	assert.ErrorIs(t, <-job.err, context.Canceled)
}

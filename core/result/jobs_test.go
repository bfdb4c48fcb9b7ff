package result

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/followup/core"
)

type processorFunc func(ctx context.Context, req UploadRequest) (Outcome, error)

func (f processorFunc) Process(ctx context.Context, req UploadRequest) (Outcome, error) {
	return f(ctx, req)
}

func newTestRunner(t *testing.T, proc Processor) *JobRunner {
	r, err := NewJobRunner(proc, core.JobsConfig{Retention: time.Hour}, core.NopLogger{})
	require.NoError(t, err)
	return r
}

func jobRequest() UploadRequest {
	return UploadRequest{
		ModuleID:   7,
		TestName:   T1,
		SubjectID:  "3",
		UploadedBy: "coordinator",
		File:       bytes.NewReader([]byte("xlsx")),
	}
}

func TestJobRunner_Submit(t *testing.T) {
	tests := []struct {
		name        string
		proc        processorFunc
		wantStatus  JobStatus
		wantMessage string
	}{
		{
			name: "completed",
			proc: func(_ context.Context, req UploadRequest) (Outcome, error) {
				req.Hooks.Progress(Progress{Current: 1, Total: 2})
				return Outcome{Message: "Processed 2 rows."}, nil
			},
			wantStatus:  JobCompleted,
			wantMessage: "Upload completed.",
		},
		{
			name: "import error",
			proc: func(context.Context, UploadRequest) (Outcome, error) {
				return Outcome{}, errors.Wrap(core.NewImportError("Enrollment column not found"), "importing")
			},
			wantStatus:  JobFailed,
			wantMessage: "Enrollment column not found",
		},
		{
			name: "panic",
			proc: func(context.Context, UploadRequest) (Outcome, error) {
				panic("boom")
			},
			wantStatus:  JobFailed,
			wantMessage: "Upload failed.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRunner(t, tc.proc)
			job, err := r.Submit(jobRequest())
			require.NoError(t, err)
			assert.Equal(t, JobQueued, job.Status)
			assert.Equal(t, "coordinator", job.CreatedBy)

			r.Wait()
			got, err := r.Get(7, job.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, got.Status)
			assert.Equal(t, tc.wantMessage, got.Message)
			assert.True(t, got.Finished())
			if tc.wantStatus == JobCompleted {
				require.NotNil(t, got.Result)
				assert.Equal(t, "Processed 2 rows.", got.Result.Message)
				assert.Equal(t, 1, got.Current)
				assert.Equal(t, 1, got.Total)
			} else {
				assert.Nil(t, got.Result)
			}
		})
	}
}

func TestJobRunner_Submit_invalid(t *testing.T) {
	r := newTestRunner(t, processorFunc(func(context.Context, UploadRequest) (Outcome, error) {
		t.Fatal("invalid requests must not be processed")
		return Outcome{}, nil
	}))
	req := jobRequest()
	req.TestName = "T7"
	_, err := r.Submit(req)
	require.Error(t, err)
	assert.Equal(t, "Invalid test name", err.Error())
}

func TestJobRunner_Cancel(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	r := newTestRunner(t, processorFunc(func(_ context.Context, req UploadRequest) (Outcome, error) {
		close(started)
		<-release
		if req.Hooks.Cancelled() {
			return Outcome{}, ErrCancelled
		}
		return Outcome{}, nil
	}))

	job, err := r.Submit(jobRequest())
	require.NoError(t, err)
	<-started

	assert.Equal(t, ErrJobNotFound, r.Cancel(8, job.ID), "jobs are scoped to their module")
	require.NoError(t, r.Cancel(7, job.ID))
	got, err := r.Get(7, job.ID)
	require.NoError(t, err)
	assert.True(t, got.CancelRequested)
	assert.Equal(t, "Cancelling upload...", got.Message)

	close(release)
	r.Wait()

	got, err = r.Get(7, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobCancelled, got.Status)
	assert.Equal(t, "Upload cancelled.", got.Message)
	assert.Equal(t, ErrJobFinished, r.Cancel(7, job.ID))
}

func TestJobRunner_Get_notFound(t *testing.T) {
	r := newTestRunner(t, processorFunc(func(context.Context, UploadRequest) (Outcome, error) { return Outcome{}, nil }))
	_, err := r.Get(7, "missing")
	assert.Equal(t, ErrJobNotFound, err)
	assert.Equal(t, ErrJobNotFound, r.Cancel(7, "missing"))
}

func TestJobRunner_Prune(t *testing.T) {
	clock := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	r := newTestRunner(t, processorFunc(func(context.Context, UploadRequest) (Outcome, error) { return Outcome{}, nil }))
	r.nowFunc = func() time.Time { return clock }

	done, err := r.Submit(jobRequest())
	require.NoError(t, err)
	r.Wait()

	clock = clock.Add(30 * time.Minute)
	assert.Zero(t, r.Prune(), "finished jobs are kept for the retention period")

	clock = clock.Add(time.Hour)
	assert.Equal(t, 1, r.Prune())
	_, err = r.Get(7, done.ID)
	assert.Equal(t, ErrJobNotFound, err)
}

func TestNewJobRunner_badSchedule(t *testing.T) {
	_, err := NewJobRunner(nil, core.JobsConfig{Retention: time.Hour, PruneSchedule: "every now and then"}, core.NopLogger{})
	assert.Error(t, err)
}

func TestJobRunner_StartStop(t *testing.T) {
	r, err := NewJobRunner(nil, core.JobsConfig{Retention: time.Hour, PruneSchedule: "@every 1m"}, core.NopLogger{})
	require.NoError(t, err)
	r.Start()
	r.Stop()
}

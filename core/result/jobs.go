package result

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/followup/core"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

var (
	ErrJobNotFound = errors.New("Job not found")
	ErrJobFinished = errors.New("Upload is already finished.")
)

// Processor runs result uploads.
type Processor interface {
	Process(ctx context.Context, req UploadRequest) (Outcome, error)
}

var _ Processor = (*Service)(nil)

// Job is a result upload running in the background.
type Job struct {
	ID        string    `json:"job_id"`
	ModuleID  int       `json:"-"`
	CreatedBy string    `json:"created_by"`
	Status    JobStatus `json:"status"`
	Progress
	Result          *Outcome  `json:"result,omitempty"`
	CancelRequested bool      `json:"cancel_requested"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (j Job) Finished() bool {
	return j.Status != JobQueued && j.Status != JobRunning
}

// JobRunner runs result uploads in goroutines, lets clients poll & cancel them,
// and prunes finished jobs older than the retention period on a cron schedule.
type JobRunner struct {
	proc      Processor
	logger    core.Logger
	retention time.Duration
	cron      *cron.Cron
	nowFunc   func() time.Time

	mu   sync.RWMutex
	jobs map[string]*Job
	wg   sync.WaitGroup
}

func NewJobRunner(proc Processor, conf core.JobsConfig, logger core.Logger) (*JobRunner, error) {
	r := &JobRunner{
		proc:      proc,
		logger:    logger,
		retention: conf.Retention,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		nowFunc:   time.Now,
		jobs:      make(map[string]*Job),
	}
	if conf.PruneSchedule != "" {
		if _, err := r.cron.AddFunc(conf.PruneSchedule, func() {
			if n := r.Prune(); n > 0 {
				r.logger.Debug(fmt.Sprintf("pruned %d finished result upload jobs", n))
			}
		}); err != nil {
			return nil, errors.Wrap(err, "scheduling job pruning")
		}
	}
	return r, nil
}

// Start starts the pruning schedule.
func (r *JobRunner) Start() {
	r.cron.Start()
}

// Stop stops the pruning schedule and waits for the running uploads.
func (r *JobRunner) Stop() {
	<-r.cron.Stop().Done()
	r.wg.Wait()
}

// Wait blocks until every submitted upload is finished.
func (r *JobRunner) Wait() {
	r.wg.Wait()
}

// Submit validates the request, buffers its file and starts the upload in the background.
func (r *JobRunner) Submit(req UploadRequest) (Job, error) {
	if err := req.Clean(); err != nil {
		return Job{}, err
	}
	data, err := io.ReadAll(req.File)
	if err != nil {
		return Job{}, errors.Wrap(err, "reading result file")
	}
	req.File = bytes.NewReader(data)

	now := r.nowFunc().UTC()
	job := &Job{
		ID:        uuid.NewString(),
		ModuleID:  req.ModuleID,
		CreatedBy: req.UploadedBy,
		Status:    JobQueued,
		Progress:  Progress{Message: "Upload queued..."},
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	snapshot := *job
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(job.ID, req)
	return snapshot, nil
}

func (r *JobRunner) update(id string, fn func(j *Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		fn(j)
		j.UpdatedAt = r.nowFunc().UTC()
	}
}

func (r *JobRunner) cancelRequested(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	return ok && j.CancelRequested
}

func (r *JobRunner) run(id string, req UploadRequest) {
	defer r.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(fmt.Sprintf("result upload job %s panicked: %v", id, rec))
			r.update(id, func(j *Job) {
				j.Status = JobFailed
				j.Message = "Upload failed."
			})
		}
	}()

	r.update(id, func(j *Job) {
		j.Status = JobRunning
		j.Message = "Reading marks and preparing result call list..."
	})

	req.Hooks = Hooks{
		Progress: func(p Progress) {
			r.update(id, func(j *Job) {
				if p.Message == "" {
					p.Message = "Processing result upload..."
				}
				j.Progress = p
			})
		},
		Cancelled: func() bool { return r.cancelRequested(id) },
	}

	outcome, err := r.proc.Process(context.Background(), req)
	cancelled := r.cancelRequested(id)
	r.update(id, func(j *Job) {
		switch {
		case cancelled:
			j.Status = JobCancelled
			j.Message = "Upload cancelled."
		case err != nil:
			j.Status = JobFailed
			j.Message = errors.Cause(err).Error()
		default:
			j.Status = JobCompleted
			j.Message = "Upload completed."
			j.Result = &outcome
			j.Current, j.Total = 1, 1
		}
	})
	if err != nil && !cancelled && !core.IsImportError(err) {
		r.logger.Error(fmt.Sprintf("result upload job %s failed: %+v", id, err))
	}
}

// Get returns a snapshot of a job of the module.
func (r *JobRunner) Get(moduleID int, id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok || j.ModuleID != moduleID {
		return Job{}, ErrJobNotFound
	}
	return *j, nil
}

// Cancel asks a queued or running job to stop at its next checkpoint.
func (r *JobRunner) Cancel(moduleID int, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.ModuleID != moduleID {
		return ErrJobNotFound
	}
	if j.Finished() {
		return ErrJobFinished
	}
	j.CancelRequested = true
	j.Message = "Cancelling upload..."
	j.UpdatedAt = r.nowFunc().UTC()
	return nil
}

// Prune forgets the finished jobs last updated before the retention period.
func (r *JobRunner) Prune() int {
	cutoff := r.nowFunc().UTC().Add(-r.retention)
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for id, j := range r.jobs {
		if j.Finished() && j.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			n++
		}
	}
	return n
}

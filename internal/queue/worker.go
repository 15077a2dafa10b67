package queue

import (
	"context"
	"time"

	"github.com/DartonStaker/appapost/pkg/logging"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 3
	defaultBaseBackoff  = 30 * time.Second
	defaultBatchSize    = 10
)

// Executor performs the actual publish for a claimed job. An error
// counts as a failed attempt.
type Executor interface {
	Execute(ctx context.Context, job Job) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, job Job) error

func (f ExecutorFunc) Execute(ctx context.Context, job Job) error { return f(ctx, job) }

// WorkerConfig wires a Worker.
type WorkerConfig struct {
	Store    Store
	Executor Executor
	Logger   logging.Logger

	PollInterval time.Duration
	MaxAttempts  int
	BaseBackoff  time.Duration
	BatchSize    int

	// OnDeadLetter receives jobs that exhausted their retry budget,
	// with the terminal error. Failed jobs are surfaced, not dropped.
	OnDeadLetter func(job Job, err error)
}

// Worker drains due jobs and drives the bounded-retry policy: a failed
// job is re-enqueued with exponential backoff until MaxAttempts, then
// dead-lettered.
type Worker struct {
	store        Store
	executor     Executor
	logger       logging.Logger
	pollInterval time.Duration
	maxAttempts  int
	baseBackoff  time.Duration
	batchSize    int
	onDeadLetter func(job Job, err error)
}

func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Worker{
		store:        cfg.Store,
		executor:     cfg.Executor,
		logger:       cfg.Logger,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxAttempts,
		baseBackoff:  cfg.BaseBackoff,
		batchSize:    cfg.BatchSize,
		onDeadLetter: cfg.OnDeadLetter,
	}
}

// Run polls until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil && w.logger != nil {
				w.logger.WithError(err).Warn("Queue drain failed")
			}
		}
	}
}

// Drain claims and executes every currently-due job once.
func (w *Worker) Drain(ctx context.Context) error {
	jobs, err := w.store.DequeueDue(ctx, time.Now(), w.batchSize)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		w.runJob(ctx, job)
	}
	return nil
}

func (w *Worker) runJob(ctx context.Context, job Job) {
	err := w.executor.Execute(ctx, job)
	job.Attempts++
	if err == nil {
		return
	}
	job.LastError = err.Error()

	if job.Attempts >= w.maxAttempts {
		if w.logger != nil {
			w.logger.WithError(err).WithFields(logging.Fields{
				"job_id":   job.ID,
				"platform": job.Platform,
				"attempts": job.Attempts,
			}).Error("Job exhausted retries, dead-lettering")
		}
		if w.onDeadLetter != nil {
			w.onDeadLetter(job, err)
		}
		return
	}

	backoff := w.baseBackoff << (job.Attempts - 1)
	job.NotBefore = time.Now().Add(backoff)
	if requeueErr := w.store.Enqueue(ctx, job); requeueErr != nil && w.logger != nil {
		w.logger.WithError(requeueErr).WithField("job_id", job.ID).Error("Failed to requeue job")
	}
}

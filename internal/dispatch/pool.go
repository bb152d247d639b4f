package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/welfareguard/internal/metrics"
	"github.com/mmynk/welfareguard/internal/models"
	"github.com/mmynk/welfareguard/internal/service"
)

const (
	DefaultConcurrency = 4
	DefaultMaxAttempts = 3
	DefaultPollTimeout = 5 * time.Second

	dequeueBackoff = time.Second
)

// Handler runs an evaluation. EvaluationService satisfies it.
type Handler interface {
	Evaluate(ctx context.Context, sub models.Submission) (service.Result, error)
	Degrade(ctx context.Context, sub models.Submission, cause error) (service.Result, error)
}

// Pool runs a fixed number of workers against a queue.
type Pool struct {
	queue       Queue
	handler     Handler
	concurrency int
	maxAttempts int
	pollTimeout time.Duration
	metrics     *metrics.Metrics
}

// PoolConfig holds the worker pool settings. Zero values select the defaults.
type PoolConfig struct {
	Concurrency int
	MaxAttempts int
	PollTimeout time.Duration
}

// NewPool creates a worker pool. m may be nil.
func NewPool(q Queue, h Handler, cfg PoolConfig, m *metrics.Metrics) *Pool {
	p := &Pool{
		queue:       q,
		handler:     h,
		concurrency: cfg.Concurrency,
		maxAttempts: cfg.MaxAttempts,
		pollTimeout: cfg.PollTimeout,
		metrics:     m,
	}
	if p.concurrency <= 0 {
		p.concurrency = DefaultConcurrency
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = DefaultMaxAttempts
	}
	if p.pollTimeout <= 0 {
		p.pollTimeout = DefaultPollTimeout
	}
	return p
}

// Run starts the workers and blocks until ctx is cancelled. A worker stops
// taking new tasks on cancellation but finishes the one it holds.
func (p *Pool) Run(ctx context.Context) error {
	slog.Info("Worker pool started",
		"concurrency", p.concurrency,
		"max_attempts", p.maxAttempts,
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.concurrency; i++ {
		worker := i
		g.Go(func() error {
			p.work(ctx, worker)
			return nil
		})
	}
	err := g.Wait()

	slog.Info("Worker pool stopped")
	return err
}

func (p *Pool) work(ctx context.Context, worker int) {
	for ctx.Err() == nil {
		task, err := p.queue.Dequeue(ctx, p.pollTimeout)
		if ctx.Err() != nil {
			// A task moved just before cancellation stays on the processing list.
			return
		}
		if err != nil {
			if errors.Is(err, ErrMalformedTask) {
				slog.Error("Dropped malformed task", "worker", worker, "error", err)
				continue
			}
			slog.Warn("Dequeue failed", "worker", worker, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(dequeueBackoff):
			}
			continue
		}
		if task == nil {
			continue
		}

		p.process(context.WithoutCancel(ctx), task)
	}
}

// process runs one delivery and settles the task: ack on success, re-queue
// on a data-access failure, degrade once attempts are exhausted. A panicking
// handler degrades the task immediately.
func (p *Pool) process(ctx context.Context, task *Task) {
	sub := task.Submission
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Evaluation panicked",
				"task_id", task.ID,
				"applicant_id", sub.ApplicantID,
				"panic", r,
			)
			p.degrade(ctx, task, fmt.Errorf("panic: %v", r))
		}
	}()

	res, err := p.handler.Evaluate(ctx, sub)
	if err == nil {
		slog.Debug("Task complete",
			"task_id", task.ID,
			"applicant_id", sub.ApplicantID,
			"result", res.Status,
			"decision_status", res.DecisionStatus,
		)
		p.ack(ctx, task)
		return
	}

	attempts := task.Attempt + 1
	if attempts < p.maxAttempts {
		slog.Warn("Evaluation failed, retrying",
			"task_id", task.ID,
			"applicant_id", sub.ApplicantID,
			"attempt", attempts,
			"error", err,
		)
		p.metrics.IncrementTaskRetries()
		if rErr := p.queue.Retry(ctx, task); rErr != nil {
			slog.Error("Failed to re-queue task", "task_id", task.ID, "error", rErr)
		}
		return
	}

	p.degrade(ctx, task, fmt.Errorf("gave up after %d attempts: %w", attempts, err))
}

// degrade persists the engine-error verdict and acks the task. If that fails
// the task stays on the processing list; Recover redelivers it on restart.
func (p *Pool) degrade(ctx context.Context, task *Task, cause error) {
	if err := p.tryDegrade(ctx, task, cause); err != nil {
		slog.Error("Failed to persist degraded verdict",
			"task_id", task.ID,
			"applicant_id", task.Submission.ApplicantID,
			"error", err,
		)
		return
	}
	p.ack(ctx, task)
}

func (p *Pool) tryDegrade(ctx context.Context, task *Task, cause error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	_, err = p.handler.Degrade(ctx, task.Submission, cause)
	return err
}

func (p *Pool) ack(ctx context.Context, task *Task) {
	if err := p.queue.Ack(ctx, task); err != nil {
		slog.Error("Failed to ack task", "task_id", task.ID, "error", err)
	}
}

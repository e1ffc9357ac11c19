package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by TryEnqueue when the buffer has no room.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueStopped is returned when enqueueing on a queue that is not running.
	ErrQueueStopped = errors.New("queue not running")
)

// Job is one unit of background work.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. A returned error schedules a retry.
type Handler func(context.Context, Job) error

// GiveUpFunc is called once a job has exhausted its retries.
type GiveUpFunc func(Job, error)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	OnGiveUp   GiveUpFunc
	Logger     *zap.Logger
}

// Queue is an in-memory job dispatcher backed by a fixed set of goroutines.
// Retries are delayed on a timer and never block the workers.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	onGiveUp   GiveUpFunc
	logger     *zap.Logger

	jobs    chan Job
	pending int64
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a queue dispatching to handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		onGiveUp:   cfg.OnGiveUp,
		logger:     cfg.Logger.With(zap.String("queue", name)),
		jobs:       make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop cancels the workers and waits for in-flight jobs to return. Jobs still
// buffered are dropped and reported through OnGiveUp.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.started = false
	q.mu.Unlock()
	q.wg.Wait()

	for {
		select {
		case job := <-q.jobs:
			atomic.AddInt64(&q.pending, -1)
			q.giveUp(job, ErrQueueStopped)
		default:
			q.logger.Info("queue stopped")
			return
		}
	}
}

// Pending reports jobs queued or waiting for a retry.
func (q *Queue) Pending() int {
	return int(atomic.LoadInt64(&q.pending))
}

// Enqueue pushes a job, waiting for buffer room until the queue stops.
func (q *Queue) Enqueue(job Job) error {
	ctx, err := q.running()
	if err != nil {
		return err
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	atomic.AddInt64(&q.pending, 1)
	select {
	case <-ctx.Done():
		atomic.AddInt64(&q.pending, -1)
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueStopped)
	case q.jobs <- job:
		return nil
	}
}

// TryEnqueue pushes a job without waiting. It is the variant request
// handlers use.
func (q *Queue) TryEnqueue(job Job) error {
	if _, err := q.running(); err != nil {
		return err
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	atomic.AddInt64(&q.pending, 1)
	select {
	case q.jobs <- job:
		return nil
	default:
		atomic.AddInt64(&q.pending, -1)
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

func (q *Queue) running() (context.Context, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return nil, fmt.Errorf("queue %s: %w", q.name, ErrQueueStopped)
	}
	return q.ctx, nil
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			err := q.handler(q.ctx, job)
			atomic.AddInt64(&q.pending, -1)
			if err != nil {
				q.retry(job, err)
			}
		}
	}
}

func (q *Queue) retry(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Error("job exceeded retries", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
		q.giveUp(job, err)
		return
	}
	q.logger.Warn("job failed, retrying",
		zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err))

	atomic.AddInt64(&q.pending, 1)
	ctx := q.ctx
	go func(j Job) {
		timer := time.NewTimer(q.retryDelay * time.Duration(j.Attempt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			atomic.AddInt64(&q.pending, -1)
			q.giveUp(j, ErrQueueStopped)
		case <-timer.C:
			atomic.AddInt64(&q.pending, -1)
			if err := q.Enqueue(j); err != nil {
				q.logger.Error("failed to requeue job", zap.String("job_id", j.ID), zap.Error(err))
				q.giveUp(j, err)
			}
		}
	}(job)
}

func (q *Queue) giveUp(job Job, err error) {
	if q.onGiveUp != nil {
		q.onGiveUp(job, err)
	}
}

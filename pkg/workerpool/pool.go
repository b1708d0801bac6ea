// Package workerpool provides a bounded worker pool with retry, used by the
// sync relay to mirror bookings into tenant PMS systems concurrently.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of work.
type Task struct {
	ID      string
	Payload interface{}
}

// Handler processes a task. A returned error triggers a retry with backoff up
// to MaxRetries.
type Handler func(ctx context.Context, task *Task) error

// Config holds pool configuration.
type Config struct {
	Workers         int
	QueueSize       int
	MaxRetries      int
	RetryDelay      time.Duration
	ShutdownTimeout time.Duration
	// OnExhausted runs after a task has failed all attempts.
	OnExhausted func(task *Task, err error)
}

// DefaultConfig returns defaults sized for PMS sync traffic.
func DefaultConfig() Config {
	return Config{
		Workers:         8,
		QueueSize:       256,
		MaxRetries:      3,
		RetryDelay:      500 * time.Millisecond,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Pool runs tasks across a fixed set of workers.
type Pool struct {
	cfg     Config
	handler Handler
	logger  *zap.Logger

	tasks  chan *Task
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc

	submitted int64
	completed int64
	failed    int64
	retried   int64
}

// New creates a pool. The handler is required.
func New(cfg Config, handler Handler, logger *zap.Logger) (*Pool, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		tasks:   make(chan *Task, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started",
		zap.Int("workers", p.cfg.Workers),
		zap.Int("queue_size", p.cfg.QueueSize))
}

// Submit queues a task. It blocks while the queue is full so a consumer
// feeding the pool applies backpressure instead of dropping work. After Stop
// it returns an error. The read lock is held across the send: Stop cannot
// close the channel while a submit is in flight, so the send never races the
// close.
func (p *Pool) Submit(ctx context.Context, task *Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("pool is shutting down")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- task:
		atomic.AddInt64(&p.submitted, 1)
		return nil
	}
}

// Stop drains queued tasks and waits for workers, up to ShutdownTimeout.
// In-flight retries are aborted only if the drain times out. Stop is
// idempotent.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.tasks)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
	case <-time.After(p.cfg.ShutdownTimeout):
		p.cancel()
		select {
		case <-done:
			p.logger.Info("worker pool stopped after abort")
		case <-time.After(time.Second):
			p.logger.Warn("worker pool shutdown timed out")
		}
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(id, task)
	}
}

func (p *Pool) run(workerID int, task *Task) {
	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			atomic.AddInt64(&p.retried, 1)
			select {
			case <-p.ctx.Done():
				lastErr = p.ctx.Err()
				attempt = p.cfg.MaxRetries + 1
				continue
			case <-time.After(p.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		if lastErr = p.handler(p.ctx, task); lastErr == nil {
			atomic.AddInt64(&p.completed, 1)
			return
		}
		p.logger.Debug("task attempt failed",
			zap.String("task_id", task.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}

	atomic.AddInt64(&p.failed, 1)
	p.logger.Error("task failed",
		zap.String("task_id", task.ID),
		zap.Int("worker_id", workerID),
		zap.Int("retries", p.cfg.MaxRetries),
		zap.Error(lastErr))
	if p.cfg.OnExhausted != nil {
		p.cfg.OnExhausted(task, lastErr)
	}
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Submitted int64
	Completed int64
	Failed    int64
	Retried   int64
	Queued    int
	Workers   int
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: atomic.LoadInt64(&p.submitted),
		Completed: atomic.LoadInt64(&p.completed),
		Failed:    atomic.LoadInt64(&p.failed),
		Retried:   atomic.LoadInt64(&p.retried),
		Queued:    len(p.tasks),
		Workers:   p.cfg.Workers,
	}
}

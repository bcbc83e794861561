package executionengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/config"
	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/static/errs"
)

// Run is one queued unit of work. The context is the engine's base context.
type Run = func(ctx context.Context)

type task struct {
	id  uuid.UUID
	run Run
}

// ExecutionEngine runs submitted work on a fixed pool of workers fed by a
// bounded queue.
type ExecutionEngine struct {
	cfg    *config.ExecutionConfig
	logger primary.Logger

	queue chan task

	mu      sync.RWMutex
	started bool
	stopped bool

	running sync.WaitGroup
	done    chan struct{}
	active  int64
	activeM sync.Mutex
}

func NewExecutionEngine(cfg *config.ExecutionConfig, logger primary.Logger) *ExecutionEngine {
	return &ExecutionEngine{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan task, cfg.QueueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the workers. Runs receive ctx; cancelling it does not stop
// the engine, Stop does.
func (e *ExecutionEngine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true

	e.running.Add(e.cfg.Workers)
	for i := 0; i < e.cfg.Workers; i++ {
		go func(worker int) {
			defer e.running.Done()
			for t := range e.queue {
				e.execute(ctx, worker, t)
			}
		}(i)
	}

	if e.cfg.StatsInterval > 0 {
		ticker := time.NewTicker(e.cfg.StatsInterval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-e.done:
					return
				case <-ticker.C:
					e.logger.Info("Execution engine stats", "queued", e.Queued(), "active", e.Active())
				}
			}
		}()
	}

	e.logger.Info("Execution engine started", "workers", e.cfg.Workers, "queueSize", e.cfg.QueueSize)
}

func (e *ExecutionEngine) execute(ctx context.Context, worker int, t task) {
	e.activeM.Lock()
	e.active++
	e.activeM.Unlock()
	defer func() {
		e.activeM.Lock()
		e.active--
		e.activeM.Unlock()
		if r := recover(); r != nil {
			e.logger.Error("Execution run panicked", "runId", t.id, "worker", worker, "panic", r)
		}
	}()

	e.logger.Debug("Execution run started", "runId", t.id, "worker", worker)
	t.run(ctx)
	e.logger.Debug("Execution run finished", "runId", t.id, "worker", worker)
}

// Submit queues run without blocking. It fails with errs.QueueFull when the
// queue has no room and errs.EngineStopped after Stop.
func (e *ExecutionEngine) Submit(id uuid.UUID, run Run) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		return fmt.Errorf("run %s: %w", id, errs.EngineStopped)
	}

	select {
	case e.queue <- task{id: id, run: run}:
		return nil
	default:
		return fmt.Errorf("run %s: %w", id, errs.QueueFull)
	}
}

// Stop refuses new work and waits until the queued and running work is done
// or ctx expires.
func (e *ExecutionEngine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	close(e.queue)
	close(e.done)
	e.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		e.running.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		e.logger.Info("Execution engine stopped")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Execution engine stop timed out", "active", e.Active(), "queued", e.Queued())
		return fmt.Errorf("failed to drain execution engine: %w", ctx.Err())
	}
}

// Queued is the number of runs waiting for a worker.
func (e *ExecutionEngine) Queued() int {
	return len(e.queue)
}

// Active is the number of runs currently executing.
func (e *ExecutionEngine) Active() int {
	e.activeM.Lock()
	defer e.activeM.Unlock()
	return int(e.active)
}

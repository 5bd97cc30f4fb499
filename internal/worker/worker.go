package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is a unit of background work. Returned errors are logged, never propagated.
type Task func(ctx context.Context) error

// Pool manages background goroutines and ensures graceful shutdown
type Pool struct {
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewPool creates a new worker pool
func NewPool(logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Submit runs the task in the background. It reports false once the pool is shutting down.
func (p *Pool) Submit(name string, task Task) bool {
	return p.start(name, func() error { return task(p.ctx) })
}

// SubmitWithTimeout runs the task with a deadline derived from the pool context
func (p *Pool) SubmitWithTimeout(name string, timeout time.Duration, task Task) bool {
	return p.start(name, func() error {
		ctx, cancel := context.WithTimeout(p.ctx, timeout)
		defer cancel()
		return task(ctx)
	})
}

func (p *Pool) start(name string, run func() error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("⚠️ [Worker] Pool is shutting down, task rejected", "task", name)
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.safeRun(run); err != nil {
			p.logger.Error("❌ [Worker] Task failed", "task", name, "error", err)
			return
		}
		p.logger.Debug("✅ [Worker] Task completed", "task", name)
	}()
	return true
}

func (p *Pool) safeRun(run func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return run()
}

// Context returns the pool's context
func (p *Pool) Context() context.Context {
	return p.ctx
}

// Shutdown signals all workers to stop and waits for completion.
// It reports whether every task finished before the timeout.
func (p *Pool) Shutdown(timeout time.Duration) bool {
	p.logger.Info("🛑 [Worker] Initiating graceful shutdown...")

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	// Signal all workers to stop
	p.cancel()

	// Wait for all goroutines with timeout
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("✅ [Worker] All background tasks completed")
		return true
	case <-time.After(timeout):
		p.logger.Warn("⚠️ [Worker] Shutdown timeout exceeded, some tasks may not have completed",
			"timeout", timeout,
		)
		return false
	}
}

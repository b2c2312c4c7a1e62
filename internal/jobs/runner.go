package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/script-generator/internal/generation"
	"github.com/jonathan/script-generator/internal/types"
)

// ErrRunnerStopped is returned by Submit after Stop.
var ErrRunnerStopped = errors.New("runner is stopped")

// Failure messages recorded on tasks that did not run to completion.
const (
	msgShuttingDown = "server shutting down"
	msgTimedOut     = "generation timed out"
	msgNoResult     = "generation produced no script"
)

// storeTimeout bounds every store write made on behalf of a task.
const storeTimeout = 5 * time.Second

// Generator produces a script for a request.
type Generator interface {
	Generate(ctx context.Context, req types.GenerateRequest, progress generation.ProgressFunc) (*generation.Result, error)
}

// Options configures a Runner.
type Options struct {
	MaxConcurrent   int
	TaskTimeout     time.Duration
	Retention       time.Duration // terminal tasks older than this are deleted; 0 keeps them
	CleanupInterval time.Duration // defaults to Retention/4, at least a minute
}

// Runner executes generation tasks in the background.
type Runner struct {
	store Store
	gen   Generator
	hub   *Hub
	opts  Options

	sem    chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewRunner creates a Runner and starts its cleanup loop when retention is set.
func NewRunner(store Store, gen Generator, opts Options) *Runner {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		store:  store,
		gen:    gen,
		hub:    NewHub(),
		opts:   opts,
		sem:    make(chan struct{}, opts.MaxConcurrent),
		ctx:    ctx,
		cancel: cancel,
	}

	if opts.Retention > 0 {
		interval := opts.CleanupInterval
		if interval <= 0 {
			interval = max(opts.Retention/4, time.Minute)
		}
		r.wg.Add(1)
		go r.cleanupLoop(interval)
	}
	return r
}

// Submit records a pending task and starts it in the background.
func (r *Runner) Submit(ctx context.Context, req types.GenerateRequest) (*types.ScriptTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return nil, ErrRunnerStopped
	}

	now := time.Now().UTC()
	task := &types.ScriptTask{
		ID:        uuid.NewString(),
		Status:    types.TaskPending,
		Stage:     types.StageQueued,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	r.wg.Add(1)
	go r.run(*task)

	cp := *task
	return &cp, nil
}

// Get returns the current state of a task.
func (r *Runner) Get(ctx context.Context, id string) (*types.ScriptTask, error) {
	return r.store.Get(ctx, id)
}

// Watch subscribes to status updates for a task. See Hub.Subscribe.
func (r *Runner) Watch(id string) (<-chan types.StatusResponse, func()) {
	return r.hub.Subscribe(id)
}

// Done is closed once Stop has been called.
func (r *Runner) Done() <-chan struct{} {
	return r.ctx.Done()
}

// Stop cancels running tasks, marks them failed, and waits for all goroutines.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}

func (r *Runner) run(task types.ScriptTask) {
	defer r.wg.Done()

	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-r.ctx.Done():
		r.fail(&task, msgShuttingDown)
		return
	}

	ctx := r.ctx
	if r.opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(r.ctx, r.opts.TaskTimeout)
		defer cancel()
	}

	progress := func(stage types.TaskStage) {
		if stage == task.Stage || stage == types.StageDone {
			return
		}
		task.Stage = stage
		task.UpdatedAt = time.Now().UTC()
		r.save(&task)
	}

	result, err := r.gen.Generate(ctx, task.Request, progress)
	switch {
	case err == nil && result != nil:
		// A draft kept after a late deadline still counts.
		r.complete(&task, result)
	case r.ctx.Err() != nil:
		r.fail(&task, msgShuttingDown)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.fail(&task, fmt.Sprintf("%s after %s", msgTimedOut, r.opts.TaskTimeout))
	case err != nil:
		r.fail(&task, err.Error())
	default:
		r.fail(&task, msgNoResult)
	}
}

func (r *Runner) complete(task *types.ScriptTask, result *generation.Result) {
	now := time.Now().UTC()
	task.Status = types.TaskCompleted
	task.Stage = types.StageDone
	task.Script = result.Script
	task.Validation = result.Validation
	task.UpdatedAt = now
	task.CompletedAt = &now
	r.save(task)
	log.Printf("[runner] task %s completed (%d chunks, improved=%t)", task.ID, result.Chunks, result.Improved)
}

func (r *Runner) fail(task *types.ScriptTask, message string) {
	now := time.Now().UTC()
	task.Status = types.TaskFailed
	task.Error = message
	task.UpdatedAt = now
	task.CompletedAt = &now
	r.save(task)
	log.Printf("[runner] task %s failed: %s", task.ID, message)
}

// save writes the task and publishes its status. Store errors are logged
// because the task goroutine has no caller to return them to.
func (r *Runner) save(task *types.ScriptTask) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := r.store.Update(ctx, task); err != nil {
		log.Printf("[runner] failed to update task %s: %v", task.ID, err)
		return
	}
	r.hub.Publish(types.StatusOf(task))
}

func (r *Runner) cleanupLoop(interval time.Duration) {
	defer r.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Cleanup(time.Now().Add(-r.opts.Retention))
		case <-r.ctx.Done():
			return
		}
	}
}

// Cleanup deletes terminal tasks last updated before cutoff.
func (r *Runner) Cleanup(cutoff time.Time) int {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	n, err := r.store.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		log.Printf("[runner] cleanup failed: %v", err)
		return 0
	}
	if n > 0 {
		log.Printf("[runner] removed %d finished tasks", n)
	}
	return n
}

// Package orchestrator drives multi-agent collaborations on top of the task
// executor.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/metrics"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/task"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrCollaborationExecutionFailed wraps any error that aborts a collaboration.
	ErrCollaborationExecutionFailed = errors.New("collaboration execution failed")
	// ErrCollaborationNotFound is returned for unknown collaboration IDs.
	ErrCollaborationNotFound = errors.New("collaboration not found")
	// ErrInvalidCollaboration rejects malformed creation input.
	ErrInvalidCollaboration = errors.New("invalid collaboration")
)

// TaskRunner is the subset of the task executor the orchestrator drives.
type TaskRunner interface {
	AssignTask(ctx context.Context, agentID string, spec task.Spec) (*task.Task, error)
	Wait(ctx context.Context, id string) (*task.Task, error)
	Cancel(id string) bool
}

// Persister saves collaboration snapshots.
type Persister interface {
	SaveCollaboration(ctx context.Context, c *Collaboration) error
}

// Config controls collaboration limits.
type Config struct {
	// Timeout bounds a whole collaboration run. Zero disables it.
	Timeout time.Duration
}

type record struct {
	collab *Collaboration
	done   chan struct{}
}

// Orchestrator creates and runs collaborations.
type Orchestrator struct {
	tasks     TaskRunner
	records   map[string]*record
	order     []string
	mu        sync.RWMutex
	metrics   *metrics.Collector
	persister Persister
	cfg       Config
	wg        sync.WaitGroup
	baseCtx   context.Context
	stop      context.CancelFunc
	now       func() time.Time
	logger    *zap.Logger
}

// New creates an orchestrator that issues tasks through runner.
func New(runner TaskRunner, cfg Config, logger *zap.Logger) *Orchestrator {
	ctx, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		tasks:   runner,
		records: make(map[string]*record),
		cfg:     cfg,
		baseCtx: ctx,
		stop:    stop,
		now:     time.Now,
		logger:  logger,
	}
}

// SetMetrics attaches a metrics collector.
func (o *Orchestrator) SetMetrics(m *metrics.Collector) { o.metrics = m }

// SetPersister attaches a collaboration persister.
func (o *Orchestrator) SetPersister(p Persister) { o.persister = p }

// CreateCollaboration registers a collaboration in planning state and starts
// running it in the background.
func (o *Orchestrator) CreateCollaboration(ctx context.Context, spec Spec) (*Collaboration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(spec.AgentIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one agent is required", ErrInvalidCollaboration)
	}
	if !spec.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidCollaboration, spec.Mode)
	}

	c := &Collaboration{
		ID:              uuid.New().String(),
		AgentIDs:        append([]string(nil), spec.AgentIDs...),
		TaskDescription: spec.TaskDescription,
		Mode:            spec.Mode,
		Status:          StatusPlanning,
		Results:         make(map[string]Outcome),
		CreatedAt:       o.now(),
	}

	o.mu.Lock()
	o.records[c.ID] = &record{collab: c, done: make(chan struct{})}
	o.order = append(o.order, c.ID)
	snap := c.clone()
	o.mu.Unlock()

	o.persist(snap)
	o.logger.Info("collaboration created",
		zap.String("collaboration", c.ID),
		zap.String("mode", string(c.Mode)),
		zap.Int("agents", len(c.AgentIDs)))

	runCtx, cancel := context.WithCancel(o.baseCtx)
	if o.cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, o.cfg.Timeout)
		parent := cancel
		cancel = func() { cancelTimeout(); parent() }
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.run(runCtx, snap)
	}()

	return snap, nil
}

func (o *Orchestrator) run(ctx context.Context, c *Collaboration) {
	o.update(c.ID, func(c *Collaboration) { c.Status = StatusExecuting })

	var err error
	switch c.Mode {
	case ModeSequential:
		err = o.runSequential(ctx, c)
	case ModeParallel:
		err = o.runParallel(ctx, c)
	case ModeHierarchical:
		err = o.runHierarchical(ctx, c)
	case ModePeer:
		err = o.runPeer(ctx, c)
	}

	done := o.now()
	final := o.update(c.ID, func(c *Collaboration) {
		c.CompletedAt = &done
		if err != nil {
			c.Status = StatusFailed
			c.Error = fmt.Errorf("%w: %v", ErrCollaborationExecutionFailed, err).Error()
			return
		}
		c.Status = StatusCompleted
	})

	if err != nil {
		o.logger.Warn("collaboration failed", zap.String("collaboration", c.ID), zap.Error(err))
	} else {
		o.logger.Info("collaboration completed",
			zap.String("collaboration", c.ID),
			zap.Int("results", len(final.Results)))
	}
	o.metrics.CollaborationFinished(string(c.Mode), string(final.Status), done.Sub(c.CreatedAt))

	o.mu.RLock()
	r := o.records[c.ID]
	o.mu.RUnlock()
	close(r.done)
}

// update applies fn under the lock, persists and returns a snapshot.
func (o *Orchestrator) update(id string, fn func(c *Collaboration)) *Collaboration {
	o.mu.Lock()
	r := o.records[id]
	fn(r.collab)
	snap := r.collab.clone()
	o.mu.Unlock()
	o.persist(snap)
	return snap
}

func (o *Orchestrator) recordOutcome(id, agentID string, t *task.Task) {
	o.update(id, func(c *Collaboration) { c.Results[agentID] = outcomeOf(t) })
}

// await waits for a task and cancels it if ctx ends first.
func (o *Orchestrator) await(ctx context.Context, taskID string) (*task.Task, error) {
	t, err := o.tasks.Wait(ctx, taskID)
	if err != nil {
		o.tasks.Cancel(taskID)
		return nil, err
	}
	return t, nil
}

func (o *Orchestrator) persist(c *Collaboration) {
	if o.persister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.persister.SaveCollaboration(ctx, c); err != nil {
		o.logger.Warn("persist collaboration", zap.String("collaboration", c.ID), zap.Error(err))
	}
}

// Restore loads a persisted collaboration. One that was still active when it
// was saved is marked failed.
func (o *Orchestrator) Restore(c *Collaboration) {
	cp := c.clone()
	if cp.Status.Active() {
		at := o.now()
		cp.Status = StatusFailed
		cp.Error = fmt.Errorf("%w: interrupted by restart", ErrCollaborationExecutionFailed).Error()
		cp.CompletedAt = &at
	}
	done := make(chan struct{})
	close(done)

	o.mu.Lock()
	if _, ok := o.records[cp.ID]; !ok {
		o.order = append(o.order, cp.ID)
	}
	o.records[cp.ID] = &record{collab: cp, done: done}
	snap := cp.clone()
	o.mu.Unlock()

	if snap.Status != c.Status {
		o.persist(snap)
	}
}

// Get returns a copy of a collaboration.
func (o *Orchestrator) Get(id string) (*Collaboration, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollaborationNotFound, id)
	}
	return r.collab.clone(), nil
}

// List returns every collaboration in creation order.
func (o *Orchestrator) List() []*Collaboration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*Collaboration, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.records[id].collab.clone())
	}
	return out
}

// Wait blocks until the collaboration is terminal or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context, id string) (*Collaboration, error) {
	o.mu.RLock()
	r, ok := o.records[id]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollaborationNotFound, id)
	}
	select {
	case <-r.done:
		return o.Get(id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown aborts running collaborations and waits for them to exit.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.stop()
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

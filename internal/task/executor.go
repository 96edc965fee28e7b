// Package task assigns work to agents and runs it asynchronously through a
// bounded worker pool.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/agent"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/memory"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/metrics"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/synth"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/tool"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoSuccessfulExecution means every selected tool failed, or none was selected.
var ErrNoSuccessfulExecution = errors.New("no successful tool executions")

// Persister saves task snapshots after each state change.
type Persister interface {
	SaveTask(ctx context.Context, t *Task) error
}

// Config controls executor limits.
type Config struct {
	// MaxConcurrent bounds the number of tasks running at once.
	MaxConcurrent int
	// TaskTimeout is the deadline applied to each task. Zero disables it.
	TaskTimeout time.Duration
	// DefaultUserID fills the tool call context when a task has no user.
	DefaultUserID string
	// DefaultSessionID fills the tool call context when a task has no session.
	DefaultSessionID string
}

// Executor runs tasks against agents.
type Executor struct {
	registry     *agent.Registry
	invoker      tool.Invoker
	tracker      *memory.Tracker
	store        *Store
	selector     tool.Selector
	synthesizers func(agent.Archetype) synth.Synthesizer
	metrics      *metrics.Collector
	persister    Persister
	cfg          Config
	pool         chan struct{}
	wg           sync.WaitGroup
	baseCtx      context.Context
	stop         context.CancelFunc
	now          func() time.Time
	logger       *zap.Logger
}

// NewExecutor creates an executor with a bounded goroutine pool.
func NewExecutor(registry *agent.Registry, invoker tool.Invoker, tracker *memory.Tracker, cfg Config, logger *zap.Logger) *Executor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	if cfg.DefaultUserID == "" {
		cfg.DefaultUserID = "system"
	}
	if cfg.DefaultSessionID == "" {
		cfg.DefaultSessionID = "default"
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Executor{
		registry:     registry,
		invoker:      invoker,
		tracker:      tracker,
		store:        NewStore(),
		selector:     tool.KeywordSelector{},
		synthesizers: synth.ForArchetype,
		cfg:          cfg,
		pool:         make(chan struct{}, cfg.MaxConcurrent),
		baseCtx:      ctx,
		stop:         stop,
		now:          time.Now,
		logger:       logger,
	}
}

// SetSelector replaces the tool selection policy.
func (e *Executor) SetSelector(s tool.Selector) { e.selector = s }

// SetSynthesizers replaces the archetype → synthesizer mapping.
func (e *Executor) SetSynthesizers(fn func(agent.Archetype) synth.Synthesizer) { e.synthesizers = fn }

// SetMetrics attaches a metrics collector.
func (e *Executor) SetMetrics(m *metrics.Collector) { e.metrics = m }

// SetPersister attaches a task persister.
func (e *Executor) SetPersister(p Persister) { e.persister = p }

// AssignTask creates a pending task for agentID and schedules it. It returns
// immediately; use Wait to block until the task is terminal.
func (e *Executor) AssignTask(ctx context.Context, agentID string, spec Spec) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := e.registry.Get(agentID); err != nil {
		return nil, err
	}
	if err := e.baseCtx.Err(); err != nil {
		return nil, fmt.Errorf("executor stopped: %w", err)
	}

	priority := spec.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	params := spec.Parameters
	if params == nil {
		params = map[string]any{}
	}
	userID := spec.UserID
	if userID == "" {
		if v, ok := params["userId"].(string); ok && v != "" {
			userID = v
		} else {
			userID = e.cfg.DefaultUserID
		}
	}
	sessionID := spec.SessionID
	if sessionID == "" {
		sessionID = e.cfg.DefaultSessionID
	}

	t := &Task{
		ID:          uuid.New().String(),
		AgentID:     agentID,
		Type:        spec.Type,
		Description: spec.Description,
		Parameters:  params,
		Priority:    priority,
		Status:      StatusPending,
		CreatedAt:   e.now(),
		userID:      userID,
		sessionID:   sessionID,
	}

	// Tasks outlive the request that assigned them; only Cancel, the task
	// deadline or Shutdown stop them.
	runCtx, cancel := context.WithCancel(e.baseCtx)
	if e.cfg.TaskTimeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, e.cfg.TaskTimeout)
		parent := cancel
		cancel = func() { cancelTimeout(); parent() }
	}

	e.store.add(t, cancel)
	snapshot := t.clone()
	e.persist(snapshot)

	e.logger.Info("task assigned",
		zap.String("task", t.ID),
		zap.String("agent", agentID),
		zap.String("type", t.Type))

	e.wg.Add(1)
	go e.run(runCtx, t.ID)

	return snapshot, nil
}

func (e *Executor) run(ctx context.Context, id string) {
	defer e.wg.Done()

	select {
	case e.pool <- struct{}{}: // acquire slot
	case <-ctx.Done():
		e.fail(id, nil, ctx.Err())
		return
	}
	defer func() { <-e.pool }() // release slot

	start := e.now()
	t, err := e.store.transition(id, StatusInProgress, func(t *Task) { t.StartedAt = &start })
	if err != nil {
		e.logger.Error("task start rejected", zap.String("task", id), zap.Error(err))
		return
	}
	e.persist(t)
	e.registry.Touch(t.AgentID)
	e.metrics.TaskStarted()

	ag, err := e.registry.Get(t.AgentID)
	if err != nil {
		e.fail(id, nil, err)
		return
	}

	result, err := e.execute(ctx, t, ag)
	if err != nil {
		e.fail(id, ag, err)
		return
	}
	e.complete(id, ag, result)
}

// execute invokes the selected tools in order and synthesizes the outputs.
func (e *Executor) execute(ctx context.Context, t *Task, ag *agent.Agent) (*synth.Result, error) {
	selected := e.selector.Select(t.Type, ag.Tools)
	cc := tool.CallContext{
		UserID:    t.userID,
		SessionID: t.sessionID,
		RequestID: t.ID,
		Timestamp: e.now(),
		Metadata: map[string]string{
			"agentId":  ag.ID,
			"taskType": t.Type,
		},
	}

	var outputs []synth.ToolOutput
	for _, toolID := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := e.invoker.Invoke(ctx, toolID, t.Parameters, cc)
		if err == nil && !res.Success {
			err = fmt.Errorf("%w: %s", tool.ErrToolExecutionFailed, res.Error)
		}
		if err != nil {
			e.metrics.ToolCall(toolID, false)
			e.logger.Warn("tool execution failed",
				zap.String("task", t.ID),
				zap.String("tool", toolID),
				zap.Error(err))
			continue
		}
		e.metrics.ToolCall(toolID, true)
		outputs = append(outputs, synth.ToolOutput{Tool: toolID, Data: res.Data})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, ErrNoSuccessfulExecution
	}

	return e.synthesizers(ag.Archetype).Synthesize(synth.Input{
		Agent:       ag,
		TaskType:    t.Type,
		Description: t.Description,
		Parameters:  t.Parameters,
		Outputs:     outputs,
	}), nil
}

func (e *Executor) complete(id string, ag *agent.Agent, result *synth.Result) {
	done := e.now()
	t, err := e.store.transition(id, StatusCompleted, func(t *Task) {
		t.CompletedAt = &done
		t.Result = result
	})
	if err != nil {
		e.logger.Error("task completion rejected", zap.String("task", id), zap.Error(err))
		return
	}
	e.finish(t, ag)
}

func (e *Executor) fail(id string, ag *agent.Agent, cause error) {
	done := e.now()
	t, err := e.store.transition(id, StatusFailed, func(t *Task) {
		t.CompletedAt = &done
		t.Error = cause.Error()
	})
	if err != nil {
		e.logger.Error("task failure rejected", zap.String("task", id), zap.Error(err))
		return
	}
	e.logger.Warn("task failed", zap.String("task", id), zap.Error(cause))
	e.finish(t, ag)
}

// finish records the outcome, persists the terminal snapshot and then wakes waiters.
func (e *Executor) finish(t *Task, ag *agent.Agent) {
	success := t.Status == StatusCompleted
	rec := memory.Record{
		TaskType: t.Type,
		Context:  map[string]any{"taskId": t.ID, "description": t.Description},
		Success:  success,
		Error:    t.Error,
		Duration: t.Duration(),
		At:       *t.CompletedAt,
	}
	if err := e.tracker.Record(t.AgentID, rec); err != nil {
		e.logger.Warn("record task outcome", zap.String("task", t.ID), zap.Error(err))
	}

	if t.StartedAt != nil {
		archetype := string(agent.ArchetypeGeneral)
		if ag != nil {
			archetype = string(ag.Archetype)
		}
		e.metrics.TaskFinished(archetype, string(t.Status), t.Duration())
	}

	e.persist(t)
	e.store.signal(t.ID)

	e.logger.Info("task finished",
		zap.String("task", t.ID),
		zap.String("status", string(t.Status)),
		zap.Duration("duration", t.Duration()))
}

func (e *Executor) persist(t *Task) {
	if e.persister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.persister.SaveTask(ctx, t); err != nil {
		e.logger.Warn("persist task", zap.String("task", t.ID), zap.Error(err))
	}
}

// Restore loads a persisted task. Interrupted tasks are stored as failed and
// the corrected snapshot is persisted again.
func (e *Executor) Restore(t *Task) {
	restored := e.store.restore(t, e.now())
	if restored.Status != t.Status {
		e.persist(restored)
	}
}

// Wait blocks until the task is terminal or ctx is done.
func (e *Executor) Wait(ctx context.Context, id string) (*Task, error) {
	done, err := e.store.doneChan(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-done:
		return e.store.Get(id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done returns a channel closed when the task reaches a terminal state.
func (e *Executor) Done(id string) (<-chan struct{}, error) {
	return e.store.doneChan(id)
}

// Cancel aborts a pending or running task. It reports false when the task is
// unknown or already terminal.
func (e *Executor) Cancel(id string) bool {
	cancel, ok := e.store.cancelFunc(id)
	if !ok {
		return false
	}
	cancel()
	e.logger.Info("task cancel requested", zap.String("task", id))
	return true
}

// Get returns a copy of a task.
func (e *Executor) Get(id string) (*Task, error) { return e.store.Get(id) }

// List returns every task in creation order.
func (e *Executor) List() []*Task { return e.store.List() }

// ListByAgent returns the tasks assigned to agentID.
func (e *Executor) ListByAgent(agentID string) []*Task { return e.store.ListByAgent(agentID) }

// Shutdown cancels outstanding tasks and waits for workers to exit.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.stop()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

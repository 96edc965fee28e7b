package orchestrator

import (
	"context"
	"errors"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/agent"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/task"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// step assigns one task, waits for it and records the outcome under agentID.
func (o *Orchestrator) step(ctx context.Context, c *Collaboration, agentID string, spec task.Spec) error {
	t, err := o.tasks.AssignTask(ctx, agentID, spec)
	if err != nil {
		return err
	}
	done, err := o.await(ctx, t.ID)
	if err != nil {
		return err
	}
	o.recordOutcome(c.ID, agentID, done)
	return nil
}

func (o *Orchestrator) runSequential(ctx context.Context, c *Collaboration) error {
	for i, agentID := range c.AgentIDs {
		spec := task.Spec{
			Type:        TaskTypeCollaboration,
			Description: c.TaskDescription,
			Parameters: map[string]any{
				"collaborationId": c.ID,
				"mode":            string(c.Mode),
				"position":        i + 1,
			},
		}
		if err := o.step(ctx, c, agentID, spec); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runParallel(ctx context.Context, c *Collaboration) error {
	return o.fanOut(ctx, c, func(agentID string) task.Spec {
		return task.Spec{
			Type:        TaskTypeCollaboration,
			Description: c.TaskDescription,
			Parameters: map[string]any{
				"collaborationId": c.ID,
				"mode":            string(c.Mode),
			},
		}
	})
}

func (o *Orchestrator) runPeer(ctx context.Context, c *Collaboration) error {
	return o.fanOut(ctx, c, func(agentID string) task.Spec {
		peers := make([]string, 0, len(c.AgentIDs)-1)
		for _, id := range c.AgentIDs {
			if id != agentID {
				peers = append(peers, id)
			}
		}
		return task.Spec{
			Type:        TaskTypePeer,
			Description: c.TaskDescription,
			Parameters: map[string]any{
				"collaborationId": c.ID,
				"mode":            string(c.Mode),
				"peers":           peers,
			},
		}
	})
}

// fanOut dispatches one task per participant concurrently and joins them.
// The first assign or wait error cancels the rest.
func (o *Orchestrator) fanOut(ctx context.Context, c *Collaboration, specFor func(agentID string) task.Spec) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, agentID := range c.AgentIDs {
		g.Go(func() error {
			return o.step(gctx, c, agentID, specFor(agentID))
		})
	}
	return g.Wait()
}

// runHierarchical lets the first agent plan and then dispatches its subtasks
// in order.
func (o *Orchestrator) runHierarchical(ctx context.Context, c *Collaboration) error {
	coordinator := c.AgentIDs[0]
	participants := append([]string(nil), c.AgentIDs[1:]...)

	planning, err := o.tasks.AssignTask(ctx, coordinator, task.Spec{
		Type:        TaskTypePlanning,
		Description: c.TaskDescription,
		Priority:    task.PriorityHigh,
		Parameters: map[string]any{
			"participants":    participants,
			"taskDescription": c.TaskDescription,
			"collaborationId": c.ID,
		},
	})
	if errors.Is(err, agent.ErrAgentNotFound) {
		o.logger.Warn("coordinator not found",
			zap.String("collaboration", c.ID),
			zap.String("agent", coordinator))
		return nil
	}
	if err != nil {
		return err
	}
	o.update(c.ID, func(c *Collaboration) { c.PlanTaskID = planning.ID })

	planned, err := o.await(ctx, planning.ID)
	if err != nil {
		return err
	}
	if planned.Status != task.StatusCompleted || planned.Result == nil || planned.Result.Plan == nil {
		o.logger.Info("coordinator produced no plan",
			zap.String("collaboration", c.ID),
			zap.String("task_status", string(planned.Status)),
			zap.String("task_error", planned.Error))
		return nil
	}

	for _, st := range planned.Result.Plan.Subtasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		typ := st.Type
		if typ == "" {
			typ = TaskTypeSubtask
		}
		params := make(map[string]any, len(st.Parameters)+1)
		for k, v := range st.Parameters {
			params[k] = v
		}
		params["collaborationId"] = c.ID
		spec := task.Spec{
			Type:        typ,
			Description: st.Description,
			Parameters:  params,
			Priority:    task.Priority(st.Priority),
		}
		if err := o.step(ctx, c, st.AgentID, spec); err != nil {
			return err
		}
	}
	return nil
}

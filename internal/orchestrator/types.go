package orchestrator

import (
	"time"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/synth"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/task"
)

// Mode defines how the participants of a collaboration execute.
type Mode string

const (
	ModeSequential   Mode = "sequential"
	ModeParallel     Mode = "parallel"
	ModeHierarchical Mode = "hierarchical"
	ModePeer         Mode = "peer"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSequential, ModeParallel, ModeHierarchical, ModePeer:
		return true
	}
	return false
}

// Status tracks collaboration state.
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Active reports whether the collaboration is still running.
func (s Status) Active() bool {
	return s == StatusPlanning || s == StatusExecuting
}

// Task types issued by the orchestrator.
const (
	TaskTypeCollaboration = "collaboration_task"
	TaskTypePlanning      = "collaboration_planning"
	TaskTypeSubtask       = "collaboration_subtask"
	TaskTypePeer          = "peer_collaboration"
)

// Spec is the input for creating a collaboration.
type Spec struct {
	AgentIDs        []string `json:"agent_ids"`
	TaskDescription string   `json:"task_description"`
	Mode            Mode     `json:"mode"`
}

// Outcome is one participant's terminal task state.
type Outcome struct {
	TaskID string        `json:"task_id"`
	Status task.Status   `json:"status"`
	Result *synth.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// Collaboration is a multi-agent unit of work run under one mode.
type Collaboration struct {
	ID              string             `json:"id"`
	AgentIDs        []string           `json:"agent_ids"`
	TaskDescription string             `json:"task_description"`
	Mode            Mode               `json:"mode"`
	Status          Status             `json:"status"`
	Results         map[string]Outcome `json:"results"`
	PlanTaskID      string             `json:"plan_task_id,omitempty"`
	Error           string             `json:"error,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
}

func (c *Collaboration) clone() *Collaboration {
	cp := *c
	cp.AgentIDs = append([]string(nil), c.AgentIDs...)
	cp.Results = make(map[string]Outcome, len(c.Results))
	for k, v := range c.Results {
		cp.Results[k] = v
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

func outcomeOf(t *task.Task) Outcome {
	return Outcome{TaskID: t.ID, Status: t.Status, Result: t.Result, Error: t.Error}
}

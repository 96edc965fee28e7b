// Package analytics builds read-only reports over agents, tasks and
// collaborations.
package analytics

import (
	"sort"
	"time"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/agent"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/orchestrator"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/task"
)

// TaskSource lists tasks.
type TaskSource interface {
	List() []*task.Task
	ListByAgent(agentID string) []*task.Task
}

// CollaborationSource lists collaborations.
type CollaborationSource interface {
	List() []*orchestrator.Collaboration
}

// AgentSummary is the identifying part of an agent.
type AgentSummary struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Archetype    agent.Archetype `json:"archetype"`
	Status       agent.Status    `json:"status"`
	Capabilities []string        `json:"capabilities"`
	Tools        []string        `json:"tools"`
	CreatedAt    time.Time       `json:"created_at"`
	LastActive   time.Time       `json:"last_active"`
}

// TaskCounts breaks tasks down by status.
type TaskCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

func (c *TaskCounts) add(s task.Status) {
	c.Total++
	switch s {
	case task.StatusPending:
		c.Pending++
	case task.StatusInProgress:
		c.InProgress++
	case task.StatusCompleted:
		c.Completed++
	case task.StatusFailed:
		c.Failed++
	}
}

// AgentReport describes a single agent.
type AgentReport struct {
	Agent              AgentSummary      `json:"agent"`
	Performance        agent.Performance `json:"performance"`
	Tasks              TaskCounts        `json:"tasks"`
	AverageExecutionMS float64           `json:"average_execution_ms"`
	EpisodicSize       int               `json:"episodic_size"`
	SemanticSizes      map[string]int    `json:"semantic_sizes"`
}

// SystemReport aggregates the whole system.
type SystemReport struct {
	TotalAgents          int               `json:"total_agents"`
	ActiveAgents         int               `json:"active_agents"`
	TotalTasks           int               `json:"total_tasks"`
	Tasks                TaskCounts        `json:"tasks"`
	ActiveCollaborations int               `json:"active_collaborations"`
	Archetypes           []agent.Archetype `json:"archetypes"`
	MeanSuccessRate      float64           `json:"mean_success_rate"`
}

// Service computes reports.
type Service struct {
	registry *agent.Registry
	tasks    TaskSource
	collabs  CollaborationSource
}

// New creates a report service.
func New(registry *agent.Registry, tasks TaskSource, collabs CollaborationSource) *Service {
	return &Service{registry: registry, tasks: tasks, collabs: collabs}
}

// Agent reports on one agent.
func (s *Service) Agent(id string) (*AgentReport, error) {
	a, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}

	var counts TaskCounts
	var totalMS float64
	var timed int
	for _, t := range s.tasks.ListByAgent(id) {
		counts.add(t.Status)
		if t.Status.Terminal() && t.StartedAt != nil {
			totalMS += float64(t.Duration()) / float64(time.Millisecond)
			timed++
		}
	}
	avg := 0.0
	if timed > 0 {
		avg = totalMS / float64(timed)
	}

	sizes := make(map[string]int, len(a.Memory.Semantic))
	for k, v := range a.Memory.Semantic {
		sizes[k] = len(v)
	}

	return &AgentReport{
		Agent: AgentSummary{
			ID:           a.ID,
			Name:         a.Name,
			Archetype:    a.Archetype,
			Status:       a.Status,
			Capabilities: a.Capabilities,
			Tools:        a.Tools,
			CreatedAt:    a.CreatedAt,
			LastActive:   a.LastActive,
		},
		Performance:        a.Performance,
		Tasks:              counts,
		AverageExecutionMS: avg,
		EpisodicSize:       len(a.Memory.Episodic),
		SemanticSizes:      sizes,
	}, nil
}

// System reports on every agent, task and collaboration.
func (s *Service) System() *SystemReport {
	agents := s.registry.List()
	r := &SystemReport{TotalAgents: len(agents), Archetypes: []agent.Archetype{}}

	seen := make(map[agent.Archetype]bool)
	var rateSum float64
	for _, a := range agents {
		if a.Status == agent.StatusActive {
			r.ActiveAgents++
		}
		if !seen[a.Archetype] {
			seen[a.Archetype] = true
			r.Archetypes = append(r.Archetypes, a.Archetype)
		}
		rateSum += a.Performance.SuccessRate
	}
	sort.Slice(r.Archetypes, func(i, j int) bool { return r.Archetypes[i] < r.Archetypes[j] })
	if len(agents) > 0 {
		r.MeanSuccessRate = rateSum / float64(len(agents))
	}

	for _, t := range s.tasks.List() {
		r.Tasks.add(t.Status)
	}
	r.TotalTasks = r.Tasks.Total

	for _, c := range s.collabs.List() {
		if c.Status.Active() {
			r.ActiveCollaborations++
		}
	}
	return r
}

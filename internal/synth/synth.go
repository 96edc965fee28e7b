// Package synth turns the successful tool outputs of a task into one
// structured result. Each agent archetype has its own Synthesizer.
package synth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/agent"
)

// Result type labels.
const (
	TypeSpecialist  = "specialist_result"
	TypeAssistant   = "assistant_result"
	TypeCoordinator = "coordinator_result"
	TypeGeneral     = "general_result"
)

// ToolOutput is the data returned by one successful tool invocation.
type ToolOutput struct {
	Tool string `json:"tool"`
	Data any    `json:"data"`
}

// Input is everything a Synthesizer may look at.
type Input struct {
	Agent       *agent.Agent
	TaskType    string
	Description string
	Parameters  map[string]any
	Outputs     []ToolOutput
}

// Subtask is one unit of a coordinator's plan.
type Subtask struct {
	AgentID     string         `json:"agentId"`
	Type        string         `json:"type,omitempty"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Priority    string         `json:"priority,omitempty"`
}

// Plan is a coordinator's decomposition of a collaboration.
type Plan struct {
	Subtasks []Subtask `json:"subtasks"`
}

// Result is the structured output of a completed task.
type Result struct {
	Type       string       `json:"type"`
	AgentName  string       `json:"agent_name"`
	CreatedAt  time.Time    `json:"created_at"`
	Confidence float64      `json:"confidence"`
	Data       []ToolOutput `json:"data,omitempty"`
	Summary    string       `json:"summary,omitempty"`

	Specializations []string `json:"specializations,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	NextSteps       []string `json:"next_steps,omitempty"`

	Deliverables        []ToolOutput `json:"deliverables,omitempty"`
	Timeline            string       `json:"timeline,omitempty"`
	ResourceUtilization string       `json:"resource_utilization,omitempty"`
	Plan                *Plan        `json:"plan,omitempty"`
}

// Synthesizer builds a Result. Implementations are pure.
type Synthesizer interface {
	Synthesize(in Input) *Result
}

// ForArchetype returns the synthesizer for an archetype. Unknown values
// fall back to General.
func ForArchetype(a agent.Archetype) Synthesizer {
	switch a {
	case agent.ArchetypeSpecialist:
		return Specialist{}
	case agent.ArchetypeAssistant:
		return Assistant{}
	case agent.ArchetypeCoordinator:
		return Coordinator{}
	}
	return General{}
}

// Synthesize dispatches on the input agent's archetype.
func Synthesize(in Input) *Result {
	return ForArchetype(in.Agent.Archetype).Synthesize(in)
}

// Specialist reports per-specialization recommendations.
type Specialist struct{}

func (Specialist) Synthesize(in Input) *Result {
	specs := append([]string(nil), in.Agent.Knowledge.Specializations...)
	recs := make([]string, len(specs))
	for i, s := range specs {
		recs[i] = fmt.Sprintf("Apply %s expertise to refine the %s output", s, in.TaskType)
	}
	base := 0.5
	if len(in.Outputs) > 0 {
		base = 0.9
	}
	confidence := clamp(in.Agent.Performance.SuccessRate+in.Agent.Knowledge.Experience/100+base, 0, 1)

	return &Result{
		Type:            TypeSpecialist,
		AgentName:       in.Agent.Name,
		CreatedAt:       time.Now(),
		Confidence:      confidence,
		Data:            in.Outputs,
		Specializations: specs,
		Recommendations: recs,
	}
}

var assistantNextSteps = []string{
	"Review the generated results",
	"Request refinements if needed",
	"Share the output with stakeholders",
}

// Assistant summarizes the operations it performed.
type Assistant struct{}

func (Assistant) Synthesize(in Input) *Result {
	confidence := 0.5
	if len(in.Outputs) > 0 {
		confidence = 0.85
	}
	return &Result{
		Type:       TypeAssistant,
		AgentName:  in.Agent.Name,
		CreatedAt:  time.Now(),
		Confidence: confidence,
		Data:       in.Outputs,
		Summary:    fmt.Sprintf("Completed %d operations successfully for %s.", len(in.Outputs), in.TaskType),
		NextSteps:  append([]string(nil), assistantNextSteps...),
	}
}

// Coordinator reports deliverables and, when a tool produced one, a plan.
type Coordinator struct{}

func (Coordinator) Synthesize(in Input) *Result {
	confidence := 0.6
	if len(in.Outputs) > 0 {
		confidence = 0.9
	}
	return &Result{
		Type:                TypeCoordinator,
		AgentName:           in.Agent.Name,
		CreatedAt:           time.Now(),
		Confidence:          confidence,
		Deliverables:        in.Outputs,
		Timeline:            fmt.Sprintf("%d phase(s), estimated %d hour(s)", len(in.Outputs), max(1, len(in.Outputs))*2),
		ResourceUtilization: utilization(len(in.Outputs), len(in.Agent.Tools)),
		Plan:                extractPlan(in.Outputs),
	}
}

// General is the default synthesizer.
type General struct{}

func (General) Synthesize(in Input) *Result {
	return &Result{
		Type:       TypeGeneral,
		AgentName:  in.Agent.Name,
		CreatedAt:  time.Now(),
		Confidence: 0.8,
		Data:       in.Outputs,
		Summary:    "Task completed successfully",
	}
}

func utilization(used, available int) string {
	if available == 0 {
		return "no tools configured"
	}
	ratio := float64(used) / float64(available)
	switch {
	case ratio >= 0.75:
		return fmt.Sprintf("high (%d/%d tools)", used, available)
	case ratio >= 0.4:
		return fmt.Sprintf("moderate (%d/%d tools)", used, available)
	}
	return fmt.Sprintf("low (%d/%d tools)", used, available)
}

// extractPlan returns the first tool output that decodes into a plan with
// at least one subtask.
func extractPlan(outputs []ToolOutput) *Plan {
	for _, o := range outputs {
		raw, err := json.Marshal(o.Data)
		if err != nil {
			continue
		}
		var p Plan
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		if len(p.Subtasks) > 0 {
			return &p
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

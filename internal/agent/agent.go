package agent

import (
	"time"
)

// Archetype selects how an agent's results are synthesized.
type Archetype string

const (
	ArchetypeSpecialist  Archetype = "specialist"
	ArchetypeAssistant   Archetype = "assistant"
	ArchetypeCoordinator Archetype = "coordinator"
	ArchetypeGeneral     Archetype = "general"
)

// Valid reports whether a is one of the known archetypes.
func (a Archetype) Valid() bool {
	switch a {
	case ArchetypeSpecialist, ArchetypeAssistant, ArchetypeCoordinator, ArchetypeGeneral:
		return true
	}
	return false
}

// Status represents whether an agent accepts work.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Personality shapes how an agent presents its output.
type Personality struct {
	Tone        string            `json:"tone"`
	Style       string            `json:"style"`
	Expertise   []string          `json:"expertise"`
	Limitations []string          `json:"limitations"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// Knowledge is the agent's declared competence profile.
type Knowledge struct {
	Domains         []string `json:"domains"`
	Skills          []string `json:"skills"`
	Experience      float64  `json:"experience"` // 0-100
	Certifications  []string `json:"certifications"`
	Specializations []string `json:"specializations"`
}

// Outcome is the result of a single task as remembered by the agent.
type Outcome struct {
	Success       bool    `json:"success"`
	Error         string  `json:"error,omitempty"`
	ExecutionTime float64 `json:"execution_time_ms"`
}

// Episode is one entry of episodic memory.
type Episode struct {
	Timestamp time.Time      `json:"timestamp"`
	TaskType  string         `json:"task_type"`
	Context   map[string]any `json:"context"`
	Outcome   Outcome        `json:"outcome"`
}

// Sample is one outcome sample kept in semantic memory.
type Sample struct {
	Timestamp     time.Time `json:"timestamp"`
	Success       bool      `json:"success"`
	ExecutionTime float64   `json:"execution_time_ms"`
}

// Memory holds the agent's bounded task history.
type Memory struct {
	Episodic []Episode           `json:"episodic"`
	Semantic map[string][]Sample `json:"semantic"`
}

// Performance holds smoothed task metrics.
type Performance struct {
	TasksCompleted      int     `json:"tasks_completed"`
	SuccessRate         float64 `json:"success_rate"`
	AverageResponseTime float64 `json:"average_response_time_ms"`
	Efficiency          float64 `json:"efficiency"`
	UserSatisfaction    float64 `json:"user_satisfaction"`
	LearningProgress    float64 `json:"learning_progress"`
}

// Agent is a configured actor that executes tasks through its tools.
type Agent struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Archetype    Archetype   `json:"archetype"`
	Capabilities []string    `json:"capabilities"`
	Tools        []string    `json:"tools"`
	Personality  Personality `json:"personality"`
	Knowledge    Knowledge   `json:"knowledge"`
	Memory       Memory      `json:"memory"`
	Performance  Performance `json:"performance"`
	Status       Status      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	LastActive   time.Time   `json:"last_active"`
	Version      int64       `json:"version"` // bumped on every registry mutation
}

// Spec is the input for creating an agent.
type Spec struct {
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Archetype    Archetype   `json:"archetype"`
	Capabilities []string    `json:"capabilities"`
	Tools        []string    `json:"tools"`
	Personality  Personality `json:"personality"`
	Knowledge    Knowledge   `json:"knowledge"`
}

// Patch is a partial update; zero-valued fields are left untouched.
type Patch struct {
	Name         string       `json:"name,omitempty"`
	Description  string       `json:"description,omitempty"`
	Capabilities []string     `json:"capabilities,omitempty"`
	Tools        []string     `json:"tools,omitempty"`
	Personality  *Personality `json:"personality,omitempty"`
	Knowledge    *Knowledge   `json:"knowledge,omitempty"`
}

// Clone returns a deep copy of a.
func (a *Agent) Clone() *Agent {
	c := *a
	c.Capabilities = cloneStrings(a.Capabilities)
	c.Tools = cloneStrings(a.Tools)
	c.Personality = a.Personality.clone()
	c.Knowledge = a.Knowledge.clone()
	c.Memory = a.Memory.clone()
	return &c
}

func (p Personality) clone() Personality {
	p.Expertise = cloneStrings(p.Expertise)
	p.Limitations = cloneStrings(p.Limitations)
	if p.Preferences != nil {
		prefs := make(map[string]string, len(p.Preferences))
		for k, v := range p.Preferences {
			prefs[k] = v
		}
		p.Preferences = prefs
	}
	return p
}

func (k Knowledge) clone() Knowledge {
	k.Domains = cloneStrings(k.Domains)
	k.Skills = cloneStrings(k.Skills)
	k.Certifications = cloneStrings(k.Certifications)
	k.Specializations = cloneStrings(k.Specializations)
	return k
}

func (m Memory) clone() Memory {
	out := Memory{Semantic: make(map[string][]Sample, len(m.Semantic))}
	if m.Episodic != nil {
		out.Episodic = make([]Episode, len(m.Episodic))
		copy(out.Episodic, m.Episodic)
	}
	for k, v := range m.Semantic {
		s := make([]Sample, len(v))
		copy(s, v)
		out.Semantic[k] = s
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

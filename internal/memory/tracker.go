// Package memory keeps an agent's bounded task history and its smoothed
// performance metrics up to date after every task.
package memory

import (
	"math"
	"time"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/agent"
	"go.uber.org/zap"
)

const (
	// MaxEpisodic caps episodic memory; the oldest entries are evicted first.
	MaxEpisodic = 100
	// MaxSemanticPerType caps the samples kept per task type.
	MaxSemanticPerType = 50
	// Alpha is the EMA smoothing factor.
	Alpha = 0.1

	minEfficiencyHours = 0.1
)

// Record describes one finished task.
type Record struct {
	TaskType string
	Context  map[string]any
	Success  bool
	Error    string
	Duration time.Duration
	At       time.Time
}

// Tracker applies task records to agents held by a registry.
type Tracker struct {
	registry *agent.Registry
	logger   *zap.Logger
}

// NewTracker creates a tracker bound to the registry.
func NewTracker(registry *agent.Registry, logger *zap.Logger) *Tracker {
	return &Tracker{registry: registry, logger: logger}
}

// Record applies rec to the agent's memory and performance.
func (t *Tracker) Record(agentID string, rec Record) error {
	err := t.registry.Mutate(agentID, func(a *agent.Agent) {
		Apply(a, rec)
	})
	if err != nil {
		return err
	}
	t.logger.Debug("recorded task outcome",
		zap.String("agent", agentID),
		zap.String("task_type", rec.TaskType),
		zap.Bool("success", rec.Success),
		zap.Duration("duration", rec.Duration))
	return nil
}

// Apply mutates a in place.
func Apply(a *agent.Agent, rec Record) {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	ms := float64(rec.Duration) / float64(time.Millisecond)

	a.Memory.Episodic = append(a.Memory.Episodic, agent.Episode{
		Timestamp: rec.At,
		TaskType:  rec.TaskType,
		Context:   rec.Context,
		Outcome: agent.Outcome{
			Success:       rec.Success,
			Error:         rec.Error,
			ExecutionTime: ms,
		},
	})
	if n := len(a.Memory.Episodic); n > MaxEpisodic {
		a.Memory.Episodic = append([]agent.Episode(nil), a.Memory.Episodic[n-MaxEpisodic:]...)
	}

	if a.Memory.Semantic == nil {
		a.Memory.Semantic = make(map[string][]agent.Sample)
	}
	samples := append(a.Memory.Semantic[rec.TaskType], agent.Sample{
		Timestamp:     rec.At,
		Success:       rec.Success,
		ExecutionTime: ms,
	})
	if n := len(samples); n > MaxSemanticPerType {
		samples = append([]agent.Sample(nil), samples[n-MaxSemanticPerType:]...)
	}
	a.Memory.Semantic[rec.TaskType] = samples

	p := &a.Performance
	hit := 0.0
	if rec.Success {
		hit = 1
	}
	p.SuccessRate = Alpha*hit + (1-Alpha)*p.SuccessRate
	p.AverageResponseTime = Alpha*ms + (1-Alpha)*p.AverageResponseTime
	p.TasksCompleted++
	p.Efficiency = float64(p.TasksCompleted) / math.Max(rec.Duration.Hours(), minEfficiencyHours)
}

// TypeStats aggregates the semantic samples of one task type.
type TypeStats struct {
	Samples         int     `json:"samples"`
	SuccessRatio    float64 `json:"success_ratio"`
	MeanExecutionMS float64 `json:"mean_execution_ms"`
}

// Stats summarizes the agent's semantic memory for taskType.
func Stats(a *agent.Agent, taskType string) TypeStats {
	samples := a.Memory.Semantic[taskType]
	if len(samples) == 0 {
		return TypeStats{}
	}
	var ok int
	var total float64
	for _, s := range samples {
		if s.Success {
			ok++
		}
		total += s.ExecutionTime
	}
	n := float64(len(samples))
	return TypeStats{
		Samples:         len(samples),
		SuccessRatio:    float64(ok) / n,
		MeanExecutionMS: total / n,
	}
}

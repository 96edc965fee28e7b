package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func freshAgent() *agent.Agent {
	return &agent.Agent{
		Name:   "fresh",
		Memory: agent.Memory{Semantic: make(map[string][]agent.Sample)},
	}
}

func TestApplyCountsCompletions(t *testing.T) {
	a := freshAgent()
	for i := 0; i < 7; i++ {
		Apply(a, Record{TaskType: "x", Success: i%2 == 0, Duration: time.Second})
	}
	assert.Equal(t, 7, a.Performance.TasksCompleted)
}

func TestSuccessRateConverges(t *testing.T) {
	a := freshAgent()
	prev := a.Performance.SuccessRate
	for i := 0; i < 60; i++ {
		Apply(a, Record{TaskType: "x", Success: true, Duration: time.Millisecond})
		cur := a.Performance.SuccessRate
		require.Greater(t, cur, prev, "iteration %d", i)
		require.LessOrEqual(t, cur, 1.0)
		prev = cur
	}
	assert.InDelta(t, 1-0.9*0.9*0.9*0.9*0.9, successAfter(5), 1e-12)
}

func successAfter(k int) float64 {
	a := freshAgent()
	for i := 0; i < k; i++ {
		Apply(a, Record{TaskType: "x", Success: true})
	}
	return a.Performance.SuccessRate
}

func TestFailureLowersSuccessRate(t *testing.T) {
	a := freshAgent()
	a.Performance.SuccessRate = 0.5
	Apply(a, Record{TaskType: "x", Success: false})
	assert.InDelta(t, 0.45, a.Performance.SuccessRate, 1e-12)
}

func TestAverageResponseTimeEMA(t *testing.T) {
	a := freshAgent()
	Apply(a, Record{TaskType: "x", Success: true, Duration: 1000 * time.Millisecond})
	assert.InDelta(t, 100.0, a.Performance.AverageResponseTime, 1e-9)
	Apply(a, Record{TaskType: "x", Success: true, Duration: 1000 * time.Millisecond})
	assert.InDelta(t, 190.0, a.Performance.AverageResponseTime, 1e-9)
}

func TestEfficiencyGuardsShortExecutions(t *testing.T) {
	a := freshAgent()
	Apply(a, Record{TaskType: "x", Success: true, Duration: time.Second})
	assert.InDelta(t, 10.0, a.Performance.Efficiency, 1e-9)

	Apply(a, Record{TaskType: "x", Success: true, Duration: 2 * time.Hour})
	assert.InDelta(t, 1.0, a.Performance.Efficiency, 1e-9)
}

func TestEpisodicMemoryBounded(t *testing.T) {
	a := freshAgent()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 130; i++ {
		Apply(a, Record{
			TaskType: fmt.Sprintf("type-%d", i%3),
			Context:  map[string]any{"n": i},
			Success:  true,
			At:       base.Add(time.Duration(i) * time.Minute),
		})
		require.LessOrEqual(t, len(a.Memory.Episodic), MaxEpisodic)
	}
	require.Len(t, a.Memory.Episodic, MaxEpisodic)
	assert.Equal(t, 30, a.Memory.Episodic[0].Context["n"])
	assert.Equal(t, 129, a.Memory.Episodic[MaxEpisodic-1].Context["n"])
	for i := 1; i < len(a.Memory.Episodic); i++ {
		assert.True(t, a.Memory.Episodic[i-1].Timestamp.Before(a.Memory.Episodic[i].Timestamp))
	}
}

func TestSemanticMemoryBoundedPerType(t *testing.T) {
	a := freshAgent()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 75; i++ {
		Apply(a, Record{TaskType: "writing", Success: true, At: base.Add(time.Duration(i) * time.Second)})
	}
	Apply(a, Record{TaskType: "analysis", Success: false, At: base})

	writing := a.Memory.Semantic["writing"]
	require.Len(t, writing, MaxSemanticPerType)
	assert.Equal(t, base.Add(25*time.Second), writing[0].Timestamp)
	assert.Equal(t, base.Add(74*time.Second), writing[MaxSemanticPerType-1].Timestamp)
	assert.Len(t, a.Memory.Semantic["analysis"], 1)
}

func TestStats(t *testing.T) {
	a := freshAgent()
	Apply(a, Record{TaskType: "writing", Success: true, Duration: 100 * time.Millisecond})
	Apply(a, Record{TaskType: "writing", Success: false, Duration: 300 * time.Millisecond})

	s := Stats(a, "writing")
	assert.Equal(t, 2, s.Samples)
	assert.InDelta(t, 0.5, s.SuccessRatio, 1e-9)
	assert.InDelta(t, 200.0, s.MeanExecutionMS, 1e-9)
	assert.Equal(t, TypeStats{}, Stats(a, "missing"))
}

func TestTrackerRecord(t *testing.T) {
	reg := agent.NewRegistry(zap.NewNop())
	a, err := reg.Create(agent.Spec{Name: "n", Description: "d"})
	require.NoError(t, err)

	tr := NewTracker(reg, zap.NewNop())
	require.NoError(t, tr.Record(a.ID, Record{TaskType: "x", Success: true, Duration: time.Second}))

	got, _ := reg.Get(a.ID)
	assert.Equal(t, 1, got.Performance.TasksCompleted)
	assert.Len(t, got.Memory.Episodic, 1)

	assert.ErrorIs(t, tr.Record("missing", Record{}), agent.ErrAgentNotFound)
}

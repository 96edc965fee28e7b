package tool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKeywordSelector(t *testing.T) {
	tools := []string{"content_generator", "nlp_processor", "data_analyzer", "workflow_automator", "web_scraper"}
	sel := KeywordSelector{}

	tests := []struct {
		taskType string
		want     []string
	}{
		{"content_writing", []string{"content_generator", "nlp_processor"}},
		{"Blog WRITING", []string{"content_generator", "nlp_processor"}},
		{"data_analysis", []string{"data_analyzer"}},
		{"Quarterly Analysis", []string{"data_analyzer"}},
		{"workflow", []string{"workflow_automator"}},
		{"process automation", []string{"workflow_automator"}},
		{"research", tools},
		{"collaboration_planning", tools},
	}
	for _, tt := range tests {
		t.Run(tt.taskType, func(t *testing.T) {
			assert.Equal(t, tt.want, sel.Select(tt.taskType, tools))
		})
	}
}

func TestKeywordSelectorFirstRuleWins(t *testing.T) {
	// "content" matches before "data", so data tools are not considered.
	got := KeywordSelector{}.Select("content data", []string{"data_analyzer", "content_generator"})
	assert.Equal(t, []string{"content_generator"}, got)
}

func TestKeywordSelectorNoMatchingTools(t *testing.T) {
	got := KeywordSelector{}.Select("content_writing", []string{"data_analyzer"})
	assert.Empty(t, got)
}

func TestKeywordSelectorScenario(t *testing.T) {
	got := KeywordSelector{}.Select("content_writing", []string{"content_generator"})
	assert.Equal(t, []string{"content_generator"}, got)
}

func TestRegistryInvoke(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltinTools(reg)
	ctx := context.Background()

	res, err := reg.Invoke(ctx, ContentGenerator, map[string]any{"topic": "go"}, CallContext{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	data := res.Data.(map[string]any)
	assert.Contains(t, data["content"], "go")

	res, err = reg.Invoke(ctx, "nope", nil, CallContext{})
	assert.ErrorIs(t, err, ErrToolExecutionFailed)
	assert.False(t, res.Success)

	res, err = reg.Invoke(ctx, WebScraper, map[string]any{}, CallContext{})
	assert.ErrorIs(t, err, ErrToolExecutionFailed)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestDataAnalyzerStats(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltinTools(reg)

	res, err := reg.Invoke(context.Background(), DataAnalyzer, map[string]any{"data": []any{1.0, 2.0, 6.0}}, CallContext{})
	require.NoError(t, err)
	data := res.Data.(map[string]any)
	assert.Equal(t, 3, data["count"])
	assert.InDelta(t, 3.0, data["mean"].(float64), 1e-9)
	assert.Equal(t, 1.0, data["min"])
	assert.Equal(t, 6.0, data["max"])
}

func TestTaskPlannerSubtasks(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltinTools(reg)

	res, err := reg.Invoke(context.Background(), TaskPlanner, map[string]any{
		"participants":    []string{"b", "c"},
		"taskDescription": "launch",
	}, CallContext{})
	require.NoError(t, err)
	subtasks := res.Data.(map[string]any)["subtasks"].([]map[string]any)
	require.Len(t, subtasks, 2)
	assert.Equal(t, "b", subtasks[0]["agentId"])
	assert.Equal(t, "c", subtasks[1]["agentId"])
}

func TestExtractKeywords(t *testing.T) {
	got := extractKeywords("The quick brown fox and the quick dog")
	assert.Equal(t, []string{"quick", "brown", "fox", "dog"}, got)
}

func TestSentiment(t *testing.T) {
	assert.Equal(t, "positive", sentiment("A great, good day!"))
	assert.Equal(t, "negative", sentiment("terrible service"))
	assert.Equal(t, "neutral", sentiment("a table"))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	inner := InvokerFunc(func(ctx context.Context, toolID string, params map[string]any, cc CallContext) (Result, error) {
		calls.Add(1)
		return Result{Success: false, Error: "backend down"}, nil
	})
	b := NewBreakerInvoker(inner, BreakerConfig{MaxFailures: 2}, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := b.Invoke(ctx, "flaky", nil, CallContext{})
		assert.ErrorIs(t, err, ErrToolExecutionFailed)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State("flaky"))

	res, err := b.Invoke(ctx, "flaky", nil, CallContext{})
	assert.ErrorIs(t, err, ErrToolExecutionFailed)
	assert.False(t, res.Success)
	assert.Equal(t, int32(2), calls.Load(), "open circuit must not reach the backend")

	// Breakers are per tool.
	assert.Equal(t, gobreaker.StateClosed, b.State("other"))
}

func TestBreakerPassesSuccess(t *testing.T) {
	inner := InvokerFunc(func(ctx context.Context, toolID string, params map[string]any, cc CallContext) (Result, error) {
		return Result{Success: true, Data: toolID}, nil
	})
	b := NewBreakerInvoker(inner, BreakerConfig{}, zap.NewNop())

	res, err := b.Invoke(context.Background(), "ok", nil, CallContext{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "ok", res.Data)
}

func TestBreakerPropagatesInnerError(t *testing.T) {
	boom := errors.New("boom")
	inner := InvokerFunc(func(ctx context.Context, toolID string, params map[string]any, cc CallContext) (Result, error) {
		return Result{}, boom
	})
	b := NewBreakerInvoker(inner, BreakerConfig{}, zap.NewNop())

	_, err := b.Invoke(context.Background(), "x", nil, CallContext{})
	assert.ErrorIs(t, err, boom)
}

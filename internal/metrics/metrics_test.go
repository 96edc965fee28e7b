package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector("test")

	c.TaskStarted()
	c.TaskFinished("specialist", "completed", 50*time.Millisecond)
	c.ToolCall("content_generator", true)
	c.ToolCall("content_generator", false)
	c.CollaborationFinished("parallel", "completed", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksTotal.WithLabelValues("specialist", "completed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.tasksRunning))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.toolCallsTotal.WithLabelValues("content_generator", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.collaborationsTotal.WithLabelValues("parallel", "completed")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.TaskStarted()
	c.TaskFinished("general", "failed", time.Second)
	c.ToolCall("x", true)
	c.CollaborationFinished("peer", "failed", time.Second)
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("auraos")
	c.ToolCall("data_analyzer", true)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `auraos_tool_calls_total{outcome="success",tool="data_analyzer"} 1`))
}

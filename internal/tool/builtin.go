package tool

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Builtin tool ids.
const (
	ContentGenerator  = "content_generator"
	NLPProcessor      = "nlp_processor"
	DataAnalyzer      = "data_analyzer"
	WebScraper        = "web_scraper"
	WorkflowAutomator = "workflow_automator"
	TaskPlanner       = "task_planner"
)

// RegisterBuiltinTools adds the simulated tool backends to a registry.
func RegisterBuiltinTools(reg *Registry) {
	reg.Register(Definition{
		ID:          ContentGenerator,
		Description: "Generate written content for a topic",
	}, func(ctx context.Context, params map[string]any, cc CallContext) (any, error) {
		topic := stringParam(params, "topic")
		if topic == "" {
			topic = stringParam(params, "description")
		}
		if topic == "" {
			topic = cc.Metadata["taskType"]
		}
		content := fmt.Sprintf("Generated content about %s.", topic)
		return map[string]any{
			"content":    content,
			"word_count": len(strings.Fields(content)),
			"tone":       orDefault(stringParam(params, "tone"), "neutral"),
		}, nil
	})

	reg.Register(Definition{
		ID:          NLPProcessor,
		Description: "Extract keywords and a coarse sentiment from text",
	}, func(ctx context.Context, params map[string]any, cc CallContext) (any, error) {
		text := stringParam(params, "text")
		if text == "" {
			text = stringParam(params, "description")
		}
		keywords := extractKeywords(text)
		return map[string]any{
			"keywords":  keywords,
			"tokens":    len(strings.Fields(text)),
			"sentiment": sentiment(text),
		}, nil
	})

	reg.Register(Definition{
		ID:          DataAnalyzer,
		Description: "Compute summary statistics over a numeric series",
	}, func(ctx context.Context, params map[string]any, cc CallContext) (any, error) {
		values := floatSlice(params["data"])
		if len(values) == 0 {
			return map[string]any{"count": 0, "insights": []string{"no data supplied"}}, nil
		}
		minV, maxV, sum := math.Inf(1), math.Inf(-1), 0.0
		for _, v := range values {
			sum += v
			minV = math.Min(minV, v)
			maxV = math.Max(maxV, v)
		}
		mean := sum / float64(len(values))
		return map[string]any{
			"count": len(values),
			"mean":  mean,
			"min":   minV,
			"max":   maxV,
			"insights": []string{
				fmt.Sprintf("range spans %.2f", maxV-minV),
			},
		}, nil
	})

	reg.Register(Definition{
		ID:          WebScraper,
		Description: "Fetch a page summary for a URL",
	}, func(ctx context.Context, params map[string]any, cc CallContext) (any, error) {
		url := stringParam(params, "url")
		if url == "" {
			return nil, fmt.Errorf("url parameter is required")
		}
		return map[string]any{
			"url":        url,
			"title":      "Simulated page for " + url,
			"fetched_at": time.Now().UTC().Format(time.RFC3339),
		}, nil
	})

	reg.Register(Definition{
		ID:          WorkflowAutomator,
		Description: "Run a named sequence of workflow steps",
	}, func(ctx context.Context, params map[string]any, cc CallContext) (any, error) {
		steps := stringSlice(params["steps"])
		if len(steps) == 0 {
			steps = []string{"prepare", "execute", "verify"}
		}
		executed := make([]map[string]any, len(steps))
		for i, s := range steps {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			executed[i] = map[string]any{"step": s, "status": "done"}
		}
		return map[string]any{"steps": executed, "status": "executed"}, nil
	})

	reg.Register(Definition{
		ID:          TaskPlanner,
		Description: "Split a collaboration into one subtask per participant",
	}, func(ctx context.Context, params map[string]any, cc CallContext) (any, error) {
		participants := stringSlice(params["participants"])
		desc := stringParam(params, "taskDescription")
		subtasks := make([]map[string]any, 0, len(participants))
		for i, p := range participants {
			subtasks = append(subtasks, map[string]any{
				"agentId":     p,
				"type":        "collaboration_subtask",
				"description": fmt.Sprintf("Part %d of %d: %s", i+1, len(participants), desc),
				"parameters":  map[string]any{"description": desc, "part": i + 1},
				"priority":    "medium",
			})
		}
		return map[string]any{"subtasks": subtasks}, nil
	})
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func stringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func floatSlice(v any) []float64 {
	switch s := v.(type) {
	case []float64:
		return s
	case []int:
		out := make([]float64, len(s))
		for i, n := range s {
			out[i] = float64(n)
		}
		return out
	case []any:
		out := make([]float64, 0, len(s))
		for _, item := range s {
			switch n := item.(type) {
			case float64:
				out = append(out, n)
			case int:
				out = append(out, float64(n))
			}
		}
		return out
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

var positiveWords = map[string]bool{"good": true, "great": true, "excellent": true, "happy": true, "love": true}
var negativeWords = map[string]bool{"bad": true, "poor": true, "terrible": true, "sad": true, "hate": true}

func sentiment(text string) string {
	score := 0
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:")
		if positiveWords[w] {
			score++
		}
		if negativeWords[w] {
			score--
		}
	}
	switch {
	case score > 0:
		return "positive"
	case score < 0:
		return "negative"
	}
	return "neutral"
}

// extractKeywords splits on punctuation, drops short words and stopwords.
func extractKeywords(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '_' || r == '-' ||
			r > 127)
	})

	seen := make(map[string]bool)
	var result []string
	for _, w := range words {
		lower := strings.ToLower(w)
		if len(lower) < 3 || stopwords[lower] || seen[lower] {
			continue
		}
		seen[lower] = true
		result = append(result, lower)
		if len(result) >= 20 {
			break
		}
	}
	return result
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true,
	"but": true, "not": true, "you": true, "all": true,
	"can": true, "had": true, "her": true, "was": true,
	"one": true, "our": true, "out": true, "has": true,
	"have": true, "been": true, "this": true, "that": true,
	"with": true, "from": true, "they": true, "will": true,
	"what": true, "when": true, "make": true, "like": true,
	"just": true, "into": true, "than": true, "them": true,
}

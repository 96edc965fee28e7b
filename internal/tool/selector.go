package tool

import "strings"

// Selector picks which of an agent's tools run for a task type.
type Selector interface {
	Select(taskType string, tools []string) []string
}

// keywordRule maps task-type keywords to tool-id keywords.
type keywordRule struct {
	taskWords []string
	toolWords []string
}

var keywordRules = []keywordRule{
	{taskWords: []string{"content", "writing"}, toolWords: []string{"content", "nlp"}},
	{taskWords: []string{"data", "analysis"}, toolWords: []string{"data", "analyzer"}},
	{taskWords: []string{"automation", "workflow"}, toolWords: []string{"workflow", "automator"}},
}

// KeywordSelector is the substring heuristic: the first rule whose task
// keyword occurs in the lower-cased task type filters the tools; with no
// matching rule every tool is kept. Order of tools is preserved.
type KeywordSelector struct{}

// Select implements Selector.
func (KeywordSelector) Select(taskType string, tools []string) []string {
	lower := strings.ToLower(taskType)
	for _, rule := range keywordRules {
		if !containsAny(lower, rule.taskWords) {
			continue
		}
		var out []string
		for _, t := range tools {
			if containsAny(t, rule.toolWords) {
				out = append(out, t)
			}
		}
		return out
	}
	out := make([]string, len(tools))
	copy(out, tools)
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Package analyzer classifies raw prompts into a structured routing signal.
// It is pure and total: every prompt yields an analysis, there is no error
// case and no I/O.
package analyzer

import (
	"strings"

	"github.com/pagecraft/ai-router/internal/domain"
)

// Analyze inspects prompt text and returns the signal the routing policy
// keys on. The decision-table fields (RecommendedModel, Reasoning) are left
// empty; the policy fills them.
func Analyze(requestType domain.RequestType, prompt string) domain.PromptAnalysis {
	lower := strings.ToLower(prompt)
	words := len(strings.Fields(prompt))

	hasDetail := matchesAny(lower, detailKeywords)
	hasSimple := matchesAny(lower, simpleKeywords)

	a := domain.PromptAnalysis{
		WordCount:      words,
		NeedsSpeed:     matchesAny(lower, speedKeywords),
		RequiresDetail: hasDetail,
		ComplexityTier: complexity(requestType, words, hasDetail, hasSimple),
	}

	if requestType == domain.RequestTypeImage {
		a.Style = resolveStyle(lower)
	}

	return a
}

// complexity applies the tier rules. The complex rule is evaluated first so
// a detail keyword dominates a short word count.
func complexity(rt domain.RequestType, words int, hasDetail, hasSimple bool) domain.ComplexityTier {
	threshold := textComplexWordCount
	if rt == domain.RequestTypeImage {
		threshold = imageComplexWordCount
	}

	if words > threshold || hasDetail {
		return domain.ComplexityComplex
	}
	if words < simpleWordCount || hasSimple {
		return domain.ComplexitySimple
	}
	return domain.ComplexityModerate
}

// resolveStyle walks the priority-ordered style groups; first match wins.
func resolveStyle(lower string) domain.ImageStyle {
	for _, g := range styleGroups {
		if matchesAny(lower, g.keywords) {
			return g.style
		}
	}
	return domain.StylePhotorealistic
}

func matchesAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

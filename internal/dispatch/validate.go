package dispatch

import (
	"fmt"
	"strings"

	"github.com/pagecraft/ai-router/internal/domain"
)

// Prompt bounds. Image prompts are shorter because backends truncate them.
const (
	minPromptLen      = 3
	maxTextPromptLen  = 4000
	maxImagePromptLen = 2000
)

// blockedTerms is the pre-dispatch content screen. It is deliberately
// narrow: the backends run their own moderation, this only stops requests
// that would certainly be rejected there.
var blockedTerms = []string{
	"csam",
	"child sexual",
	"how to build a bomb",
}

// ValidatePrompt enforces length bounds and the content screen. It runs
// before the budget gate and before any backend call; a rejected prompt
// consumes no budget.
func ValidatePrompt(req domain.GenerationRequest) error {
	prompt := strings.TrimSpace(req.Prompt)
	if len(prompt) < minPromptLen {
		return domain.NewInvalidPrompt("prompt is too short, please describe what you want to generate")
	}

	maxLen := maxTextPromptLen
	if req.RequestType == domain.RequestTypeImage {
		maxLen = maxImagePromptLen
	}
	if len(prompt) > maxLen {
		return domain.NewInvalidPrompt(fmt.Sprintf("prompt is too long, the limit is %d characters", maxLen))
	}

	lower := strings.ToLower(prompt)
	for _, term := range blockedTerms {
		if strings.Contains(lower, term) {
			return domain.NewInvalidPrompt("prompt contains content that cannot be generated")
		}
	}

	return nil
}

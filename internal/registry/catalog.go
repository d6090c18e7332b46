package registry

import "github.com/pagecraft/ai-router/internal/domain"

// Text pricing is keyed on the caller's length hint; image pricing on the
// requested dimensions, with an HD surcharge where the backend charges one.

func textCost(short, medium, long int) CostFunc {
	return func(sizeHint, qualityHint string) int {
		base := medium
		switch sizeHint {
		case "short":
			base = short
		case "long":
			base = long
		}
		if qualityHint == "high" {
			base *= 2
		}
		return base
	}
}

func imageCost(bySize map[string]int, defaultCents, hdCents int) CostFunc {
	return func(sizeHint, qualityHint string) int {
		base, ok := bySize[sizeHint]
		if !ok {
			base = defaultCents
		}
		if qualityHint == "hd" && hdCents > 0 {
			base += hdCents
		}
		return base
	}
}

// DefaultCatalog is the production model table: the stock of backends the
// platform routes across, with list pricing rounded up to whole cents.
func DefaultCatalog() []Profile {
	return []Profile{
		// Text backends.
		{
			ID:           "gpt-4o",
			RequestType:  domain.RequestTypeText,
			Provider:     "openai",
			Capabilities: []string{CapHighFidelity, CapReasoning},
			Default:      true,
			Cost:         textCost(2, 5, 10),
		},
		{
			ID:           "gpt-4o-mini",
			RequestType:  domain.RequestTypeText,
			Provider:     "openai",
			Capabilities: []string{CapFast, CapCheap, CapAlwaysAvailable},
			Cost:         textCost(1, 1, 2),
		},
		{
			ID:           "claude-3-5-sonnet",
			RequestType:  domain.RequestTypeText,
			Provider:     "anthropic",
			Capabilities: []string{CapStyleFlexible, CapReasoning},
			Cost:         textCost(3, 6, 12),
		},
		{
			ID:           "claude-3-5-haiku",
			RequestType:  domain.RequestTypeText,
			Provider:     "anthropic",
			Capabilities: []string{CapFast, CapCheap},
			Cost:         textCost(1, 2, 3),
		},
		{
			ID:           "titan-text-express",
			RequestType:  domain.RequestTypeText,
			Provider:     "bedrock",
			Capabilities: []string{CapCheap},
			Cost:         textCost(1, 1, 2),
		},
		{
			ID:           "llama-3.1-8b",
			RequestType:  domain.RequestTypeText,
			Provider:     "ollama",
			Capabilities: []string{CapCheap, CapAlwaysAvailable},
			Cost:         textCost(0, 0, 0),
		},

		// Image backends.
		{
			ID:           "dall-e-3",
			RequestType:  domain.RequestTypeImage,
			Provider:     "openai",
			Capabilities: []string{CapHighFidelity},
			Default:      true,
			Cost: imageCost(map[string]int{
				"1024x1024": 4,
				"1792x1024": 8,
				"1024x1792": 8,
			}, 4, 4),
		},
		{
			ID:           "dall-e-2",
			RequestType:  domain.RequestTypeImage,
			Provider:     "openai",
			Capabilities: []string{CapCheap, CapAlwaysAvailable},
			Cost: imageCost(map[string]int{
				"256x256":   2,
				"512x512":   2,
				"1024x1024": 2,
			}, 2, 0),
		},
		{
			ID:           "stable-diffusion-xl",
			RequestType:  domain.RequestTypeImage,
			Provider:     "stability",
			Capabilities: []string{CapStyleFlexible},
			Cost:         imageCost(map[string]int{"1024x1024": 2}, 2, 0),
		},
		{
			ID:           "sdxl-turbo",
			RequestType:  domain.RequestTypeImage,
			Provider:     "stability",
			Capabilities: []string{CapFast, CapCheap},
			Cost:         imageCost(map[string]int{"1024x1024": 1}, 1, 0),
		},
		{
			ID:           "titan-image",
			RequestType:  domain.RequestTypeImage,
			Provider:     "bedrock",
			Capabilities: []string{CapCheap},
			Cost:         imageCost(map[string]int{"1024x1024": 1}, 1, 0),
		},
	}
}

// DefaultFallbacks names the single runtime fallback model per request type:
// the cheapest backend expected to stay up.
func DefaultFallbacks() map[domain.RequestType]string {
	return map[domain.RequestType]string{
		domain.RequestTypeText:  "gpt-4o-mini",
		domain.RequestTypeImage: "dall-e-2",
	}
}

// Default builds the production registry.
func Default() *Registry {
	return New(DefaultCatalog(), DefaultFallbacks())
}

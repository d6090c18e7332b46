package policy

import "github.com/pagecraft/ai-router/internal/domain"

// The decision tables map analyzer output to a recommended model. They are
// data: retuning the routing (new model, different tier mapping) is a table
// edit, not a code change.

type recommendation struct {
	Model     string
	Reasoning string
}

// Tables drive the auto-routing recommendation. Keyed lookups run in order:
// detail, speed, then the style (image) or complexity (text) base row.
type Tables struct {
	// TextDetail / ImageDetail win over everything else.
	TextDetail  recommendation
	ImageDetail recommendation

	// Speed picks apply when the prompt asks for a fast turnaround and does
	// not require detail.
	TextSpeed  recommendation
	ImageSpeed recommendation

	TextByTier   map[domain.ComplexityTier]recommendation
	ImageByStyle map[domain.ImageStyle]recommendation
}

// DefaultTables is the production decision table over the default catalogue.
func DefaultTables() Tables {
	return Tables{
		TextDetail: recommendation{
			Model:     "gpt-4o",
			Reasoning: "prompt requires detail, using the highest-fidelity text model",
		},
		ImageDetail: recommendation{
			Model:     "dall-e-3",
			Reasoning: "prompt requires detail, using the highest-fidelity image model",
		},
		TextSpeed: recommendation{
			Model:     "gpt-4o-mini",
			Reasoning: "prompt asks for a fast turnaround, using the fastest cheap text model",
		},
		ImageSpeed: recommendation{
			Model:     "sdxl-turbo",
			Reasoning: "prompt asks for a fast turnaround, using the fastest cheap image model",
		},
		TextByTier: map[domain.ComplexityTier]recommendation{
			domain.ComplexitySimple: {
				Model:     "gpt-4o-mini",
				Reasoning: "simple prompt, a budget model is sufficient",
			},
			domain.ComplexityModerate: {
				Model:     "claude-3-5-haiku",
				Reasoning: "moderate prompt, balancing quality and cost",
			},
			domain.ComplexityComplex: {
				Model:     "gpt-4o",
				Reasoning: "complex prompt, using the highest-fidelity text model",
			},
		},
		ImageByStyle: map[domain.ImageStyle]recommendation{
			domain.StylePhotorealistic: {
				Model:     "dall-e-3",
				Reasoning: "photorealistic style renders best on the premium image model",
			},
			domain.StyleArtistic: {
				Model:     "stable-diffusion-xl",
				Reasoning: "artistic style suits the most style-flexible model",
			},
			domain.StyleAbstract: {
				Model:     "stable-diffusion-xl",
				Reasoning: "abstract style suits the most style-flexible model",
			},
			domain.StyleIllustration: {
				Model:     "stable-diffusion-xl",
				Reasoning: "illustration style suits the most style-flexible model",
			},
			domain.StyleSketch: {
				Model:     "sdxl-turbo",
				Reasoning: "sketch style renders well on the fast budget model",
			},
			domain.StyleAnime: {
				Model:     "stable-diffusion-xl",
				Reasoning: "anime style suits the most style-flexible model",
			},
			domain.StyleLogo: {
				Model:     "dall-e-3",
				Reasoning: "logo work needs crisp output from the premium image model",
			},
			domain.StyleTechnical: {
				Model:     "dall-e-3",
				Reasoning: "technical drawings need the premium image model",
			},
		},
	}
}

// recommend resolves the table for one analysis. Detail beats speed beats
// the base row.
func (t Tables) recommend(requestType domain.RequestType, a domain.PromptAnalysis) recommendation {
	if requestType == domain.RequestTypeImage {
		if a.RequiresDetail {
			return t.ImageDetail
		}
		if a.NeedsSpeed {
			return t.ImageSpeed
		}
		if rec, ok := t.ImageByStyle[a.Style]; ok {
			return rec
		}
		return t.ImageDetail
	}

	if a.RequiresDetail {
		return t.TextDetail
	}
	if a.NeedsSpeed {
		return t.TextSpeed
	}
	if rec, ok := t.TextByTier[a.ComplexityTier]; ok {
		return rec
	}
	return t.TextDetail
}

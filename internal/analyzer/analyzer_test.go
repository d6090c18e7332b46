package analyzer

import (
	"strings"
	"testing"

	"github.com/pagecraft/ai-router/internal/domain"
)

func TestAnalyze_ComplexityTiers(t *testing.T) {
	tests := []struct {
		name        string
		requestType domain.RequestType
		prompt      string
		want        domain.ComplexityTier
	}{
		{
			name:        "short prompt is simple",
			requestType: domain.RequestTypeText,
			prompt:      "write a headline",
			want:        domain.ComplexitySimple,
		},
		{
			name:        "exactly ten words with no keywords is moderate",
			requestType: domain.RequestTypeText,
			prompt:      "one two three four five six seven eight nine ten",
			want:        domain.ComplexityModerate,
		},
		{
			name:        "exactly ten words with a simple keyword is simple",
			requestType: domain.RequestTypeText,
			prompt:      "please keep it plain one two three four five six",
			want:        domain.ComplexitySimple,
		},
		{
			name:        "detail keyword forces complex",
			requestType: domain.RequestTypeText,
			prompt:      "a detailed plan",
			want:        domain.ComplexityComplex,
		},
		{
			name:        "text prompt over thirty words is complex",
			requestType: domain.RequestTypeText,
			prompt:      strings.Repeat("word ", 31),
			want:        domain.ComplexityComplex,
		},
		{
			name:        "exactly thirty text words is moderate",
			requestType: domain.RequestTypeText,
			prompt:      strings.Repeat("word ", 30),
			want:        domain.ComplexityModerate,
		},
		{
			name:        "image prompt of thirty-five words stays moderate",
			requestType: domain.RequestTypeImage,
			prompt:      strings.Repeat("word ", 35),
			want:        domain.ComplexityModerate,
		},
		{
			name:        "image prompt over forty words is complex",
			requestType: domain.RequestTypeImage,
			prompt:      strings.Repeat("word ", 41),
			want:        domain.ComplexityComplex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.requestType, tt.prompt)
			if got.ComplexityTier != tt.want {
				t.Errorf("ComplexityTier = %q, want %q (words=%d)", got.ComplexityTier, tt.want, got.WordCount)
			}
		})
	}
}

func TestAnalyze_StylePriority(t *testing.T) {
	tests := []struct {
		prompt string
		want   domain.ImageStyle
	}{
		{"a photorealistic portrait of a dog", domain.StylePhotorealistic},
		{"an oil painting of the sea", domain.StyleArtistic},
		{"abstract geometric shapes", domain.StyleAbstract},
		{"flat design illustration of a rocket", domain.StyleIllustration},
		{"pencil sketch of a house", domain.StyleSketch},
		{"anime girl with blue hair", domain.StyleAnime},
		{"minimal logo for a bakery", domain.StyleLogo},
		{"isometric diagram of a network", domain.StyleTechnical},
		{"a cat sitting on a windowsill", domain.StylePhotorealistic}, // default
		// photorealistic outranks sketch when both match
		{"realistic sketch study", domain.StylePhotorealistic},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			got := Analyze(domain.RequestTypeImage, tt.prompt)
			if got.Style != tt.want {
				t.Errorf("Style = %q, want %q", got.Style, tt.want)
			}
		})
	}
}

func TestAnalyze_Flags(t *testing.T) {
	a := Analyze(domain.RequestTypeImage, "a quick sketch of a cat")
	if !a.NeedsSpeed {
		t.Error("expected NeedsSpeed for 'quick'")
	}
	if a.RequiresDetail {
		t.Error("did not expect RequiresDetail")
	}
	if a.ComplexityTier != domain.ComplexitySimple {
		t.Errorf("ComplexityTier = %q, want simple", a.ComplexityTier)
	}
	if a.Style != domain.StyleSketch {
		t.Errorf("Style = %q, want sketch", a.Style)
	}

	b := Analyze(domain.RequestTypeImage, "an intricate, detailed photorealistic portrait")
	if !b.RequiresDetail {
		t.Error("expected RequiresDetail")
	}
	if b.Style != domain.StylePhotorealistic {
		t.Errorf("Style = %q, want photorealistic", b.Style)
	}
	if b.ComplexityTier != domain.ComplexityComplex {
		t.Errorf("ComplexityTier = %q, want complex", b.ComplexityTier)
	}
}

func TestAnalyze_TextHasNoStyle(t *testing.T) {
	a := Analyze(domain.RequestTypeText, "an anime inspired tagline")
	if a.Style != "" {
		t.Errorf("text analysis should not set a style, got %q", a.Style)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	prompt := "a detailed photorealistic landscape, quick turnaround"
	first := Analyze(domain.RequestTypeImage, prompt)
	for i := 0; i < 5; i++ {
		if got := Analyze(domain.RequestTypeImage, prompt); got != first {
			t.Fatalf("Analyze is not deterministic: %+v vs %+v", got, first)
		}
	}
}

package analyzer

import "github.com/pagecraft/ai-router/internal/domain"

// Keyword groups are data, not code: adding a style or threshold is a table
// edit. All matching happens against the lowercased prompt.

var detailKeywords = []string{
	"detailed",
	"intricate",
	"elaborate",
	"ornate",
	"hyper-detailed",
	"high resolution",
	"high-resolution",
	"fine-grained",
	"comprehensive",
	"in-depth",
	"thorough",
}

var simpleKeywords = []string{
	"simple",
	"basic",
	"plain",
	"minimal",
	"rough",
	"quick",
}

var speedKeywords = []string{
	"quick",
	"fast",
	"asap",
	"urgent",
	"draft",
	"rough",
	"sketch",
}

// styleGroup pairs a style with its marker keywords. Order is the resolution
// priority: first group with a match wins.
type styleGroup struct {
	style    domain.ImageStyle
	keywords []string
}

var styleGroups = []styleGroup{
	{domain.StylePhotorealistic, []string{"photorealistic", "photo-realistic", "photograph", "realistic", "lifelike", "dslr", "4k"}},
	{domain.StyleArtistic, []string{"artistic", "painting", "painterly", "oil painting", "watercolor", "impressionist"}},
	{domain.StyleAbstract, []string{"abstract", "geometric", "surreal"}},
	{domain.StyleIllustration, []string{"illustration", "illustrated", "vector", "flat design", "cartoon"}},
	{domain.StyleSketch, []string{"sketch", "doodle", "line art", "pencil", "charcoal"}},
	{domain.StyleAnime, []string{"anime", "manga", "chibi"}},
	{domain.StyleLogo, []string{"logo", "icon", "emblem", "wordmark", "brand mark"}},
	{domain.StyleTechnical, []string{"technical", "diagram", "blueprint", "schematic", "isometric"}},
}

// Complexity word-count thresholds. The text and image variants differ.
const (
	simpleWordCount       = 10
	textComplexWordCount  = 30
	imageComplexWordCount = 40
)

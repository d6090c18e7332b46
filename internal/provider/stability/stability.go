// Package stability adapts the Stability AI image API to the dispatcher's
// provider interface.
package stability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pagecraft/ai-router/internal/dispatch"
	"github.com/pagecraft/ai-router/internal/domain"
	"github.com/pagecraft/ai-router/internal/httputil"
)

const baseURL = "https://api.stability.ai/v1"

// engineIDs maps catalogue ids to Stability engine names.
var engineIDs = map[string]string{
	"stable-diffusion-xl": "stable-diffusion-xl-1024-v1-0",
	"sdxl-turbo":          "sdxl-turbo-1-0",
}

type Adapter struct {
	apiKey string
	client *http.Client
}

func New(apiKey string) *Adapter {
	return &Adapter{
		apiKey: apiKey,
		client: httputil.DefaultClient(),
	}
}

func (a *Adapter) ID() string {
	return "stability"
}

type textPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type generateRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Samples     int          `json:"samples"`
}

type generateResponse struct {
	Artifacts []struct {
		Base64 string `json:"base64"`
	} `json:"artifacts"`
}

func (a *Adapter) Generate(ctx context.Context, modelID string, req domain.GenerationRequest) (*dispatch.AdapterResult, error) {
	engine, ok := engineIDs[modelID]
	if !ok {
		engine = modelID
	}

	prompts := []textPrompt{{Text: req.Prompt, Weight: 1}}
	if req.NegativePrompt != "" {
		prompts = append(prompts, textPrompt{Text: req.NegativePrompt, Weight: -1})
	}

	width, height := parseSize(req.SizeHint)
	body, err := json.Marshal(generateRequest{
		TextPrompts: prompts,
		Width:       width,
		Height:      height,
		Samples:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/generation/%s/text-to-image", baseURL, engine)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		// Stability deducts credits once generation starts; a server-side
		// failure may still have been billed.
		return nil, &dispatch.BackendError{
			Status:  resp.StatusCode,
			Body:    string(bodyBytes),
			Charged: resp.StatusCode >= 500,
		}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(out.Artifacts) == 0 {
		return nil, fmt.Errorf("stability: empty artifacts")
	}

	images := make([]domain.GeneratedImage, 0, len(out.Artifacts))
	for _, art := range out.Artifacts {
		images = append(images, domain.GeneratedImage{Base64: art.Base64})
	}

	return &dispatch.AdapterResult{Images: images}, nil
}

func parseSize(hint string) (int, int) {
	var w, h int
	if _, err := fmt.Sscanf(hint, "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 1024, 1024
	}
	return w, h
}

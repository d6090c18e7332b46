// Package openai adapts OpenAI chat and image endpoints to the dispatcher's
// provider interface.
package openai

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

type Adapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func New(apiKey, baseURL string) *Adapter {
	return &Adapter{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  httputil.DefaultClient(),
	}
}

func (a *Adapter) ID() string {
	return "openai"
}

func (a *Adapter) Generate(ctx context.Context, modelID string, req domain.GenerationRequest) (*dispatch.AdapterResult, error) {
	if req.RequestType == domain.RequestTypeImage {
		return a.generateImage(ctx, modelID, req)
	}
	return a.generateText(ctx, modelID, req)
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (a *Adapter) generateText(ctx context.Context, modelID string, req domain.GenerationRequest) (*dispatch.AdapterResult, error) {
	payload := chatRequest{
		Model:    modelID,
		Messages: []chatMessage{{Role: "user", Content: req.Prompt}},
	}

	var resp chatResponse
	if err := a.post(ctx, "/chat/completions", payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices")
	}

	return &dispatch.AdapterResult{Content: resp.Choices[0].Message.Content}, nil
}

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
}

type imageResponse struct {
	Data []struct {
		URL     string `json:"url,omitempty"`
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
}

func (a *Adapter) generateImage(ctx context.Context, modelID string, req domain.GenerationRequest) (*dispatch.AdapterResult, error) {
	payload := imageRequest{
		Model:  modelID,
		Prompt: req.Prompt,
		N:      1,
		Size:   req.SizeHint,
	}
	// Only dall-e-3 understands the quality knob.
	if modelID == "dall-e-3" && req.QualityHint == "hd" {
		payload.Quality = "hd"
	}

	var resp imageResponse
	if err := a.post(ctx, "/images/generations", payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai: empty image data")
	}

	images := make([]domain.GeneratedImage, 0, len(resp.Data))
	for _, d := range resp.Data {
		images = append(images, domain.GeneratedImage{URL: d.URL, Base64: d.B64JSON})
	}

	return &dispatch.AdapterResult{Images: images}, nil
}

func (a *Adapter) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		// 5xx after the request was accepted may still be billed; the
		// dispatcher records that cost against the tenant.
		return &dispatch.BackendError{
			Status:  resp.StatusCode,
			Body:    string(bodyBytes),
			Charged: resp.StatusCode >= 500,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

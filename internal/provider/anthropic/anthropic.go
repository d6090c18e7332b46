// Package anthropic adapts the Anthropic Messages API to the dispatcher's
// provider interface. Text only.
package anthropic

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

const (
	baseURL    = "https://api.anthropic.com/v1"
	apiVersion = "2023-06-01"
	maxTokens  = 4096
)

// modelIDs maps catalogue ids to Anthropic's dated model names.
var modelIDs = map[string]string{
	"claude-3-5-sonnet": "claude-3-5-sonnet-20241022",
	"claude-3-5-haiku":  "claude-3-5-haiku-20241022",
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
	return "anthropic"
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *Adapter) Generate(ctx context.Context, modelID string, req domain.GenerationRequest) (*dispatch.AdapterResult, error) {
	model, ok := modelIDs[modelID]
	if !ok {
		model = modelID
	}

	payload := messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: req.Prompt}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		// Server-side failures can land after the request was accepted for
		// billing; client errors never are.
		return nil, &dispatch.BackendError{
			Status:  resp.StatusCode,
			Body:    string(bodyBytes),
			Charged: resp.StatusCode >= 500,
		}
	}

	var out messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	for _, block := range out.Content {
		if block.Type == "text" {
			return &dispatch.AdapterResult{Content: block.Text}, nil
		}
	}

	return nil, fmt.Errorf("anthropic: no text block in response")
}

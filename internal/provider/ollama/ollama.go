// Package ollama adapts a local Ollama instance to the dispatcher's provider
// interface. Text only; costs nothing, which makes it the zero-cent entry in
// the catalogue.
package ollama

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

// modelIDs maps catalogue ids to Ollama tags.
var modelIDs = map[string]string{
	"llama-3.1-8b": "llama3.1:8b",
}

type Adapter struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) *Adapter {
	return &Adapter{
		baseURL: baseURL,
		client:  httputil.DefaultClient(),
	}
}

func (a *Adapter) ID() string {
	return "ollama"
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (a *Adapter) Generate(ctx context.Context, modelID string, req domain.GenerationRequest) (*dispatch.AdapterResult, error) {
	model, ok := modelIDs[modelID]
	if !ok {
		model = modelID
	}

	body, err := json.Marshal(generateRequest{
		Model:  model,
		Prompt: req.Prompt,
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
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

	return &dispatch.AdapterResult{Content: out.Response}, nil
}

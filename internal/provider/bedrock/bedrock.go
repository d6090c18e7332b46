// Package bedrock adapts Amazon Bedrock's Titan text and image models to the
// dispatcher's provider interface.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/pagecraft/ai-router/internal/dispatch"
	"github.com/pagecraft/ai-router/internal/domain"
)

// modelIDs maps catalogue ids to Bedrock model identifiers.
var modelIDs = map[string]string{
	"titan-text-express": "amazon.titan-text-express-v1",
	"titan-image":        "amazon.titan-image-generator-v1",
}

type Adapter struct {
	client *bedrockruntime.Client
}

func New(ctx context.Context, region string) (*Adapter, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Adapter{client: bedrockruntime.NewFromConfig(cfg)}, nil
}

func NewWithConfig(cfg aws.Config) *Adapter {
	return &Adapter{client: bedrockruntime.NewFromConfig(cfg)}
}

func (a *Adapter) ID() string {
	return "bedrock"
}

func (a *Adapter) Generate(ctx context.Context, modelID string, req domain.GenerationRequest) (*dispatch.AdapterResult, error) {
	if req.RequestType == domain.RequestTypeImage {
		return a.generateImage(ctx, modelID, req)
	}
	return a.generateText(ctx, modelID, req)
}

type titanTextRequest struct {
	InputText            string          `json:"inputText"`
	TextGenerationConfig titanTextConfig `json:"textGenerationConfig"`
}

type titanTextConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
}

type titanTextResponse struct {
	Results []struct {
		OutputText string `json:"outputText"`
	} `json:"results"`
}

func (a *Adapter) generateText(ctx context.Context, modelID string, req domain.GenerationRequest) (*dispatch.AdapterResult, error) {
	payload := titanTextRequest{
		InputText: req.Prompt,
		TextGenerationConfig: titanTextConfig{
			MaxTokenCount: 2048,
			Temperature:   0.7,
		},
	}

	var resp titanTextResponse
	if err := a.invoke(ctx, modelID, payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("bedrock: empty results")
	}

	return &dispatch.AdapterResult{Content: resp.Results[0].OutputText}, nil
}

type titanImageRequest struct {
	TaskType              string               `json:"taskType"`
	TextToImageParams     titanImageParams     `json:"textToImageParams"`
	ImageGenerationConfig titanImageGenateConf `json:"imageGenerationConfig"`
}

type titanImageParams struct {
	Text         string `json:"text"`
	NegativeText string `json:"negativeText,omitempty"`
}

type titanImageGenateConf struct {
	NumberOfImages int `json:"numberOfImages"`
	Width          int `json:"width"`
	Height         int `json:"height"`
}

type titanImageResponse struct {
	Images []string `json:"images"` // base64 PNG
}

func (a *Adapter) generateImage(ctx context.Context, modelID string, req domain.GenerationRequest) (*dispatch.AdapterResult, error) {
	width, height := parseSize(req.SizeHint)

	payload := titanImageRequest{
		TaskType: "TEXT_IMAGE",
		TextToImageParams: titanImageParams{
			Text:         req.Prompt,
			NegativeText: req.NegativePrompt,
		},
		ImageGenerationConfig: titanImageGenateConf{
			NumberOfImages: 1,
			Width:          width,
			Height:         height,
		},
	}

	var resp titanImageResponse
	if err := a.invoke(ctx, modelID, payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Images) == 0 {
		return nil, fmt.Errorf("bedrock: empty image response")
	}

	images := make([]domain.GeneratedImage, 0, len(resp.Images))
	for _, b64 := range resp.Images {
		images = append(images, domain.GeneratedImage{Base64: b64})
	}

	return &dispatch.AdapterResult{Images: images}, nil
}

func (a *Adapter) invoke(ctx context.Context, modelID string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	bedrockID, ok := modelIDs[modelID]
	if !ok {
		bedrockID = modelID
	}

	output, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(bedrockID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			return &dispatch.BackendError{
				Status:  respErr.HTTPStatusCode(),
				Body:    respErr.Error(),
				Charged: respErr.HTTPStatusCode() >= 500,
			}
		}
		return fmt.Errorf("invoke model: %w", err)
	}

	if err := json.Unmarshal(output.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func parseSize(hint string) (int, int) {
	var w, h int
	if _, err := fmt.Sscanf(hint, "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 1024, 1024
	}
	return w, h
}

package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// VertexClient implements Client for Vertex AI.
type VertexClient struct {
	client *genai.Client
	config *Config
}

// NewVertexClient creates a Vertex AI client from the project and location in
// config.
func NewVertexClient(ctx context.Context, config *Config) (*VertexClient, error) {
	if config.ProjectID == "" || config.Location == "" {
		return nil, fmt.Errorf("vertex provider requires a project id and location")
	}

	client, err := genai.NewClient(ctx, config.ProjectID, config.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}
	return &VertexClient{client: client, config: config}, nil
}

// GenerateJSON generates JSON content using the specified model tier
func (c *VertexClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	model := c.client.GenerativeModel(modelName)
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.1),
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content in response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return CleanJSONBlock(sb.String()), nil
}

// GetModel returns the model name for a tier
func (c *VertexClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *VertexClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

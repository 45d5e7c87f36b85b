package kb

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultEmbeddingModel is used when no model is configured.
const DefaultEmbeddingModel = "text-embedding-004"

// EmbeddingClient implements Embedder on the Gemini embedding API.
type EmbeddingClient struct {
	client *genai.Client
	model  string
}

// NewEmbeddingClient creates an embedding client for the given API key.
func NewEmbeddingClient(ctx context.Context, apiKey, model string) (*EmbeddingClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing embedding API key")
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &EmbeddingClient{client: client, model: model}, nil
}

// EmbedText returns the embedding vector for text.
func (c *EmbeddingClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	res, err := c.client.Models.EmbedContent(ctx, c.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if res == nil || len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, fmt.Errorf("empty embedding result")
	}
	return res.Embeddings[0].Values, nil
}

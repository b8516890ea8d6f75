package llm

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const (
	jinaEndpoint = "https://api.jina.ai/v1/embeddings"
)

// EmbeddingClient generates text embeddings for requirement similarity search.
type EmbeddingClient struct {
	client     *resty.Client
	model      string
	dimensions int
	endpoint   string
}

// EmbeddingConfig holds configuration for the embedding client.
type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	Dimensions int
	Endpoint   string
}

// NewEmbeddingClient creates a new embedding client.
func NewEmbeddingClient(cfg *EmbeddingConfig) *EmbeddingClient {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = jinaEndpoint
	}

	return &EmbeddingClient{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		endpoint:   endpoint,
	}
}

// Model returns the embedding model name being used.
func (c *EmbeddingClient) Model() string {
	return c.model
}

// Dimensions returns the configured vector dimension.
func (c *EmbeddingClient) Dimensions() int {
	return c.dimensions
}

// Jina API request/response structures
type jinaRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

type jinaResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Detail string `json:"detail,omitempty"`
}

// Embed generates an embedding for a single passage.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple passages.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return c.embed(ctx, "retrieval.passage", texts)
}

// EmbedQuery generates an embedding optimized for query/search.
func (c *EmbeddingClient) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := c.embed(ctx, "retrieval.query", []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

func (c *EmbeddingClient) embed(ctx context.Context, task string, texts []string) ([][]float32, error) {
	req := jinaRequest{
		Model:         c.model,
		Task:          task,
		Dimensions:    c.dimensions,
		Input:         texts,
		EmbeddingType: "float",
	}

	var resp jinaResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(c.endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to call embedding API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("embedding API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("embedding API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(resp.Data), len(texts))
	}

	// Sort by index to ensure correct order
	embeddings := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}

	return embeddings, nil
}

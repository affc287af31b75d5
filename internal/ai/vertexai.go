package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// VertexAIClient embeds via the Google Gemini API.
type VertexAIClient struct {
	config *ClientConfig
	client *genai.Client
}

// NewVertexAIClient creates a client for the Gemini embedding API.
func NewVertexAIClient(ctx context.Context, config *ClientConfig) (*VertexAIClient, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	if config.EmbedModel == "" {
		config.EmbedModel = "text-embedding-005"
	}
	if config.Dim == 0 {
		config.Dim = 768
	}
	if config.Location == "" && strings.TrimSpace(config.APIKey) == "" {
		config.Location = "us-central1"
	}

	cc := genai.ClientConfig{
		Backend: genai.BackendVertexAI,
	}
	if strings.TrimSpace(config.APIKey) != "" {
		cc.APIKey = config.APIKey
	}
	if strings.TrimSpace(config.ProjectID) != "" {
		cc.Project = config.ProjectID
	}
	if strings.TrimSpace(config.Location) != "" {
		cc.Location = config.Location
	}

	client, err := genai.NewClient(ctx, &cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &VertexAIClient{
		config: config,
		client: client,
	}, nil
}

// Embed embeds a single text.
func (c *VertexAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds a batch of texts in one request.
func (c *VertexAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.Text(t)...)
	}

	cfg := genai.EmbedContentConfig{
		TaskType: "RETRIEVAL_DOCUMENT",
	}
	res, err := c.client.Models.EmbedContent(ctx, c.config.EmbedModel, contents, &cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if res == nil || len(res.Embeddings) != len(texts) {
		return nil, errors.New("embedding count mismatch")
	}

	vecs := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		vecs[i] = e.Values
	}
	return vecs, nil
}

// Dim returns the embedding dimension.
func (c *VertexAIClient) Dim() int {
	return c.config.Dim
}

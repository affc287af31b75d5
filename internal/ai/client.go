package ai

import (
	"context"
	"errors"
	"hash/fnv"
)

// Client produces embeddings for chunk text.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds every text in order; the result has one vector
	// per input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}

// Provider is the enumeration of supported embedding providers.
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderVertexAI Provider = "vertexai"
	ProviderStub     Provider = "stub"
)

// ClientConfig holds configuration for embedding clients.
type ClientConfig struct {
	APIKey     string
	EmbedModel string
	Dim        int
	ProjectID  string
	Location   string
	Provider   Provider
}

// NewClient creates an embedding client based on configuration.
func NewClient(ctx context.Context, config *ClientConfig) (Client, error) {
	if config == nil {
		return nil, errors.New("client config is required")
	}

	switch config.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(config), nil
	case ProviderVertexAI:
		return NewVertexAIClient(ctx, config)
	case ProviderStub:
		return NewStubClient(config.Dim), nil
	default:
		return nil, errors.New("unsupported provider: " + string(config.Provider))
	}
}

// StubClient is a deterministic offline implementation for testing.
type StubClient struct {
	dim int
}

// NewStubClient creates a StubClient with the given dimensionality.
func NewStubClient(dim int) *StubClient {
	return &StubClient{dim: dim}
}

// Embed returns a deterministic vector derived from the text so equal
// inputs embed equally.
func (s *StubClient) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, s.dim)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000) / 1000
	}
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (s *StubClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dim returns the embedding dimension.
func (s *StubClient) Dim() int {
	return s.dim
}

package ai

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const openAIEmbeddingsURL = "https://api.openai.com/v1/embeddings"

// OpenAIClient embeds via the OpenAI REST API.
type OpenAIClient struct {
	config *ClientConfig
	http   *http.Client
}

// NewOpenAIClient builds an OpenAI embedding client. Defaults match the
// model the pipeline's namespaces are dimensioned for.
func NewOpenAIClient(config *ClientConfig) *OpenAIClient {
	if config.EmbedModel == "" {
		config.EmbedModel = "text-embedding-3-large"
	}
	if config.Dim == 0 {
		switch config.EmbedModel {
		case "text-embedding-3-large":
			config.Dim = 3072
		case "text-embedding-3-small", "text-embedding-ada-002":
			config.Dim = 1536
		default:
			config.Dim = 3072
		}
	}

	transport := &http.Transport{}
	// Corporate proxies sometimes require this.
	if skipTLS, _ := strconv.ParseBool(os.Getenv("REPOINGEST_SKIP_TLS_VERIFY")); skipTLS {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &OpenAIClient{
		config: config,
		http: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
	}
}

// Embed embeds a single text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds a batch of texts in one request; the API preserves
// input order in its response.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if c.config.APIKey == "" {
		return nil, errors.New("PROVIDER_API_KEY unset")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	payload := map[string]any{
		"input": texts,
		"model": c.config.EmbedModel,
	}

	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIEmbeddingsURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error.Message != "" {
			return nil, errors.New(e.Error.Message)
		}
		return nil, errors.New("openai embedding non-200: " + resp.Status)
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, errors.New("openai embedding count mismatch")
	}

	vecs := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

// Dim returns the embedding dimension.
func (c *OpenAIClient) Dim() int {
	return c.config.Dim
}

// setHeaders sets common headers for OpenAI requests.
func (c *OpenAIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	if strings.HasPrefix(c.config.APIKey, "sk-proj-") && c.config.ProjectID != "" {
		req.Header.Set("OpenAI-Project", c.config.ProjectID)
	}
}

package knowledge

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// defaultEmbeddingModel matches the model used to build the seeded index;
// changing it requires re-embedding every stored document.
const defaultEmbeddingModel = "text-embedding-004"

// GeminiEmbedder embeds text with the Gemini embeddings API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// Compile-time interface check.
var _ Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder creates an embedder authenticated with apiKey. An empty
// model selects the default embedding model.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: create genai client: %w", err)
	}
	if model == "" {
		model = defaultEmbeddingModel
	}
	return &GeminiEmbedder{client: client, model: model}, nil
}

// Embed implements [Embedder].
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("knowledge: embed content: empty embedding for %q", e.model)
	}
	return resp.Embeddings[0].Values, nil
}

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/kalambet/bankassist/internal/logx"
)

// NewGenAIClient creates a Gemini API client shared by the generation and
// embedding backends.
func NewGenAIClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// GeminiBackend generates answers with the Gemini models API.
type GeminiBackend struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiBackend returns a backend for model. A zero temperature keeps
// the model default.
func NewGeminiBackend(client *genai.Client, model string, temperature float32) *GeminiBackend {
	return &GeminiBackend{client: client, model: model, temperature: temperature}
}

func (g *GeminiBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if system != "" || g.temperature > 0 {
		cfg = &genai.GenerateContentConfig{}
		if system != "" {
			cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
		}
		if g.temperature > 0 {
			cfg.Temperature = genai.Ptr(g.temperature)
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GeminiEmbedder embeds text with a Gemini embedding model.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGeminiEmbedder(client *genai.Client, model string) *GeminiEmbedder {
	return &GeminiEmbedder{client: client, model: model}
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embedding with %s: %w", g.model, err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("embedding with %s: empty response", g.model)
	}
	return resp.Embeddings[0].Values, nil
}

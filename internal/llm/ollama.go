package llm

import (
	"context"

	"github.com/kalambet/bankassist/internal/ollama"
)

// OllamaBackend serves completions from a local Ollama model.
type OllamaBackend struct {
	client      *ollama.Client
	model       string
	temperature float32
}

func NewOllamaBackend(client *ollama.Client, model string, temperature float32) *OllamaBackend {
	return &OllamaBackend{client: client, model: model, temperature: temperature}
}

func (o *OllamaBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	msgs := make([]ollama.Message, 0, 2)
	if system != "" {
		msgs = append(msgs, ollama.Message{Role: "system", Content: system})
	}
	msgs = append(msgs, ollama.Message{Role: "user", Content: prompt})
	return o.client.Chat(ctx, o.model, msgs, o.temperature)
}

// OllamaEmbedder embeds text with a local Ollama embedding model.
type OllamaEmbedder struct {
	client *ollama.Client
	model  string
}

func NewOllamaEmbedder(client *ollama.Client, model string) *OllamaEmbedder {
	return &OllamaEmbedder{client: client, model: model}
}

func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return o.client.Embed(ctx, o.model, text)
}

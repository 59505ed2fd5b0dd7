package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/kalambet/bankassist/internal/logx"
)

// ChatGenerator is the slice of an eino chat model used here.
type ChatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// EinoBackend runs short classification prompts through an eino chat model.
// It backs the intent classifier, the tool planner and the link resolver.
type EinoBackend struct {
	chat ChatGenerator
}

// NLUModelConfig tunes the classification model.
type NLUModelConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewEinoGeminiBackend builds an eino Gemini chat model on top of client.
func NewEinoGeminiBackend(ctx context.Context, client *genai.Client, cfg NLUModelConfig) (*EinoBackend, error) {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 256
	}
	chat, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating NLU model")
		return nil, fmt.Errorf("error creating NLU model: %w", err)
	}
	return NewEinoBackend(chat), nil
}

func NewEinoBackend(chat ChatGenerator) *EinoBackend {
	return &EinoBackend{chat: chat}
}

func (e *EinoBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	msgs := make([]*schema.Message, 0, 2)
	if system != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	msgs = append(msgs, schema.UserMessage(prompt))

	out, err := e.chat.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", fmt.Errorf("nlu model returned no message")
	}
	return out.Content, nil
}

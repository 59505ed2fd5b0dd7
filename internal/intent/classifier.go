// Package intent maps a free-text query to an intent label and a use case.
package intent

import (
	"context"
	"time"

	"github.com/kalambet/bankassist/internal/logx"
	"github.com/kalambet/bankassist/internal/usecase"
)

const classifyTimeout = 20 * time.Second

// Completer is the LLM call used for classification.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// History exposes the use case of the most recent turn, if any.
type History interface {
	LastUseCase() (usecase.UseCase, bool)
}

// Result is the outcome of a classification.
type Result struct {
	Intent  string
	UseCase usecase.UseCase
	// FromMemory is set when UseCase was carried over from the previous turn.
	FromMemory bool
}

// Classifier labels queries with a closed set of banking use cases.
type Classifier struct {
	llm Completer
}

func NewClassifier(llm Completer) *Classifier {
	return &Classifier{llm: llm}
}

// Classify labels query. An ambiguous label is replaced by the previous
// turn's use case when history has one. A backend failure yields
// (unknown, unknown) with no substitution.
func (c *Classifier) Classify(ctx context.Context, query string, history History) Result {
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	raw, err := c.llm.Complete(ctx, systemPrompt, BuildPrompt(query))
	if err != nil {
		logx.Warn().Err(err).Str("query", query).Msg("intent classification failed")
		return Result{Intent: string(usecase.Unknown), UseCase: usecase.Unknown}
	}

	intent, uc := ParseResponse(raw)
	res := Result{Intent: intent, UseCase: uc}
	if uc.IsSentinel() && history != nil {
		if last, ok := history.LastUseCase(); ok {
			res.UseCase = last
			res.FromMemory = true
		}
	}
	logx.Debug().Str("intent", res.Intent).Str("use_case", string(res.UseCase)).Bool("from_memory", res.FromMemory).Msg("query classified")
	return res
}

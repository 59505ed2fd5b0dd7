// Package llm wraps the text-generation and embedding backends behind small
// interfaces and adds the retry contract every caller relies on.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/kalambet/bankassist/internal/ollama"
)

// Backend produces a single completion. system may be empty.
type Backend interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// BackendFunc adapts a plain function to Backend.
type BackendFunc func(ctx context.Context, system, prompt string) (string, error)

func (f BackendFunc) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IsRetryable reports whether err is a rate limit, an overloaded backend or
// a timeout.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	var statusErr *ollama.StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.Code)
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "503", "timeout", "timed out", "resource_exhausted", "unavailable"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}

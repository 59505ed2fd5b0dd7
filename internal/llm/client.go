package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/kalambet/bankassist/internal/errx"
	"github.com/kalambet/bankassist/internal/logx"
)

// ClientConfig controls the retry behaviour of a Client.
type ClientConfig struct {
	// Name is the provider name used in user-facing warnings.
	Name        string
	MaxAttempts int
	// RetryDelay is multiplied by the attempt number before each retry.
	RetryDelay time.Duration
}

// UnavailableError means every attempt failed with a retryable error.
type UnavailableError struct {
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Client adds linear-backoff retries on top of a Backend.
type Client struct {
	backend Backend
	cfg     ClientConfig
}

func NewClient(backend Backend, cfg ClientConfig) *Client {
	if cfg.Name == "" {
		cfg.Name = "Gemini"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	return &Client{backend: backend, cfg: cfg}
}

// Complete runs the prompt, retrying on retryable errors. Failures are
// returned as errx Generation errors; exhausted retries wrap an
// *UnavailableError.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	attempts := 0

	policy := retrypolicy.NewBuilder[string]().
		HandleIf(func(_ string, err error) bool {
			return err != nil && IsRetryable(err)
		}).
		WithMaxRetries(c.cfg.MaxAttempts - 1).
		WithDelayFunc(func(exec failsafe.ExecutionAttempt[string]) time.Duration {
			return c.cfg.RetryDelay * time.Duration(exec.Attempts())
		}).
		OnRetry(func(e failsafe.ExecutionEvent[string]) {
			logx.Warn().Err(e.LastError()).Int("attempt", e.Attempts()).Str("provider", c.cfg.Name).Msg("retrying llm call")
		}).
		Build()

	out, err := failsafe.With(policy).WithContext(ctx).Get(func() (string, error) {
		attempts++
		s, err := c.backend.Complete(ctx, system, prompt)
		lastErr = err
		return s, err
	})
	if err == nil {
		return strings.TrimSpace(out), nil
	}
	if lastErr == nil {
		lastErr = err
	}
	if IsRetryable(lastErr) {
		return "", errx.Wrap(errx.Generation, "llm.Complete", &UnavailableError{Attempts: attempts, Err: lastErr})
	}
	return "", errx.Wrap(errx.Generation, "llm.Complete", lastErr)
}

// Generate never fails: errors are rendered as the warning text that is
// shown to the user in place of an answer.
func (c *Client) Generate(ctx context.Context, prompt string) string {
	out, err := c.Complete(ctx, "", prompt)
	if err == nil {
		return out
	}
	return c.WarningFor(err)
}

// WarningFor renders a Complete error as user-facing text.
func (c *Client) WarningFor(err error) string {
	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		return fmt.Sprintf("⚠️ %s is currently unavailable.\n\n(Last error: %v)", c.cfg.Name, unavailable.Err)
	}
	var e *errx.Error
	if errors.As(err, &e) && e.Err != nil {
		err = e.Err
	}
	return fmt.Sprintf("⚠️ %s API error: %v", c.cfg.Name, err)
}

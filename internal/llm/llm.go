// Package llm is the boundary to the text-generation provider used for
// challenge generation and response scoring.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aimd54/penpath/internal/config"
)

// Provider errors. ErrProviderAuth also matches ErrProvider.
var (
	ErrProvider     = errors.New("text generation provider failed")
	ErrProviderAuth = fmt.Errorf("%w: authentication rejected", ErrProvider)
)

// Request is a single completion request.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	// JSON asks the provider for a JSON-only reply.
	JSON bool
}

// Client completes prompts.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New returns the client configured by cfg.Provider.
func New(ctx context.Context, cfg *config.LLMConfig) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAIClient(cfg), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func statusError(code int, body string) error {
	if len(body) > 512 {
		body = body[:512]
	}
	if code == 401 || code == 403 {
		return fmt.Errorf("%w: status %d: %s", ErrProviderAuth, code, body)
	}
	return fmt.Errorf("%w: status %d: %s", ErrProvider, code, body)
}

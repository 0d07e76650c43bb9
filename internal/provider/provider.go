// Package provider defines the text/embedding generation contract and the
// retry and fallback machinery wrapped around external AI calls.
package provider

import (
	"context"
	"fmt"
)

// Provider generates text and embeddings. Implementations talk to one
// external AI service; failures are reported as *Error.
type Provider interface {
	// Name identifies the provider for logging and branch statuses.
	Name() string
	// GenerateText produces a completion for the prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)
	// GenerateEmbedding produces one embedding vector for text.
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	// GenerateEmbeddingsBatch produces one vector per input, same order.
	GenerateEmbeddingsBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Error is a provider failure (transport, auth, rate limit). Retryable
// failures may be retried per the configured policy before the fallback
// provider is consulted.
type Error struct {
	Provider  string
	Op        string
	Err       error
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Chain is a Provider that tries an ordered list of providers. Each call goes
// to the first provider, wrapped in the retrier; when retries are exhausted
// the next provider is consulted, and the call fails only after every
// provider has failed.
type Chain struct {
	providers []Provider
	retrier   Retrier
	logger    *zap.Logger
}

// NewChain creates a provider chain. The provider order is the fallback order.
func NewChain(providers []Provider, retrier Retrier, logger *zap.Logger) (*Chain, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{providers: providers, retrier: retrier, logger: logger}, nil
}

// Name returns the primary provider's name.
func (c *Chain) Name() string {
	return c.providers[0].Name()
}

// GenerateText produces a completion, falling back across providers.
func (c *Chain) GenerateText(ctx context.Context, prompt string) (string, error) {
	var out string
	err := c.each(ctx, "generate text", func(ctx context.Context, p Provider) error {
		text, err := p.GenerateText(ctx, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}

// GenerateEmbedding produces one embedding, falling back across providers.
func (c *Chain) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := c.each(ctx, "generate embedding", func(ctx context.Context, p Provider) error {
		vec, err := p.GenerateEmbedding(ctx, text)
		if err != nil {
			return err
		}
		out = vec
		return nil
	})
	return out, err
}

// GenerateEmbeddingsBatch produces one vector per input, falling back across providers.
func (c *Chain) GenerateEmbeddingsBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := c.each(ctx, "generate embeddings batch", func(ctx context.Context, p Provider) error {
		vecs, err := p.GenerateEmbeddingsBatch(ctx, texts)
		if err != nil {
			return err
		}
		out = vecs
		return nil
	})
	return out, err
}

// each runs fn against providers in order until one succeeds. Each provider
// gets the full retry budget before the chain moves on.
func (c *Chain) each(ctx context.Context, op string, fn func(ctx context.Context, p Provider) error) error {
	var lastErr error
	for i, p := range c.providers {
		err := c.retrier.Do(ctx, func(ctx context.Context) error {
			return fn(ctx, p)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return lastErr
		}
		if i < len(c.providers)-1 {
			c.logger.Warn("provider failed, trying fallback",
				zap.String("op", op),
				zap.String("provider", p.Name()),
				zap.String("fallback", c.providers[i+1].Name()),
				zap.Error(err),
			)
		}
	}
	return lastErr
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/hyperjump/toiawase/internal/config"
)

// OpenAIProvider implements Provider against the OpenAI API.
type OpenAIProvider struct {
	client         openai.Client
	name           string
	model          string
	embeddingModel string
}

// NewOpenAIProvider creates a provider from config. The API key is read from
// the environment variable named in cfg.APIKeyEnv.
func NewOpenAIProvider(cfg config.ProviderConfig) (*OpenAIProvider, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("provider %s: environment variable %s is not set", cfg.Name, cfg.APIKeyEnv)
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIProvider{
		client:         openai.NewClient(opts...),
		name:           cfg.Name,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
	}, nil
}

// Name identifies the provider.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// GenerateText produces a completion for the prompt.
func (p *OpenAIProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", p.wrap("generate text", err)
	}
	if len(completion.Choices) == 0 {
		return "", &Error{Provider: p.name, Op: "generate text", Err: fmt.Errorf("no completion choices returned")}
	}
	return completion.Choices[0].Message.Content, nil
}

// GenerateEmbedding produces one embedding vector for text.
func (p *OpenAIProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.GenerateEmbeddingsBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, &Error{Provider: p.name, Op: "generate embedding", Err: fmt.Errorf("no embedding returned")}
	}
	return vecs[0], nil
}

// openaiBatchLimit is the API's maximum inputs per embeddings request.
const openaiBatchLimit = 100

// GenerateEmbeddingsBatch produces one vector per input, same order. Inputs
// beyond the API batch limit are split into successive requests.
func (p *OpenAIProvider) GenerateEmbeddingsBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += openaiBatchLimit {
		end := start + openaiBatchLimit
		if end > len(texts) {
			end = len(texts)
		}
		resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: openai.EmbeddingModel(p.embeddingModel),
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts[start:end],
			},
		})
		if err != nil {
			return nil, p.wrap("generate embeddings batch", err)
		}
		if len(resp.Data) != end-start {
			return nil, &Error{
				Provider: p.name,
				Op:       "generate embeddings batch",
				Err:      fmt.Errorf("expected %d embeddings, got %d", end-start, len(resp.Data)),
			}
		}
		for _, data := range resp.Data {
			vec := make([]float32, len(data.Embedding))
			for i, v := range data.Embedding {
				vec[i] = float32(v)
			}
			out = append(out, vec)
		}
	}
	return out, nil
}

// wrap converts an API error into *Error, marking rate-limit and server
// errors as retryable.
func (p *OpenAIProvider) wrap(op string, err error) error {
	retryable := false
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		retryable = apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return &Error{Provider: p.name, Op: op, Err: err, Retryable: retryable}
}

var _ Provider = (*OpenAIProvider)(nil)

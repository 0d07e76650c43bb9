package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeProvider fails a fixed number of calls before succeeding.
type fakeProvider struct {
	name     string
	failures int
	calls    int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", &Error{Provider: f.name, Op: "generate text", Err: errors.New("unavailable"), Retryable: true}
	}
	return "answer from " + f.name, nil
}

func (f *fakeProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, &Error{Provider: f.name, Op: "generate embedding", Err: errors.New("unavailable"), Retryable: true}
	}
	return []float32{1, 0}, nil
}

func (f *fakeProvider) GenerateEmbeddingsBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, &Error{Provider: f.name, Op: "batch", Err: errors.New("unavailable"), Retryable: true}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func TestChainUsesPrimary(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	secondary := &fakeProvider{name: "secondary"}
	chain, err := NewChain([]Provider{primary, secondary}, Retrier{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := chain.GenerateText(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if got != "answer from primary" {
		t.Errorf("got %q", got)
	}
	if secondary.calls != 0 {
		t.Error("secondary should not be called when primary succeeds")
	}
}

func TestChainFallsBackAfterRetriesExhausted(t *testing.T) {
	primary := &fakeProvider{name: "primary", failures: 10}
	secondary := &fakeProvider{name: "secondary"}
	retrier := Retrier{Policy: RetryFixedDelay, MaxAttempts: 2, BaseDelay: time.Millisecond}
	chain, err := NewChain([]Provider{primary, secondary}, retrier, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := chain.GenerateText(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if got != "answer from secondary" {
		t.Errorf("got %q", got)
	}
	if primary.calls != 2 {
		t.Errorf("primary should get the full retry budget, got %d calls", primary.calls)
	}
}

func TestChainFailsWhenAllProvidersFail(t *testing.T) {
	primary := &fakeProvider{name: "primary", failures: 10}
	secondary := &fakeProvider{name: "secondary", failures: 10}
	chain, err := NewChain([]Provider{primary, secondary}, Retrier{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := chain.GenerateText(context.Background(), "hello"); err == nil {
		t.Error("expected error when every provider fails")
	}
}

func TestChainRequiresProviders(t *testing.T) {
	if _, err := NewChain(nil, Retrier{}, nil); err == nil {
		t.Error("expected error for empty provider list")
	}
}

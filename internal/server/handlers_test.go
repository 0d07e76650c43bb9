package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/toiawase/internal/cache"
	"github.com/hyperjump/toiawase/internal/config"
	"github.com/hyperjump/toiawase/internal/indexer"
	"github.com/hyperjump/toiawase/internal/intent"
	"github.com/hyperjump/toiawase/internal/keyword"
	"github.com/hyperjump/toiawase/internal/models"
	"github.com/hyperjump/toiawase/internal/schema"
	"github.com/hyperjump/toiawase/internal/search"
	"github.com/hyperjump/toiawase/internal/sqlgen"
	"github.com/hyperjump/toiawase/internal/storage"
	"github.com/hyperjump/toiawase/internal/vector"
)

type stubAI struct{}

func (stubAI) Name() string { return "stub" }
func (stubAI) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "stub answer", nil
}
func (stubAI) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (stubAI) GenerateEmbeddingsBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := zap.NewNop()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatal(err)
	}
	vectors, err := vector.NewMemoryStore(3)
	if err != nil {
		t.Fatal(err)
	}
	keywords, err := keyword.NewMemOnlyBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		store.Close()
		keywords.Close()
	})

	ai := stubAI{}
	schemas := schema.NewIndexer(ai, nil, logger)
	resultCache := cache.New(time.Minute, 0)
	t.Cleanup(resultCache.Stop)

	searchCfg := config.SearchConfig{
		SemanticWeight:   0.8,
		LexicalWeight:    0.2,
		OverlapThreshold: 0.3,
		ContextWindow:    2,
		MaxContextWindow: 5,
		MaxContextChars:  8000,
		BranchTimeout:    config.Duration(time.Second),
		DefaultLimit:     10,
		MaxLimit:         100,
		ChunkSize:        64,
		TopKCandidates:   50,
	}
	engine := search.NewEngine(search.EngineOptions{
		Config:     searchCfg,
		Classifier: intent.NewClassifier(ai, logger),
		Generator:  sqlgen.NewGenerator(ai, logger),
		Schemas:    schemas,
		Vectors:    vectors,
		Keywords:   keywords,
		Chunks:     store,
		Provider:   ai,
		Cache:      resultCache,
		Logger:     logger,
	})
	idx := indexer.NewIndexer(store, ai, vectors, keywords, searchCfg.ChunkSize, logger)
	return NewServer(engine, idx, store, schemas, nil, resultCache,
		&config.ServerConfig{Host: "localhost", Port: 8080}, logger)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Routes(), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Routes()

	w := doJSON(t, h, http.MethodPost, "/api/v1/documents", models.DocumentInput{
		ID:      "d1",
		Title:   "refund policy",
		Content: "Refunds are allowed within thirty days. Contact support with the receipt.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/documents/d1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var doc models.Document
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.Title != "refund policy" {
		t.Errorf("title = %q", doc.Title)
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/documents", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "d1") {
		t.Errorf("list: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodDelete, "/api/v1/documents/d1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/api/v1/documents/d1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", w.Code)
	}
}

func TestQueryEmptyBody(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Routes(), http.MethodPost, "/api/v1/query", models.QueryRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestQueryNoSources(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Routes(), http.MethodPost, "/api/v1/query", models.QueryRequest{
		Query: "how many customers are there",
	})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503: %s", w.Code, w.Body.String())
	}
}

func TestQueryAgainstDocuments(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Routes()
	w := doJSON(t, h, http.MethodPost, "/api/v1/documents", models.DocumentInput{
		Content: "Refunds are allowed within thirty days of purchase.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("seed document failed: %d", w.Code)
	}
	w = doJSON(t, h, http.MethodPost, "/api/v1/query", models.QueryRequest{
		Query: "what is the refund window?",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp models.QueryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Strategy != models.StrategyDocumentOnly {
		t.Errorf("strategy = %s", resp.Strategy)
	}
	if len(resp.Sources) == 0 {
		t.Error("expected document sources")
	}
	if resp.Answer == "" {
		t.Error("expected an answer")
	}
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Routes(), http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"documents", "chunks", "cache_entries"} {
		if _, ok := out[key]; !ok {
			t.Errorf("status missing %q: %v", key, out)
		}
	}
}

func TestMigrateWithoutSources(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv.Routes(), http.MethodPost, "/api/v1/schema/migrate", nil)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}

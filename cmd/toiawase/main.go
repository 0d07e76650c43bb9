// Package main is the Toiawase CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/toiawase/internal/cache"
	"github.com/hyperjump/toiawase/internal/config"
	"github.com/hyperjump/toiawase/internal/indexer"
	"github.com/hyperjump/toiawase/internal/intent"
	"github.com/hyperjump/toiawase/internal/keyword"
	"github.com/hyperjump/toiawase/internal/models"
	"github.com/hyperjump/toiawase/internal/provider"
	"github.com/hyperjump/toiawase/internal/relational"
	"github.com/hyperjump/toiawase/internal/schema"
	"github.com/hyperjump/toiawase/internal/search"
	"github.com/hyperjump/toiawase/internal/server"
	"github.com/hyperjump/toiawase/internal/sqlgen"
	"github.com/hyperjump/toiawase/internal/storage"
	"github.com/hyperjump/toiawase/internal/vector"
	"github.com/hyperjump/toiawase/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/toiawase/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys may live in a local .env during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "query":
		runQuery()
	case "index":
		runIndex()
	case "upload":
		runUpload()
	case "delete":
		runDelete()
	case "migrate":
		runMigrate()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("toiawase version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// Register relational schemas before serving so routing sees them.
	if len(components.Introspectors) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		migrated, err := components.Schemas.MigrateAll(ctx, components.Introspectors)
		cancel()
		if err != nil {
			logger.Warn("schema migration incomplete", zap.Error(err))
		} else {
			logger.Info("schemas migrated", zap.Int("sources", migrated))
		}
	}

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Storage,
		components.Schemas,
		components.Introspectors,
		components.Cache,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQuery joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	conversationID := fs.String("conversation", "", "conversation ID to continue")
	limit := fs.Int("limit", 0, "maximum number of sources (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: toiawase query [flags] <question>")
		os.Exit(1)
	}
	question := buildQuery(fs.Args())
	if question == "" {
		fmt.Println("Usage: toiawase query [flags] <question>")
		os.Exit(1)
	}

	req := &models.QueryRequest{
		Query:          question,
		ConversationID: *conversationID,
		MaxResults:     *limit,
	}
	resp, err := queryViaHTTP(*serverURL, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Println(resp.Answer)
		if len(resp.Sources) > 0 {
			fmt.Println()
			fmt.Println("# sources")
			for _, src := range resp.Sources {
				switch src.Kind {
				case models.SourceKindRow:
					fmt.Printf("  [%.2f] %s/%s\n", src.Score, src.SourceName, src.Table)
				default:
					fmt.Printf("  [%.2f] %s\n", src.Score, src.DocumentID)
				}
			}
		}
		if resp.ConversationID != "" {
			fmt.Printf("\n# conversation: %s\n", resp.ConversationID)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func queryViaHTTP(serverURL string, req *models.QueryRequest) (*models.QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: toiawase index [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	doc, err := components.Indexer.IndexFile(context.Background(), path)
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document indexed successfully: %s\n", doc.ID)
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: toiawase upload [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := io.Copy(part, f); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	f.Close()
	_ = mw.Close()

	resp, err := http.Post(*serverURL+"/api/v1/documents/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		fmt.Fprintf(os.Stderr, "Upload failed (%d): %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}
	fmt.Printf("Uploaded: %s\n", string(bytes.TrimSpace(body)))
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: toiawase delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/documents/"+docID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Delete failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runMigrate() {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Post(*serverURL+"/api/v1/schema/migrate", "application/json", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Migration failed (%d): %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}
	fmt.Println(string(bytes.TrimSpace(body)))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status struct {
		Documents    int64    `json:"documents"`
		Chunks       int64    `json:"chunks"`
		Sources      []string `json:"sources"`
		CacheEntries int      `json:"cache_entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:      %d   # count of indexed documents\n", status.Documents)
		fmt.Printf("chunks:         %d   # count of text chunks\n", status.Chunks)
		fmt.Printf("cache_entries:  %d   # cached query responses\n", status.CacheEntries)
		if len(status.Sources) > 0 {
			fmt.Println()
			fmt.Println("# relational sources")
			for _, s := range status.Sources {
				fmt.Printf("  %s\n", s)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage       storage.Store
	Vectors       vector.Store
	Keywords      keyword.Index
	Provider      provider.Provider
	Connectors    []*relational.Connector
	Introspectors []schema.Introspector
	Schemas       *schema.Indexer
	Cache         *cache.Cache
	Engine        *search.Engine
	Indexer       *indexer.Indexer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Keywords != nil {
		_ = c.Keywords.Close()
	}
	for _, conn := range c.Connectors {
		_ = conn.Close()
	}
	if c.Cache != nil {
		c.Cache.Stop()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	vectors, err := vector.New(cfg.Vector.Provider, cfg.Vector.Path, cfg.Vector.Collection, cfg.Vector.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	keywords, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	providers := make([]provider.Provider, 0, len(cfg.AI.Providers))
	for _, pc := range cfg.AI.Providers {
		p, err := provider.NewOpenAIProvider(pc)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		providers = append(providers, p)
	}
	policy, err := provider.ParsePolicy(cfg.AI.Retry.Policy)
	if err != nil {
		return nil, err
	}
	chain, err := provider.NewChain(providers, provider.Retrier{
		Policy:      policy,
		MaxAttempts: cfg.AI.Retry.MaxAttempts,
		BaseDelay:   cfg.AI.Retry.BaseDelay.Std(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	connectors := make([]*relational.Connector, 0, len(cfg.Sources))
	introspectors := make([]schema.Introspector, 0, len(cfg.Sources))
	relationalSources := make([]search.RelationalSource, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		conn, err := relational.Open(src, logger)
		if err != nil {
			// A dead source should not take the whole engine down; documents
			// remain searchable and the source can be migrated later.
			logger.Warn("relational source unavailable",
				zap.String("source", src.Name), zap.Error(err))
			continue
		}
		connectors = append(connectors, conn)
		introspectors = append(introspectors, conn)
		relationalSources = append(relationalSources, conn)
	}

	schemas := schema.NewIndexer(chain, vectors, logger)
	resultCache := cache.New(cfg.Cache.TTL.Std(), cfg.Cache.CleanupInterval.Std())

	engine := search.NewEngine(search.EngineOptions{
		Config:     cfg.Search,
		Classifier: intent.NewClassifier(chain, logger),
		Generator:  sqlgen.NewGenerator(chain, logger),
		Schemas:    schemas,
		Sources:    relationalSources,
		Vectors:    vectors,
		Keywords:   keywords,
		Chunks:     store,
		Provider:   chain,
		Cache:      resultCache,
		Logger:     logger,
	})
	idx := indexer.NewIndexer(store, chain, vectors, keywords, cfg.Search.ChunkSize, logger)

	return &Components{
		Storage:       store,
		Vectors:       vectors,
		Keywords:      keywords,
		Provider:      chain,
		Connectors:    connectors,
		Introspectors: introspectors,
		Schemas:       schemas,
		Cache:         resultCache,
		Engine:        engine,
		Indexer:       idx,
	}, nil
}

func printUsage() {
	fmt.Println(`toiawase - Hybrid document and database question answering

Usage:
  toiawase server [flags]           Start the HTTP server
  toiawase query [flags] <question> Ask a question
  toiawase index [flags] <file>     Index a document directly (server not required)
  toiawase upload [flags] <file>    Upload a document to a running server
  toiawase delete [flags] <id>      Delete a document
  toiawase migrate [flags]          Re-introspect relational source schemas
  toiawase status [flags]           Show document/source/cache status
  toiawase version                  Show version
  toiawase help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/toiawase/config.yaml)
  --debug            Enable debug logging

Query Flags:
  --server string        Server URL (default: http://localhost:8080)
  --conversation string  Conversation ID to continue
  --limit int            Maximum number of sources (0 = server default)
  --output string        Output format: text or json (default: text)

Examples:
  toiawase server
  toiawase query "which customers ordered last month?"
  toiawase query --output json "what is the refund policy?"
  toiawase index report.pdf
  toiawase upload report.pdf
  toiawase migrate
  toiawase status`)
}

package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/toiawase/data/db/documents.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/toiawase/data/indices/bleve"
	}
	if cfg.Vector.Provider == "" {
		cfg.Vector.Provider = "memory"
	}
	if cfg.Vector.Path == "" && cfg.Vector.Provider == "chromem" {
		cfg.Vector.Path = "/usr/local/var/toiawase/data/indices/chromem"
	}
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = "toiawase"
	}
	if cfg.Vector.Dimensions == 0 {
		cfg.Vector.Dimensions = 1536
	}
	if cfg.AI.Retry.Policy == "" {
		cfg.AI.Retry.Policy = "exponential"
	}
	if cfg.AI.Retry.MaxAttempts == 0 {
		cfg.AI.Retry.MaxAttempts = 3
	}
	if cfg.AI.Retry.BaseDelay == 0 {
		cfg.AI.Retry.BaseDelay = Duration(2 * time.Second)
	}
	for i := range cfg.AI.Providers {
		if cfg.AI.Providers[i].Name == "" {
			cfg.AI.Providers[i].Name = "openai"
		}
		if cfg.AI.Providers[i].APIKeyEnv == "" {
			cfg.AI.Providers[i].APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.AI.Providers[i].Model == "" {
			cfg.AI.Providers[i].Model = "gpt-4o-mini"
		}
		if cfg.AI.Providers[i].EmbeddingModel == "" {
			cfg.AI.Providers[i].EmbeddingModel = "text-embedding-3-small"
		}
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].MaxRows == 0 {
			cfg.Sources[i].MaxRows = 50
		}
	}
	if cfg.Search.SemanticWeight == 0 && cfg.Search.LexicalWeight == 0 {
		cfg.Search.SemanticWeight = 0.8
		cfg.Search.LexicalWeight = 0.2
	}
	if cfg.Search.OverlapThreshold == 0 {
		cfg.Search.OverlapThreshold = 0.3
	}
	if cfg.Search.ContextWindow == 0 {
		cfg.Search.ContextWindow = 2
	}
	if cfg.Search.MaxContextWindow == 0 {
		cfg.Search.MaxContextWindow = 5
	}
	if cfg.Search.MaxContextChars == 0 {
		cfg.Search.MaxContextChars = 8000
	}
	if cfg.Search.BranchTimeout == 0 {
		cfg.Search.BranchTimeout = Duration(30 * time.Second)
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.ChunkSize == 0 {
		cfg.Search.ChunkSize = 512
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 100
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = Duration(10 * time.Minute)
	}
	if cfg.Cache.CleanupInterval == 0 {
		cfg.Cache.CleanupInterval = cfg.Cache.TTL / 2
	}
}

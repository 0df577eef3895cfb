package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port       int              `json:"port"`
	APIPrefix  string           `json:"api_prefix"`
	LogConfig  logger.LogConfig `json:"log_config"`
	Store      StoreConfig      `json:"store"`
	AI         AIConfig         `json:"ai"`
	Chunking   ChunkingConfig   `json:"chunking"`
	Retrieval  RetrievalConfig  `json:"retrieval"`
	History    HistoryConfig    `json:"history"`
	FileStore  *FileStoreConfig `json:"file_store"`
	Jobs       JobsConfig       `json:"jobs"`
	CORSAllow  []string         `json:"cors_allow_origins"`
	CampaignRL int              `json:"campaign_rate_limit_seconds"`
}

type StoreConfig struct {
	// Type selects the backend: "memory" or "postgres".
	Type     string         `json:"type"`
	Postgres PostgresConfig `json:"postgres"`
}

type PostgresConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type AIConfig struct {
	Provider      string      `json:"provider"`
	Data          interface{} `json:"data"`
	GenerateModel string      `json:"generate_model"`
	EmbedModel    string      `json:"embed_model"`
	// EmbedProvider overrides Provider for embeddings. Needed when the
	// generation provider has no embeddings endpoint (anthropic).
	EmbedProvider string      `json:"embed_provider"`
	EmbedData     interface{} `json:"embed_data"`
	// Timeout bounds every generation/embedding call, in seconds.
	Timeout          int `json:"timeout"`
	EmbedCacheSize   int `json:"embed_cache_size"`
	EmbedCacheTTLMin int `json:"embed_cache_ttl_minutes"`
}

// ChunkingConfig holds the split policy. Sizes are in runes. These are
// deployment policy values, not part of the wire contract.
type ChunkingConfig struct {
	ChunkSize int `json:"chunk_size"`
	// ChunkOverlap defaults to a tenth of ChunkSize when omitted; an
	// explicit 0 disables overlap.
	ChunkOverlap int    `json:"chunk_overlap"`
	Separator    string `json:"separator"`
}

type RetrievalConfig struct {
	// MinScore is the minimum relevance a chunk needs to be considered
	// grounding. Below it a query returns the empty answer, not an error.
	MinScore float64 `json:"min_score"`
	// HybridAlpha blends semantic (alpha) and keyword (1-alpha) rank scores.
	HybridAlpha float64 `json:"hybrid_alpha"`
	DefaultTopK int     `json:"default_top_k"`
	MaxTopK     int     `json:"max_top_k"`
}

type HistoryConfig struct {
	Limit int `json:"limit"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type JobsConfig struct {
	EmbeddingBackfillSpec  string `json:"embedding_backfill_spec"`
	EmbeddingBackfillBatch int    `json:"embedding_backfill_batch"`
	CacheCleanupSpec       string `json:"cache_cleanup_spec"`
	CacheKeepDays          int    `json:"cache_keep_days"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	// Secrets are usually injected via the environment; ${VAR} references
	// in the config file are expanded before decoding.
	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	// Overlap is seeded below zero so an omitted field is distinguishable
	// from an explicit "chunk_overlap": 0.
	cfg.Chunking.ChunkOverlap = -1
	if err := json.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.APIPrefix == "" {
		c.APIPrefix = "/api/v1"
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	switch c.Store.Type {
	case "memory":
	case "postgres":
		pg := c.Store.Postgres
		if pg.DSN == "" && (pg.Host == "" || pg.DBName == "") {
			return fmt.Errorf("store.postgres requires dsn or host/dbname")
		}
	default:
		return fmt.Errorf("store.type must be memory or postgres")
	}
	if c.AI.Provider == "" {
		return fmt.Errorf("ai.provider is required")
	}
	if c.AI.GenerateModel == "" {
		return fmt.Errorf("ai.generate_model is required")
	}
	if c.AI.EmbedModel == "" {
		return fmt.Errorf("ai.embed_model is required")
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = 60
	}
	if c.AI.EmbedCacheSize == 0 {
		c.AI.EmbedCacheSize = 4096
	}
	if c.AI.EmbedCacheTTLMin == 0 {
		c.AI.EmbedCacheTTLMin = 120
	}
	if c.Chunking.ChunkSize <= 0 {
		c.Chunking.ChunkSize = 500
	}
	if c.Chunking.ChunkOverlap < 0 {
		// a tenth of the window: 50 for the default chunk size
		c.Chunking.ChunkOverlap = c.Chunking.ChunkSize / 10
	}
	if c.Chunking.Separator == "" {
		c.Chunking.Separator = "\n\n"
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap must be less than chunk_size")
	}
	if c.Retrieval.MinScore == 0 {
		c.Retrieval.MinScore = 0.35
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		return fmt.Errorf("retrieval.min_score must be within [0,1]")
	}
	if c.Retrieval.HybridAlpha == 0 {
		c.Retrieval.HybridAlpha = 0.5
	}
	if c.Retrieval.HybridAlpha < 0 || c.Retrieval.HybridAlpha > 1 {
		return fmt.Errorf("retrieval.hybrid_alpha must be within [0,1]")
	}
	if c.Retrieval.DefaultTopK <= 0 {
		c.Retrieval.DefaultTopK = 5
	}
	if c.Retrieval.MaxTopK <= 0 {
		c.Retrieval.MaxTopK = 50
	}
	if c.History.Limit <= 0 {
		c.History.Limit = 50
	}
	if c.Jobs.EmbeddingBackfillSpec == "" {
		c.Jobs.EmbeddingBackfillSpec = "*/5 * * * *"
	}
	if c.Jobs.EmbeddingBackfillBatch <= 0 {
		c.Jobs.EmbeddingBackfillBatch = 32
	}
	if c.Jobs.CacheCleanupSpec == "" {
		c.Jobs.CacheCleanupSpec = "0 3 * * *"
	}
	if c.Jobs.CacheKeepDays <= 0 {
		c.Jobs.CacheKeepDays = 30
	}
	if c.CampaignRL <= 0 {
		c.CampaignRL = 10
	}
	return nil
}

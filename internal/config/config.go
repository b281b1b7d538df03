// Package config loads the application configuration: a YAML file with
// production defaults plus a .env file for secrets.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PathsConfig locates the on-disk corpus.
type PathsConfig struct {
	SourceDir string `yaml:"source_dir"`
	IndexDir  string `yaml:"index_dir"`
	StoreDB   string `yaml:"store_db"`
}

// ChunkingConfig configures how documents are split into chunks.
type ChunkingConfig struct {
	Mode             string  `yaml:"mode"`
	MinWords         int     `yaml:"min_words"`
	MaxWords         int     `yaml:"max_words"`
	BreakThreshold   float64 `yaml:"break_threshold"`
	MaxChars         int     `yaml:"max_chars"`
	Overlap          int     `yaml:"overlap"`
	RespectHeadings  *bool   `yaml:"respect_headings,omitempty"`
	KeepBullets      *bool   `yaml:"keep_bullets,omitempty"`
	HardSplitOverlap int     `yaml:"hard_split_overlap"`
}

// IndexingConfig tunes the reindex job.
type IndexingConfig struct {
	LexMaxTokens   int `yaml:"lex_max_tokens"`
	FileTimeoutSec int `yaml:"file_timeout_sec"`
	HeavyFileSec   int `yaml:"heavy_file_sec"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
	CacheSize int    `yaml:"cache_size"`
}

// SearchConfig tunes the scoring pipeline.
type SearchConfig struct {
	TopK          int     `yaml:"top_k"`
	VectorWeight  float64 `yaml:"vector_weight"`
	LexicalWeight float64 `yaml:"lexical_weight"`
	ScoreFloor    float64 `yaml:"score_floor"`
	BonusCap      float64 `yaml:"bonus_cap"`
	CacheSize     int     `yaml:"cache_size"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Paths     PathsConfig     `yaml:"paths"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Indexing  IndexingConfig  `yaml:"indexing"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
}

// Load reads a config from path. A missing file returns defaults. A
// .env file next to the working directory is loaded first so yaml and
// environment secrets compose.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Paths.SourceDir == "" {
		cfg.Paths.SourceDir = "data/inbox"
	}
	if cfg.Paths.IndexDir == "" {
		cfg.Paths.IndexDir = "data/index"
	}
	if cfg.Paths.StoreDB == "" {
		cfg.Paths.StoreDB = "data/settings.db"
	}

	if cfg.Chunking.Mode == "" {
		cfg.Chunking.Mode = "smart"
	}
	if cfg.Chunking.MinWords == 0 {
		cfg.Chunking.MinWords = 60
	}
	if cfg.Chunking.MaxWords == 0 {
		cfg.Chunking.MaxWords = 180
	}
	if cfg.Chunking.BreakThreshold == 0 {
		cfg.Chunking.BreakThreshold = 0.20
	}
	if cfg.Chunking.MaxChars == 0 {
		cfg.Chunking.MaxChars = 400
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 100
	}
	if cfg.Chunking.HardSplitOverlap == 0 {
		cfg.Chunking.HardSplitOverlap = 200
	}

	if cfg.Indexing.LexMaxTokens == 0 {
		cfg.Indexing.LexMaxTokens = 80
	}
	if cfg.Indexing.FileTimeoutSec == 0 {
		cfg.Indexing.FileTimeoutSec = 60
	}
	if cfg.Indexing.HeavyFileSec == 0 {
		cfg.Indexing.HeavyFileSec = 5
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-large"
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 3072
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}

	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 10
	}
	if cfg.Search.VectorWeight == 0 {
		cfg.Search.VectorWeight = 0.70
	}
	if cfg.Search.LexicalWeight == 0 {
		cfg.Search.LexicalWeight = 0.30
	}
	if cfg.Search.ScoreFloor == 0 {
		cfg.Search.ScoreFloor = 0.15
	}
	if cfg.Search.BonusCap == 0 {
		cfg.Search.BonusCap = 3.0
	}
	if cfg.Search.CacheSize == 0 {
		cfg.Search.CacheSize = 256
	}
}

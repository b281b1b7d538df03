// Package cli implements the lexkb command line interface.
//
// Each command lives in its own file and registers itself on rootCmd in
// an init function. Application components are built per command from
// the loaded configuration so a bad embedding provider setup never
// blocks commands that do not embed.
package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/korenlab/lexkb/internal/chunker"
	"github.com/korenlab/lexkb/internal/config"
	"github.com/korenlab/lexkb/internal/configstore"
	"github.com/korenlab/lexkb/internal/embedder"
	"github.com/korenlab/lexkb/internal/extract"
	"github.com/korenlab/lexkb/internal/indexer"
	"github.com/korenlab/lexkb/internal/lexical"
	"github.com/korenlab/lexkb/internal/logger"
	"github.com/korenlab/lexkb/internal/searcher"
	"github.com/korenlab/lexkb/internal/storage"
)

var (
	cfgPath     string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "lexkb",
	Short: "Hybrid search over a legal document corpus",
	Long: `lexkb indexes a tree of legal documents into identity-stable chunks,
embeds them, and serves hybrid vector+BM25 search from the command line
or over MCP.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose logging to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// app bundles the components shared by the commands.
type app struct {
	cfg   *config.AppConfig
	dir   storage.Dir
	res   lexical.Resources
	store *configstore.Store
}

// loadApp builds the shared components. The settings store is optional:
// when it cannot be opened the built-in lexical resources are used and
// term management commands fail with a clear error.
func loadApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	dir, err := storage.NewDir(cfg.Paths.IndexDir)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, dir: dir, res: lexical.DefaultResources()}

	store, err := configstore.Open(cfg.Paths.StoreDB)
	if err != nil {
		logger.Warn("settings store unavailable, using built-in term lists: %v", err)
		return a, nil
	}
	a.store = store

	res, err := store.LoadResources(context.Background())
	if err != nil {
		logger.Warn("loading term lists failed, using built-in lists: %v", err)
		return a, nil
	}
	a.res = res
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

func (a *app) newIndexer() *indexer.Indexer {
	return indexer.New(a.dir, extract.NewRegistry(), a.res, indexerConfig(a.cfg))
}

func (a *app) newEmbedder() (embedder.Embedder, error) {
	return embedder.New(embedder.Config{
		Provider:  a.cfg.Embedding.Provider,
		APIKey:    os.Getenv(embedder.EnvOpenAIAPIKey),
		Model:     a.cfg.Embedding.Model,
		Dimension: a.cfg.Embedding.Dimension,
		CacheSize: a.cfg.Embedding.CacheSize,
	})
}

func (a *app) newEngine(emb embedder.Embedder) *searcher.Engine {
	return searcher.New(a.dir, emb, a.res, searcherConfig(a.cfg))
}

func indexerConfig(cfg *config.AppConfig) indexer.Config {
	return indexer.Config{
		Chunk:          chunkerConfig(cfg),
		LexMaxTokens:   cfg.Indexing.LexMaxTokens,
		FileTimeout:    time.Duration(cfg.Indexing.FileTimeoutSec) * time.Second,
		HeavyThreshold: time.Duration(cfg.Indexing.HeavyFileSec) * time.Second,
		StatusInterval: 500 * time.Millisecond,
	}
}

func chunkerConfig(cfg *config.AppConfig) chunker.Config {
	c := chunker.Config{
		Mode:             chunker.Mode(cfg.Chunking.Mode),
		MaxChars:         cfg.Chunking.MaxChars,
		Overlap:          cfg.Chunking.Overlap,
		MinWords:         cfg.Chunking.MinWords,
		MaxWords:         cfg.Chunking.MaxWords,
		BreakThreshold:   cfg.Chunking.BreakThreshold,
		RespectHeadings:  true,
		KeepBullets:      true,
		HardSplitOverlap: cfg.Chunking.HardSplitOverlap,
	}
	if cfg.Chunking.RespectHeadings != nil {
		c.RespectHeadings = *cfg.Chunking.RespectHeadings
	}
	if cfg.Chunking.KeepBullets != nil {
		c.KeepBullets = *cfg.Chunking.KeepBullets
	}
	return c
}

func searcherConfig(cfg *config.AppConfig) searcher.Config {
	c := searcher.DefaultConfig()
	c.TopK = cfg.Search.TopK
	c.VectorWeight = cfg.Search.VectorWeight
	c.LexicalWeight = cfg.Search.LexicalWeight
	c.ScoreFloor = cfg.Search.ScoreFloor
	c.BonusCap = cfg.Search.BonusCap
	c.CacheSize = cfg.Search.CacheSize
	c.FallbackDim = cfg.Embedding.Dimension
	return c
}

// Package cmd implements the clearpath CLI.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clearpath/clearpath/config"
	"github.com/clearpath/clearpath/embed"
	"github.com/clearpath/clearpath/ingest"
	"github.com/clearpath/clearpath/llm/groq"
	"github.com/clearpath/clearpath/querylog"
	"github.com/clearpath/clearpath/rag"
	"github.com/clearpath/clearpath/retriever"
	"github.com/clearpath/clearpath/textsplitter"
	"github.com/clearpath/clearpath/vectorstore"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "clearpath",
	Short:         "Clearpath document-grounded support assistant",
	Long:          "Clearpath answers customer-support questions grounded in ingested PDF documentation.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "clearpath.yaml", "optional YAML config file")
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the root logger.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	return cfg, logger, nil
}

// buildEngine wires the process-wide singletons and loads the index.
// A dimension mismatch on load is fatal: the caller must refuse to
// start and ask for re-ingestion.
func buildEngine(cfg *config.Config, logger zerolog.Logger) (*rag.Engine, error) {
	store := vectorstore.New(cfg.IndexDir, cfg.EmbeddingDim, logger.With().Str("component", "vectorstore").Logger())
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("load vector index (re-ingest all documents on dimension mismatch): %w", err)
	}

	embedder := embed.NewCachedEmbedder(
		embed.NewOpenAIEmbedder(cfg.EmbeddingsBaseURL, cfg.EmbeddingsAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDim),
		embed.DefaultCacheSize,
	)

	tokenizer := textsplitter.NewSubwordTokenizer()
	splitter := textsplitter.NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap, tokenizer)

	ret := retriever.New(store, embedder, cfg.TopK, cfg.SimilarityThreshold)
	ing := ingest.NewService(store, embedder, splitter, cfg.IndexDir,
		logger.With().Str("component", "ingest").Logger())
	client := groq.NewClient(cfg.GroqBaseURL, cfg.GroqAPIKey)
	logWriter := querylog.NewWriter(cfg.LogFilePath, logger.With().Str("component", "querylog").Logger())

	return rag.NewEngine(cfg, store, ret, ing, client, logWriter,
		logger.With().Str("component", "pipeline").Logger()), nil
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jerrybuks/agentic-ecommerce/internal/catalog"
	"github.com/jerrybuks/agentic-ecommerce/internal/index"
	"github.com/jerrybuks/agentic-ecommerce/pkg/config"
	"github.com/jerrybuks/agentic-ecommerce/pkg/db"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
	"github.com/jerrybuks/agentic-ecommerce/pkg/metrics"
	"github.com/jerrybuks/agentic-ecommerce/pkg/openai"
	"github.com/jerrybuks/agentic-ecommerce/pkg/vectorstore"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "indexer"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	target := flag.String("target", "all", "what to rebuild: all|products|handbook")
	batchSize := flag.Int("batch-size", 0, "override embedding batch size")
	chunkSize := flag.Int("chunk-size", 0, "override chunk size in characters")
	chunkOverlap := flag.Int("chunk-overlap", -1, "override chunk overlap in characters")
	includeInactive := flag.Bool("include-inactive", false, "index inactive products too")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "indexer",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if *batchSize > 0 {
		cfg.Indexer.BatchSize = *batchSize
	}
	if *chunkSize > 0 {
		cfg.Indexer.ChunkSize = *chunkSize
	}
	if *chunkOverlap >= 0 {
		cfg.Indexer.ChunkOverlap = *chunkOverlap
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	store, err := vectorstore.Open(cfg.VectorStore.Dir)
	if err != nil {
		logg.Error(context.Background(), "failed to open vector store", err)
		os.Exit(1)
	}

	indexer, err := index.New(
		catalog.NewRepository(dbClient.DB()),
		openai.New(cfg.OpenAI),
		store,
		cfg.Indexer,
		cfg.VectorStore,
		logg,
		metrics.NewIndexerMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create indexer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx := logg.WithFields(ctx, map[string]any{
		"target":           *target,
		"batch_size":       cfg.Indexer.BatchSize,
		"chunk_size":       cfg.Indexer.ChunkSize,
		"chunk_overlap":    cfg.Indexer.ChunkOverlap,
		"include_inactive": *includeInactive,
	})
	logg.Info(runCtx, "starting rebuild")

	opts := index.Options{IncludeInactive: *includeInactive}
	switch *target {
	case "all":
		err = indexer.RebuildAll(ctx, opts)
	case "products":
		err = indexer.RebuildProducts(ctx, opts)
	case "handbook":
		err = indexer.RebuildHandbook(ctx)
	default:
		logg.Error(runCtx, "unknown -target value", nil)
		os.Exit(1)
	}
	if err != nil {
		logg.Error(runCtx, "rebuild failed", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "rebuild complete")
}

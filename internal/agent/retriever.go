package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/jerrybuks/agentic-ecommerce/pkg/config"
	pkgerrors "github.com/jerrybuks/agentic-ecommerce/pkg/errors"
	"github.com/jerrybuks/agentic-ecommerce/pkg/metrics"
	"github.com/jerrybuks/agentic-ecommerce/pkg/vectorstore"
)

type embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// retriever embeds a query and ranks it against a vector store collection.
type retriever struct {
	embedder embedder
	store    *vectorstore.Store
	cfg      config.RetrievalConfig
	metrics  *metrics.AgentMetrics
}

func newRetriever(embedder embedder, store *vectorstore.Store, cfg config.RetrievalConfig, m *metrics.AgentMetrics) (*retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = 0.7
	}
	return &retriever{embedder: embedder, store: store, cfg: cfg, metrics: m}, nil
}

func (r *retriever) search(ctx context.Context, collection, query string, filters map[string]string) ([]vectorstore.Result, error) {
	start := time.Now()

	vectors, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "embedding service returned no vector for query")
	}

	results, err := r.store.Query(ctx, collection, vectors[0], r.cfg.TopK, r.cfg.MinSimilarity, filters)
	if err != nil {
		return nil, err
	}

	r.metrics.ObserveRetrieval(collection, time.Since(start))
	return results, nil
}

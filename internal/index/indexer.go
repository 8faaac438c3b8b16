package index

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/jerrybuks/agentic-ecommerce/internal/catalog"
	"github.com/jerrybuks/agentic-ecommerce/pkg/chunk"
	"github.com/jerrybuks/agentic-ecommerce/pkg/config"
	pkgerrors "github.com/jerrybuks/agentic-ecommerce/pkg/errors"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
	"github.com/jerrybuks/agentic-ecommerce/pkg/metrics"
	"github.com/jerrybuks/agentic-ecommerce/pkg/vectorstore"
)

const embedConcurrency = 4

type embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Options tune a rebuild run. Zero values fall back to configuration.
type Options struct {
	IncludeInactive bool
}

// Indexer rebuilds the vector store collections from their sources. Rebuilds
// are full: each collection is cleared before it is repopulated, and a
// failed run leaves it inconsistent until the next successful run.
type Indexer struct {
	products *catalog.Repository
	embedder embedder
	store    *vectorstore.Store
	splitter *chunk.RecursiveSplitter
	cfg      config.IndexerConfig
	vcfg     config.VectorStoreConfig
	log      *logger.Logger
	metrics  *metrics.IndexerMetrics
}

// New constructs an Indexer.
func New(products *catalog.Repository, emb embedder, store *vectorstore.Store, cfg config.IndexerConfig, vcfg config.VectorStoreConfig, log *logger.Logger, m *metrics.IndexerMetrics) (*Indexer, error) {
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if emb == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	return &Indexer{
		products: products,
		embedder: emb,
		store:    store,
		splitter: chunk.NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		cfg:      cfg,
		vcfg:     vcfg,
		log:      log,
		metrics:  m,
	}, nil
}

// RebuildAll rebuilds both collections and aggregates their failures so one
// broken source does not mask the other's outcome.
func (ix *Indexer) RebuildAll(ctx context.Context, opts Options) error {
	var errs error
	if err := ix.RebuildProducts(ctx, opts); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("products: %w", err))
	}
	if err := ix.RebuildHandbook(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("handbook: %w", err))
	}
	return errs
}

// RebuildProducts clears the products collection and re-indexes the catalog
// in batches.
func (ix *Indexer) RebuildProducts(ctx context.Context, opts Options) error {
	collection := ix.vcfg.ProductsCollection
	ctx = ix.log.WithCollection(ctx, collection)
	start := time.Now()

	if err := ix.store.Clear(ctx, collection); err != nil {
		ix.metrics.IncFailure(collection)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing collection")
	}

	total := 0
	for offset := 0; ; offset += ix.cfg.BatchSize {
		products, err := ix.products.ListBatch(ctx, opts.IncludeInactive, ix.cfg.BatchSize, offset)
		if err != nil {
			ix.metrics.IncFailure(collection)
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
		}
		if len(products) == 0 {
			break
		}

		docs := make([]vectorstore.Document, 0, len(products))
		for i := range products {
			p := &products[i]
			for seq, piece := range ix.splitter.Split(productText(p)) {
				docs = append(docs, vectorstore.Document{
					ID:   fmt.Sprintf("%s-%d", p.ID, seq),
					Text: piece,
					Metadata: map[string]string{
						MetaSource:    SourceProduct,
						MetaProductID: p.ID.String(),
						MetaName:      p.Name,
						MetaSKU:       p.SKU,
						MetaCategory:  p.Category,
						MetaBrand:     p.Brand,
						MetaPrice:     p.Price.StringFixed(2),
						MetaActive:    strconv.FormatBool(p.IsActive),
						MetaFeatured:  strconv.FormatBool(p.IsFeatured),
						MetaTags:      strings.Join(p.Tags, ", "),
					},
				})
			}
		}

		if err := ix.embedAndUpsert(ctx, collection, docs); err != nil {
			ix.metrics.IncFailure(collection)
			return err
		}
		total += len(docs)

		if len(products) < ix.cfg.BatchSize {
			break
		}
	}

	ix.metrics.AddChunks(collection, total)
	ix.metrics.ObserveRebuild(collection, time.Since(start))
	ix.log.Info(ix.log.WithField(ctx, "chunks", total), "collection rebuilt")
	return nil
}

// RebuildHandbook clears the handbook collection and re-indexes the markdown
// handbook, splitting by headers first and then by size.
func (ix *Indexer) RebuildHandbook(ctx context.Context) error {
	collection := ix.vcfg.HandbookCollection
	ctx = ix.log.WithCollection(ctx, collection)
	start := time.Now()

	raw, err := os.ReadFile(ix.vcfg.HandbookPath)
	if err != nil {
		ix.metrics.IncFailure(collection)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading handbook")
	}

	if err := ix.store.Clear(ctx, collection); err != nil {
		ix.metrics.IncFailure(collection)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing collection")
	}

	docs := []vectorstore.Document{}
	for si, section := range chunk.SplitMarkdownByHeaders(string(raw)) {
		label := sectionLabel(section)
		for seq, piece := range ix.splitter.Split(sectionText(section)) {
			docs = append(docs, vectorstore.Document{
				ID:   fmt.Sprintf("handbook-%d-%d", si, seq),
				Text: piece,
				Metadata: map[string]string{
					MetaSource:  SourceHandbook,
					MetaSection: label,
				},
			})
		}
	}

	if err := ix.embedAndUpsert(ctx, collection, docs); err != nil {
		ix.metrics.IncFailure(collection)
		return err
	}

	ix.metrics.AddChunks(collection, len(docs))
	ix.metrics.ObserveRebuild(collection, time.Since(start))
	ix.log.Info(ix.log.WithField(ctx, "chunks", len(docs)), "collection rebuilt")
	return nil
}

// embedAndUpsert embeds documents in bounded-concurrency batches, then
// upserts them all. Upserting happens only after every batch embedded, so a
// mid-run embedding failure does not write a half-embedded batch.
func (ix *Indexer) embedAndUpsert(ctx context.Context, collection string, docs []vectorstore.Document) error {
	if len(docs) == 0 {
		return nil
	}

	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(embedConcurrency)

	for start := 0; start < len(docs); start += ix.cfg.BatchSize {
		end := start + ix.cfg.BatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		group.Go(func() error {
			texts := make([]string, len(batch))
			for i, doc := range batch {
				texts[i] = doc.Text
			}
			vectors, err := ix.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			if len(vectors) != len(batch) {
				return pkgerrors.New(pkgerrors.CodeDependency, "embedding count mismatch")
			}
			mu.Lock()
			for i := range batch {
				batch[i].Vector = vectors[i]
			}
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	if err := ix.store.Upsert(ctx, collection, docs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upserting documents")
	}
	return nil
}

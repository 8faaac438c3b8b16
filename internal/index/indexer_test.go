package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jerrybuks/agentic-ecommerce/internal/catalog"
	"github.com/jerrybuks/agentic-ecommerce/pkg/config"
	"github.com/jerrybuks/agentic-ecommerce/pkg/db/models"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
	"github.com/jerrybuks/agentic-ecommerce/pkg/metrics"
	"github.com/jerrybuks/agentic-ecommerce/pkg/vectorstore"
)

type stubEmbedder struct {
	err   error
	calls int
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = []float64{float64(len(text)), 1}
	}
	return out, nil
}

func newIndexEnv(t *testing.T, products []*models.Product, handbook string) (*Indexer, *vectorstore.Store, *stubEmbedder, config.VectorStoreConfig) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	for _, p := range products {
		if err := conn.Create(p).Error; err != nil {
			t.Fatalf("seeding product: %v", err)
		}
	}

	store, err := vectorstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening vector store: %v", err)
	}

	handbookPath := filepath.Join(t.TempDir(), "handbook.md")
	if handbook != "" {
		if err := os.WriteFile(handbookPath, []byte(handbook), 0o644); err != nil {
			t.Fatalf("writing handbook: %v", err)
		}
	}

	vcfg := config.VectorStoreConfig{
		ProductsCollection: "products",
		HandbookCollection: "general_handbook",
		HandbookPath:       handbookPath,
	}
	embedder := &stubEmbedder{}
	indexer, err := New(
		catalog.NewRepository(conn),
		embedder,
		store,
		config.IndexerConfig{BatchSize: 2, ChunkSize: 1000, ChunkOverlap: 200},
		vcfg,
		logger.New(logger.Options{ServiceName: "indexer-test", Output: io.Discard}),
		metrics.NewIndexerMetrics(nil),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return indexer, store, embedder, vcfg
}

func seedProduct(name string, active bool) *models.Product {
	return &models.Product{
		ID:          uuid.New(),
		SKU:         "SKU-" + uuid.NewString()[:8],
		Name:        name,
		Brand:       "Acme",
		Category:    "gear",
		Description: "A fine piece of training gear.",
		Price:       decimal.RequireFromString("10.00"),
		Stock:       3,
		IsActive:    active,
	}
}

func TestRebuildProductsIndexesActiveCatalog(t *testing.T) {
	products := []*models.Product{
		seedProduct("Alpha Gloves", true),
		seedProduct("Beta Bag", true),
		seedProduct("Gamma Wraps", true),
		seedProduct("Delta Rope", true),
		seedProduct("Retired Pads", false),
	}
	indexer, store, embedder, _ := newIndexEnv(t, products, "")

	if err := indexer.RebuildProducts(context.Background(), Options{}); err != nil {
		t.Fatalf("RebuildProducts: %v", err)
	}

	if got := store.Count("products"); got != 4 {
		t.Fatalf("expected 4 indexed chunks, got %d", got)
	}
	// Batch size 2 over 4 active rows means at least two embedding calls.
	if embedder.calls < 2 {
		t.Fatalf("expected batched embedding calls, got %d", embedder.calls)
	}

	query := []float64{1, 1}
	results, err := store.Query(context.Background(), "products", query, 10, 0, map[string]string{MetaName: "Alpha Gloves"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one chunk for Alpha Gloves, got %d", len(results))
	}
	doc := results[0].Document
	if doc.Metadata[MetaProductID] != products[0].ID.String() {
		t.Fatalf("expected product id metadata, got %v", doc.Metadata)
	}
	if doc.Metadata[MetaCategory] != "gear" || doc.Metadata[MetaBrand] != "Acme" {
		t.Fatalf("expected category and brand filter metadata, got %v", doc.Metadata)
	}
	if doc.Metadata[MetaPrice] != "10.00" || doc.Metadata[MetaActive] != "true" {
		t.Fatalf("expected price and active filter metadata, got %v", doc.Metadata)
	}
	if !strings.Contains(doc.Text, "Product Name: Alpha Gloves") {
		t.Fatalf("expected canonical product text, got %q", doc.Text)
	}
	if strings.Contains(doc.Text, "SKU") || strings.Contains(doc.Text, "Stock") {
		t.Fatalf("stock and sku must stay out of embedded text: %q", doc.Text)
	}
}

func TestRebuildProductsIncludeInactive(t *testing.T) {
	products := []*models.Product{
		seedProduct("Alpha Gloves", true),
		seedProduct("Retired Pads", false),
	}
	indexer, store, _, _ := newIndexEnv(t, products, "")

	if err := indexer.RebuildProducts(context.Background(), Options{IncludeInactive: true}); err != nil {
		t.Fatalf("RebuildProducts: %v", err)
	}
	if got := store.Count("products"); got != 2 {
		t.Fatalf("expected inactive products indexed, got %d chunks", got)
	}

	// Inactive rows stay filterable by the active flag.
	results, err := store.Query(context.Background(), "products", []float64{1, 1}, 10, 0, map[string]string{MetaActive: "false"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 || results[0].Document.Metadata[MetaName] != "Retired Pads" {
		t.Fatalf("expected the retired product behind the inactive filter, got %+v", results)
	}
}

func TestRebuildProductsClearsStaleDocuments(t *testing.T) {
	products := []*models.Product{seedProduct("Alpha Gloves", true)}
	indexer, store, _, _ := newIndexEnv(t, products, "")
	ctx := context.Background()

	stale := vectorstore.Document{ID: "stale-1", Text: "old", Vector: []float64{1, 1}}
	if err := store.Upsert(ctx, "products", []vectorstore.Document{stale}); err != nil {
		t.Fatalf("seeding stale doc: %v", err)
	}

	if err := indexer.RebuildProducts(ctx, Options{}); err != nil {
		t.Fatalf("RebuildProducts: %v", err)
	}
	if got := store.Count("products"); got != 1 {
		t.Fatalf("expected stale doc removed, got %d chunks", got)
	}
}

func TestRebuildHandbookSplitsByHeaders(t *testing.T) {
	handbook := "# Store Handbook\n\n## Returns\n\nItems can be returned within 30 days.\n\n## Shipping\n\nOrders ship within 3 business days.\n"
	indexer, store, _, _ := newIndexEnv(t, nil, handbook)
	ctx := context.Background()

	if err := indexer.RebuildHandbook(ctx); err != nil {
		t.Fatalf("RebuildHandbook: %v", err)
	}
	if got := store.Count("general_handbook"); got < 2 {
		t.Fatalf("expected at least a chunk per section, got %d", got)
	}

	results, err := store.Query(ctx, "general_handbook", []float64{1, 1}, 10, 0, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	var sections []string
	for _, result := range results {
		sections = append(sections, result.Document.Metadata[MetaSection])
	}
	joined := strings.Join(sections, "|")
	if !strings.Contains(joined, "Returns") || !strings.Contains(joined, "Shipping") {
		t.Fatalf("expected section breadcrumbs in metadata, got %v", sections)
	}
}

func TestRebuildHandbookMissingFile(t *testing.T) {
	indexer, _, _, _ := newIndexEnv(t, nil, "")

	if err := indexer.RebuildHandbook(context.Background()); err == nil {
		t.Fatal("expected error for missing handbook file")
	}
}

func TestRebuildProductsEmbeddingFailure(t *testing.T) {
	products := []*models.Product{seedProduct("Alpha Gloves", true)}
	indexer, _, embedder, _ := newIndexEnv(t, products, "")
	embedder.err = errors.New("embedding service down")

	if err := indexer.RebuildProducts(context.Background(), Options{}); err == nil {
		t.Fatal("expected embedding failure to surface")
	}
}

func TestRebuildAllAggregatesFailures(t *testing.T) {
	products := []*models.Product{seedProduct("Alpha Gloves", true)}
	indexer, store, _, _ := newIndexEnv(t, products, "")

	err := indexer.RebuildAll(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected handbook failure to be reported")
	}
	if !strings.Contains(err.Error(), "handbook") {
		t.Fatalf("expected handbook named in error, got %v", err)
	}
	// The products rebuild must still have completed.
	if got := store.Count("products"); got != 1 {
		t.Fatalf("expected products rebuilt despite handbook failure, got %d", got)
	}
}

package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jerrybuks/agentic-ecommerce/internal/agent"
	"github.com/jerrybuks/agentic-ecommerce/internal/cart"
	"github.com/jerrybuks/agentic-ecommerce/internal/catalog"
	"github.com/jerrybuks/agentic-ecommerce/internal/checkout"
	"github.com/jerrybuks/agentic-ecommerce/internal/orders"
	"github.com/jerrybuks/agentic-ecommerce/internal/session"
	"github.com/jerrybuks/agentic-ecommerce/internal/voucher"
	"github.com/jerrybuks/agentic-ecommerce/pkg/config"
	"github.com/jerrybuks/agentic-ecommerce/pkg/db"
	"github.com/jerrybuks/agentic-ecommerce/pkg/db/models"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
	"github.com/jerrybuks/agentic-ecommerce/pkg/metrics"
	"github.com/jerrybuks/agentic-ecommerce/pkg/openai"
	"github.com/jerrybuks/agentic-ecommerce/pkg/redis"
	"github.com/jerrybuks/agentic-ecommerce/pkg/types"
	"github.com/jerrybuks/agentic-ecommerce/pkg/vectorstore"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubLimiter struct {
	allowed bool
	count   int64
}

func (s *stubLimiter) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	s.count++
	return s.allowed, s.count, nil
}

type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
}

func (s *scriptedLLM) Complete(context.Context, []openai.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) == 0 {
		return "", nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0.1}
	}
	return out, nil
}

type memorySessionBackend struct {
	mu       sync.Mutex
	sessions map[string]string
}

func (m *memorySessionBackend) StoreSession(_ context.Context, userID, state string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = state
	return nil
}

func (m *memorySessionBackend) GetSession(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.sessions[userID]
	if !ok {
		return "", redis.Nil
	}
	return raw, nil
}

func (m *memorySessionBackend) DeleteSession(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

type routerEnv struct {
	handler http.Handler
	llm     *scriptedLLM
	limiter *stubLimiter
	gloves  *models.Product
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Product{}, &models.CartItem{}, &models.ShippingAddress{},
		&models.Voucher{}, &models.Order{}, &models.OrderItem{},
	); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	gloves := &models.Product{
		ID: uuid.New(), SKU: "GLV-001", Name: "Pro Boxing Gloves", Brand: "Everhit",
		Category: "equipment", Description: "Premium leather boxing gloves.",
		Price: decimal.RequireFromString("45.00"), Stock: 10, IsActive: true,
	}
	if err := conn.Create(gloves).Error; err != nil {
		t.Fatalf("seeding product: %v", err)
	}

	dbClient := db.NewFromConn(conn)
	catalogRepo := catalog.NewRepository(conn)
	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cartRepo, catalogSvc, dbClient)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	voucherRepo := voucher.NewRepository(conn)
	voucherSvc, err := voucher.NewService(voucherRepo, decimal.RequireFromString("2000.00"))
	if err != nil {
		t.Fatalf("voucher service: %v", err)
	}
	ordersSvc, err := orders.NewService(orders.NewRepository(conn))
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}
	checkoutSvc, err := checkout.NewService(checkout.Deps{
		AddressRepo: checkout.NewRepository(conn),
		CartRepo:    cartRepo,
		CartSvc:     cartSvc,
		CatalogRepo: catalogRepo,
		VoucherRepo: voucherRepo,
		VoucherSvc:  voucherSvc,
		DBClient:    dbClient,
	})
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}

	store, err := vectorstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening vector store: %v", err)
	}
	sessions, err := session.NewStore(&memorySessionBackend{sessions: map[string]string{}}, config.SessionConfig{TTL: 30 * time.Minute, MaxTurns: 10})
	if err != nil {
		t.Fatalf("session store: %v", err)
	}

	llm := &scriptedLLM{}
	classifier, err := agent.NewClassifier(llm)
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	agentSvc, err := agent.NewService(agent.Deps{
		Classifier:  classifier,
		LLM:         llm,
		Embedder:    stubEmbedder{},
		VectorStore: store,
		Sessions:    sessions,
		Catalog:     catalogSvc,
		Cart:        cartSvc,
		Orders:      ordersSvc,
		Vouchers:    voucherSvc,
		Checkout:    checkoutSvc,
		Retrieval:   config.RetrievalConfig{TopK: 5, MinSimilarity: 0.7},
		Collections: config.VectorStoreConfig{ProductsCollection: "products", HandbookCollection: "general_handbook"},
		Logger:      logg,
		Metrics:     metrics.NewAgentMetrics(nil),
	})
	if err != nil {
		t.Fatalf("agent service: %v", err)
	}

	limiter := &stubLimiter{allowed: true}
	cfg := &config.Config{
		App:       config.AppConfig{Env: "dev", Port: "8080"},
		RateLimit: config.RateLimitConfig{Window: time.Minute, PerUserLimit: 30},
	}
	handler := NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       stubPinger{},
		Redis:    stubPinger{},
		Limiter:  limiter,
		Agent:    agentSvc,
		Catalog:  catalogSvc,
		Cart:     cartSvc,
		Orders:   ordersSvc,
		Vouchers: voucherSvc,
	})

	return &routerEnv{handler: handler, llm: llm, limiter: limiter, gloves: gloves}
}

func doRequest(t *testing.T, handler http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	env := newRouterEnv(t)

	if w := doRequest(t, env.handler, http.MethodGet, "/health/live", "", ""); w.Code != http.StatusOK {
		t.Fatalf("live: expected 200, got %d", w.Code)
	}
	if w := doRequest(t, env.handler, http.MethodGet, "/health/ready", "", ""); w.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", w.Code)
	}
}

func TestHealthReadyFailsWhenDependencyDown(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	handler := NewRouter(Deps{
		Config: &config.Config{App: config.AppConfig{Env: "dev"}},
		Logger: logg,
		DB:     stubPinger{err: errors.New("connection refused")},
		Redis:  stubPinger{},
	})

	w := doRequest(t, handler, http.MethodGet, "/health/ready", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newRouterEnv(t)

	w := doRequest(t, env.handler, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestProductListing(t *testing.T) {
	env := newRouterEnv(t)

	w := doRequest(t, env.handler, http.MethodGet, "/api/v1/products?search=boxing", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	data := envelope.Data.(map[string]any)
	items := data["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 product, got %d", len(items))
	}
	item := items[0].(map[string]any)
	if item["name"] != "Pro Boxing Gloves" || item["price"] != "45.00" {
		t.Fatalf("unexpected product payload: %v", item)
	}
}

func TestProductListingRejectsBadQuery(t *testing.T) {
	env := newRouterEnv(t)

	w := doRequest(t, env.handler, http.MethodGet, "/api/v1/products?limit=abc", "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUserRoutesRequireIdentity(t *testing.T) {
	env := newRouterEnv(t)

	for _, probe := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodPost, "/api/v1/vouchers/generate"},
		{http.MethodPost, "/api/v1/agent/query"},
	} {
		w := doRequest(t, env.handler, probe.method, probe.path, "", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: expected 400 without X-User-Id, got %d", probe.method, probe.path, w.Code)
		}
	}
}

func TestCartFetchEmpty(t *testing.T) {
	env := newRouterEnv(t)

	w := doRequest(t, env.handler, http.MethodGet, "/api/v1/cart", "user-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["total"] != "0.00" {
		t.Fatalf("expected zero total, got %v", data["total"])
	}
}

func TestVoucherGenerateIdempotent(t *testing.T) {
	env := newRouterEnv(t)

	first := doRequest(t, env.handler, http.MethodPost, "/api/v1/vouchers/generate", "user-1", "")
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}
	second := doRequest(t, env.handler, http.MethodPost, "/api/v1/vouchers/generate", "user-1", "")
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", second.Code)
	}

	var a, b types.SuccessEnvelope
	if err := json.NewDecoder(first.Body).Decode(&a); err != nil {
		t.Fatalf("decoding first: %v", err)
	}
	if err := json.NewDecoder(second.Body).Decode(&b); err != nil {
		t.Fatalf("decoding second: %v", err)
	}
	codeA := a.Data.(map[string]any)["code"].(string)
	codeB := b.Data.(map[string]any)["code"].(string)
	if !strings.HasPrefix(codeA, "VOUCHER-") {
		t.Fatalf("unexpected code format %q", codeA)
	}
	if codeA != codeB {
		t.Fatalf("expected the same voucher on repeat requests, got %q and %q", codeA, codeB)
	}
}

func TestAgentQueryEndToEnd(t *testing.T) {
	env := newRouterEnv(t)
	env.llm.responses = []string{
		`{"action": "add_to_cart", "product_ref": "GLV-001", "quantity": 1}`,
	}

	w := doRequest(t, env.handler, http.MethodPost, "/api/v1/agent/query", "user-1", `{"message": "add the gloves to my cart"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["action"] != "add_to_cart" {
		t.Fatalf("unexpected action %v", data["action"])
	}
	if !strings.Contains(data["message"].(string), "Pro Boxing Gloves") {
		t.Fatalf("unexpected message %v", data["message"])
	}

	cartResp := doRequest(t, env.handler, http.MethodGet, "/api/v1/cart", "user-1", "")
	if !strings.Contains(cartResp.Body.String(), "45.00") {
		t.Fatalf("expected cart to reflect the added item: %s", cartResp.Body.String())
	}
}

func TestAgentQueryValidation(t *testing.T) {
	env := newRouterEnv(t)

	w := doRequest(t, env.handler, http.MethodPost, "/api/v1/agent/query", "user-1", `{"message": ""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", w.Code)
	}
}

func TestAgentQueryRateLimited(t *testing.T) {
	env := newRouterEnv(t)
	env.limiter.allowed = false

	w := doRequest(t, env.handler, http.MethodPost, "/api/v1/agent/query", "user-1", `{"message": "hello"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", w.Code, w.Body.String())
	}

	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if envelope.Error.Code != "RATE_LIMITED" {
		t.Fatalf("unexpected error code %s", envelope.Error.Code)
	}
}

func TestAdminProductCreateAndFetchBySKU(t *testing.T) {
	env := newRouterEnv(t)

	body := `{"sku": "ROPE-001", "name": "Speed Rope", "brand": "Everhit", "category": "equipment",
		"description": "Adjustable speed rope.", "price": "15.50", "stock": 25, "tags": ["cardio"]}`
	w := doRequest(t, env.handler, http.MethodPost, "/api/v1/admin/products", "", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	created := envelope.Data.(map[string]any)
	if created["sku"] != "ROPE-001" || created["price"] != "15.50" {
		t.Fatalf("unexpected created payload: %v", created)
	}
	if created["is_active"] != true {
		t.Fatal("expected new products to default to active")
	}

	fetched := doRequest(t, env.handler, http.MethodGet, "/api/v1/admin/products/sku/ROPE-001", "", "")
	if fetched.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", fetched.Code, fetched.Body.String())
	}
	if !strings.Contains(fetched.Body.String(), "Speed Rope") {
		t.Fatalf("expected product by sku, got %s", fetched.Body.String())
	}
}

func TestAdminProductCreateDuplicateSKU(t *testing.T) {
	env := newRouterEnv(t)

	body := `{"sku": "GLV-001", "name": "Knockoff Gloves", "brand": "Fake", "category": "equipment",
		"description": "Not the real thing.", "price": "5.00", "stock": 1}`
	w := doRequest(t, env.handler, http.MethodPost, "/api/v1/admin/products", "", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate sku, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminProductCreateRejectsBadPayload(t *testing.T) {
	env := newRouterEnv(t)

	w := doRequest(t, env.handler, http.MethodPost, "/api/v1/admin/products", "",
		`{"sku": "X-1", "name": "No Price", "brand": "B", "category": "c", "description": "d", "price": "not-a-number"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad price, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminProductPatch(t *testing.T) {
	env := newRouterEnv(t)

	w := doRequest(t, env.handler, http.MethodPatch,
		"/api/v1/admin/products/"+env.gloves.ID.String(), "", `{"price": "49.99", "stock": 3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["price"] != "49.99" {
		t.Fatalf("expected patched price, got %v", data["price"])
	}
	// Untouched fields survive the partial update.
	if data["name"] != "Pro Boxing Gloves" {
		t.Fatalf("expected name unchanged, got %v", data["name"])
	}
}

func TestAdminProductUpdateUnknownID(t *testing.T) {
	env := newRouterEnv(t)

	w := doRequest(t, env.handler, http.MethodPut,
		"/api/v1/admin/products/"+uuid.NewString(), "", `{"name": "Ghost"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

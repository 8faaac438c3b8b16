package orders

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jerrybuks/agentic-ecommerce/pkg/db/models"
)

func newTestEnv(t *testing.T) (Service, *Repository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}
	return svc, repo, conn
}

func seedOrder(t *testing.T, repo *Repository, userID string, createdAt time.Time, total string) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		VoucherID:       uuid.New(),
		Total:           decimal.RequireFromString(total),
		ShippingName:    "Test User",
		ShippingLine1:   "1 Main St",
		ShippingCity:    "Springfield",
		ShippingState:   "IL",
		ShippingPostal:  "62701",
		ShippingCountry: "US",
		CreatedAt:       createdAt,
		Items: []models.OrderItem{
			{
				ID:          uuid.New(),
				ProductID:   uuid.New(),
				ProductName: "Mug",
				SKU:         "SKU-MUG",
				Quantity:    1,
				UnitPrice:   decimal.RequireFromString(total),
				LineTotal:   decimal.RequireFromString(total),
			},
		},
	}
	if err := repo.Create(context.Background(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestListRecentNewestFirst(t *testing.T) {
	svc, repo, _ := newTestEnv(t)
	base := time.Now().Add(-time.Hour)

	seedOrder(t, repo, "user-1", base, "10.00")
	newest := seedOrder(t, repo, "user-1", base.Add(30*time.Minute), "20.00")

	orders, err := svc.ListRecent(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != newest.ID {
		t.Fatalf("expected newest order first, got %s", orders[0].ID)
	}
	if len(orders[0].Items) != 1 {
		t.Fatalf("expected items preloaded, got %d", len(orders[0].Items))
	}
}

func TestListRecentAppliesLimit(t *testing.T) {
	svc, repo, _ := newTestEnv(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		seedOrder(t, repo, "user-1", base.Add(time.Duration(i)*time.Minute), "10.00")
	}

	orders, err := svc.ListRecent(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(orders) != DefaultRecentLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultRecentLimit, len(orders))
	}
}

func TestListRecentScopedPerUser(t *testing.T) {
	svc, repo, _ := newTestEnv(t)
	seedOrder(t, repo, "user-1", time.Now(), "10.00")

	orders, err := svc.ListRecent(context.Background(), "user-2", 5)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders for user-2, got %d", len(orders))
	}
}

package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jerrybuks/agentic-ecommerce/internal/catalog"
	"github.com/jerrybuks/agentic-ecommerce/pkg/db"
	"github.com/jerrybuks/agentic-ecommerce/pkg/db/models"
	pkgerrors "github.com/jerrybuks/agentic-ecommerce/pkg/errors"
)

// OutOfStockError reports an add that exceeds the available stock.
type OutOfStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %q has %d in stock, requested %d", e.ProductName, e.Available, e.Requested)
}

// IsOutOfStock reports whether err wraps an OutOfStockError.
func IsOutOfStock(err error) bool {
	var target *OutOfStockError
	return errors.As(err, &target)
}

// Line is one cart entry with its computed subtotal.
type Line struct {
	ProductID   uuid.UUID
	ProductName string
	SKU         string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// View is the user's cart with totals.
type View struct {
	Lines     []Line
	ItemCount int
	Total     decimal.Decimal
}

// Service exposes cart operations.
type Service interface {
	AddItem(ctx context.Context, userID string, productID uuid.UUID, quantity int) (*View, error)
	ViewCart(ctx context.Context, userID string) (*View, error)
}

type service struct {
	repo     *Repository
	catalog  catalog.Service
	dbClient *db.Client
}

// NewService constructs a cart service instance.
func NewService(repo *Repository, catalogSvc catalog.Service, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, catalog: catalogSvc, dbClient: dbClient}, nil
}

// AddItem adds quantity of the product to the user's cart, merging into the
// existing line when one exists. The merged quantity is validated against
// current stock before any write.
func (s *service) AddItem(ctx context.Context, userID string, productID uuid.UUID, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]any{"quantity": quantity})
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound,
			&catalog.ProductNotFoundError{Ref: productID.String()}, "product not available")
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		line, err := repo.FindLine(ctx, userID, productID)
		switch {
		case err == nil:
			merged := line.Quantity + quantity
			if merged > product.Stock {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, &OutOfStockError{
					ProductName: product.Name,
					Requested:   merged,
					Available:   product.Stock,
				}, "insufficient stock")
			}
			return repo.UpdateQuantity(ctx, line.ID, merged)

		case errors.Is(err, gorm.ErrRecordNotFound):
			if quantity > product.Stock {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, &OutOfStockError{
					ProductName: product.Name,
					Requested:   quantity,
					Available:   product.Stock,
				}, "insufficient stock")
			}
			return repo.Create(ctx, &models.CartItem{
				ID:        uuid.New(),
				UserID:    userID,
				ProductID: productID,
				Quantity:  quantity,
				UnitPrice: product.Price,
			})

		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
		}
	})
	if err != nil {
		return nil, err
	}

	return s.ViewCart(ctx, userID)
}

// ViewCart returns the cart contents with per-line and grand totals.
func (s *service) ViewCart(ctx context.Context, userID string) (*View, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing cart items")
	}

	view := &View{Total: decimal.Zero}
	for _, item := range items {
		name, sku := "", ""
		if item.Product != nil {
			name, sku = item.Product.Name, item.Product.SKU
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Lines = append(view.Lines, Line{
			ProductID:   item.ProductID,
			ProductName: name,
			SKU:         sku,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   lineTotal,
		})
		view.ItemCount += item.Quantity
		view.Total = view.Total.Add(lineTotal)
	}
	return view, nil
}

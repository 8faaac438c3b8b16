package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jerrybuks/agentic-ecommerce/internal/cart"
	"github.com/jerrybuks/agentic-ecommerce/internal/catalog"
	"github.com/jerrybuks/agentic-ecommerce/internal/voucher"
	"github.com/jerrybuks/agentic-ecommerce/pkg/db"
	"github.com/jerrybuks/agentic-ecommerce/pkg/db/models"
	"github.com/jerrybuks/agentic-ecommerce/pkg/enums"
	pkgerrors "github.com/jerrybuks/agentic-ecommerce/pkg/errors"
)

// AddressInput is the validated payload for saving a shipping address.
type AddressInput struct {
	FullName   string
	Line1      string
	Line2      *string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      *string
}

// Service exposes the checkout flow: address capture, phase derivation, and
// order placement.
type Service interface {
	SaveAddress(ctx context.Context, userID string, input AddressInput) (*models.ShippingAddress, error)
	GetAddress(ctx context.Context, userID string) (*models.ShippingAddress, error)
	Phase(ctx context.Context, userID string) (enums.CheckoutPhase, error)
	PlaceOrder(ctx context.Context, userID string) (*models.Order, error)
}

type service struct {
	addressRepo *Repository
	cartRepo    *cart.Repository
	cartSvc     cart.Service
	catalogRepo *catalog.Repository
	voucherRepo *voucher.Repository
	voucherSvc  voucher.Service
	dbClient    *db.Client
	now         func() time.Time
}

// Deps bundles the collaborators PlaceOrder touches.
type Deps struct {
	AddressRepo *Repository
	CartRepo    *cart.Repository
	CartSvc     cart.Service
	CatalogRepo *catalog.Repository
	VoucherRepo *voucher.Repository
	VoucherSvc  voucher.Service
	DBClient    *db.Client
	Now         func() time.Time
}

// NewService constructs a checkout service instance.
func NewService(deps Deps) (Service, error) {
	if deps.AddressRepo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if deps.CartRepo == nil || deps.CartSvc == nil {
		return nil, fmt.Errorf("cart dependencies required")
	}
	if deps.CatalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if deps.VoucherRepo == nil || deps.VoucherSvc == nil {
		return nil, fmt.Errorf("voucher dependencies required")
	}
	if deps.DBClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		addressRepo: deps.AddressRepo,
		cartRepo:    deps.CartRepo,
		cartSvc:     deps.CartSvc,
		catalogRepo: deps.CatalogRepo,
		voucherRepo: deps.VoucherRepo,
		voucherSvc:  deps.VoucherSvc,
		dbClient:    deps.DBClient,
		now:         now,
	}, nil
}

// SaveAddress validates and upserts the user's single shipping address.
func (s *service) SaveAddress(ctx context.Context, userID string, input AddressInput) (*models.ShippingAddress, error) {
	if err := validateAddress(input); err != nil {
		return nil, err
	}

	existing, err := s.addressRepo.FindByUser(ctx, userID)
	switch {
	case err == nil:
		existing.FullName = input.FullName
		existing.Line1 = input.Line1
		existing.Line2 = input.Line2
		existing.City = input.City
		existing.State = input.State
		existing.PostalCode = input.PostalCode
		existing.Country = input.Country
		existing.Phone = input.Phone
		if err := s.addressRepo.Update(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating address")
		}
		return existing, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		fresh := &models.ShippingAddress{
			ID:         uuid.New(),
			UserID:     userID,
			FullName:   input.FullName,
			Line1:      input.Line1,
			Line2:      input.Line2,
			City:       input.City,
			State:      input.State,
			PostalCode: input.PostalCode,
			Country:    input.Country,
			Phone:      input.Phone,
		}
		if err := s.addressRepo.Create(ctx, fresh); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating address")
		}
		return fresh, nil

	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading address")
	}
}

func (s *service) GetAddress(ctx context.Context, userID string) (*models.ShippingAddress, error) {
	return s.addressRepo.FindByUser(ctx, userID)
}

// Phase derives where the user stands in the checkout funnel from current
// state. ORDER_PLACED is only reported by PlaceOrder itself; a user who has
// completed an order and still has an address on file reads as ADDRESS_SET
// (or READY_FOR_PAYMENT once a fresh voucher covers a new cart).
func (s *service) Phase(ctx context.Context, userID string) (enums.CheckoutPhase, error) {
	if _, err := s.addressRepo.FindByUser(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return enums.CheckoutPhaseNoAddress, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading address")
	}

	view, err := s.cartSvc.ViewCart(ctx, userID)
	if err != nil {
		return "", err
	}
	if view.ItemCount == 0 {
		return enums.CheckoutPhaseAddressSet, nil
	}

	v, err := s.voucherSvc.FindUnused(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return enums.CheckoutPhaseAddressSet, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading voucher")
	}
	if v.Amount.LessThan(view.Total) {
		return enums.CheckoutPhaseAddressSet, nil
	}
	return enums.CheckoutPhaseReadyForPayment, nil
}

// PlaceOrder atomically redeems the voucher, snapshots the cart into an
// order, decrements stock, and clears the cart. Precondition failures are
// reported in a fixed order: empty cart, then missing address, then voucher.
func (s *service) PlaceOrder(ctx context.Context, userID string) (*models.Order, error) {
	var placed *models.Order

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		addressRepo := s.addressRepo.WithTx(tx)
		voucherRepo := s.voucherRepo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)

		items, err := cartRepo.ListByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing cart")
		}
		if len(items) == 0 {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, &EmptyCartError{}, "cannot place order")
		}

		address, err := addressRepo.FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, &NoShippingAddressError{}, "cannot place order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading address")
		}

		total := decimal.Zero
		for _, item := range items {
			total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		v, err := voucherRepo.FindUnusedByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, &NoValidVoucherError{Total: total}, "cannot place order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading voucher")
		}
		if v.Amount.LessThan(total) {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, &NoValidVoucherError{Total: total}, "cannot place order")
		}

		for _, item := range items {
			if err := catalogRepo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					name := item.ProductID.String()
					if item.Product != nil {
						name = item.Product.Name
					}
					return pkgerrors.Wrap(pkgerrors.CodeConflict, &cart.OutOfStockError{
						ProductName: name,
						Requested:   item.Quantity,
					}, "insufficient stock")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrementing stock")
			}
		}

		if err := voucherRepo.MarkRedeemed(ctx, v.ID, s.now()); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, &NoValidVoucherError{Total: total}, "voucher already spent")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "redeeming voucher")
		}

		order := &models.Order{
			ID:              uuid.New(),
			UserID:          userID,
			VoucherID:       v.ID,
			Total:           total,
			ShippingName:    address.FullName,
			ShippingLine1:   address.Line1,
			ShippingLine2:   address.Line2,
			ShippingCity:    address.City,
			ShippingState:   address.State,
			ShippingPostal:  address.PostalCode,
			ShippingCountry: address.Country,
		}
		for _, item := range items {
			name, sku := item.ProductID.String(), ""
			if item.Product != nil {
				name, sku = item.Product.Name, item.Product.SKU
			}
			order.Items = append(order.Items, models.OrderItem{
				ID:          uuid.New(),
				ProductID:   item.ProductID,
				ProductName: name,
				SKU:         sku,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				LineTotal:   item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
			})
		}
		if err := tx.WithContext(ctx).Create(order).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}

		if err := cartRepo.ClearByUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
		}

		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// validateAddress requires name, street, city, and postal code. State and
// country are optional extras the classifier may or may not extract.
func validateAddress(input AddressInput) error {
	missing := []string{}
	for field, value := range map[string]string{
		"full_name":   input.FullName,
		"line1":       input.Line1,
		"city":        input.City,
		"postal_code": input.PostalCode,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "address is missing required fields").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

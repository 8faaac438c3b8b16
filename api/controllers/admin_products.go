package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jerrybuks/agentic-ecommerce/api/responses"
	"github.com/jerrybuks/agentic-ecommerce/api/validators"
	"github.com/jerrybuks/agentic-ecommerce/internal/catalog"
	pkgerrors "github.com/jerrybuks/agentic-ecommerce/pkg/errors"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
)

type adminProductCreateRequest struct {
	SKU         string   `json:"sku" validate:"required,max=64"`
	Name        string   `json:"name" validate:"required,max=200"`
	Brand       string   `json:"brand" validate:"required,max=100"`
	Category    string   `json:"category" validate:"required,max=100"`
	Description string   `json:"description" validate:"required"`
	Tags        []string `json:"tags"`
	Price       string   `json:"price" validate:"required"`
	Stock       int      `json:"stock" validate:"min=0"`
	IsActive    *bool    `json:"is_active"`
	IsFeatured  bool     `json:"is_featured"`
}

type adminProductUpdateRequest struct {
	SKU         *string   `json:"sku" validate:"omitempty,max=64"`
	Name        *string   `json:"name" validate:"omitempty,max=200"`
	Brand       *string   `json:"brand" validate:"omitempty,max=100"`
	Category    *string   `json:"category" validate:"omitempty,max=100"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	Price       *string   `json:"price"`
	Stock       *int      `json:"stock" validate:"omitempty,min=0"`
	IsActive    *bool     `json:"is_active"`
	IsFeatured  *bool     `json:"is_featured"`
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price must be a decimal number")
	}
	if price.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return price, nil
}

// AdminProductCreate inserts a new catalog entry.
func AdminProductCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req adminProductCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		price, err := parsePrice(req.Price)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// New products default to active, matching the catalog's column default.
		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}

		product, err := svc.CreateProduct(ctx, catalog.CreateProductInput{
			SKU:         validators.SanitizeString(req.SKU, 64),
			Name:        validators.SanitizeString(req.Name, 200),
			Brand:       validators.SanitizeString(req.Brand, 100),
			Category:    validators.SanitizeString(req.Category, 100),
			Description: req.Description,
			Tags:        req.Tags,
			Price:       price,
			Stock:       req.Stock,
			IsActive:    active,
			IsFeatured:  req.IsFeatured,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toProductResponse(product))
	}
}

// AdminProductUpdate applies a full or partial update to a product. PUT and
// PATCH share the handler: absent fields are left untouched either way.
func AdminProductUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var req adminProductUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := catalog.UpdateProductInput{
			SKU:         req.SKU,
			Name:        req.Name,
			Brand:       req.Brand,
			Category:    req.Category,
			Description: req.Description,
			Tags:        req.Tags,
			Stock:       req.Stock,
			IsActive:    req.IsActive,
			IsFeatured:  req.IsFeatured,
		}
		if req.Price != nil {
			price, err := parsePrice(*req.Price)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			input.Price = &price
		}

		product, err := svc.UpdateProduct(ctx, id, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductResponse(product))
	}
}

// AdminProductBySKU looks a product up by its unique SKU.
func AdminProductBySKU(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sku := validators.SanitizeString(chi.URLParam(r, "sku"), 64)
		if sku == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sku is required"))
			return
		}

		product, err := svc.GetProductBySKU(ctx, sku)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductResponse(product))
	}
}

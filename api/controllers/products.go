package controllers

import (
	"net/http"
	"time"

	"github.com/jerrybuks/agentic-ecommerce/api/responses"
	"github.com/jerrybuks/agentic-ecommerce/api/validators"
	"github.com/jerrybuks/agentic-ecommerce/internal/catalog"
	"github.com/jerrybuks/agentic-ecommerce/pkg/db/models"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
)

type productResponse struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	IsActive    bool      `json:"is_active"`
	IsFeatured  bool      `json:"is_featured"`
	CreatedAt   time.Time `json:"created_at"`
}

type productListResponse struct {
	Items []productResponse `json:"items"`
	Total int64             `json:"total"`
}

func toProductResponse(p *models.Product) productResponse {
	return productResponse{
		ID:          p.ID.String(),
		SKU:         p.SKU,
		Name:        p.Name,
		Brand:       p.Brand,
		Category:    p.Category,
		Description: p.Description,
		Tags:        p.Tags,
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
		IsActive:    p.IsActive,
		IsFeatured:  p.IsFeatured,
		CreatedAt:   p.CreatedAt,
	}
}

// ProductList exposes the filterable catalog listing.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		featured, err := validators.ParseQueryBool(r, "featured", false)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		activeOnly, err := validators.ParseQueryBool(r, "active", true)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		minPrice, err := validators.ParseQueryDecimal(r, "min_price")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		maxPrice, err := validators.ParseQueryDecimal(r, "max_price")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		filter := catalog.ListFilter{
			Search:       validators.SanitizeString(r.URL.Query().Get("search"), 200),
			Category:     validators.SanitizeString(r.URL.Query().Get("category"), 100),
			Brand:        validators.SanitizeString(r.URL.Query().Get("brand"), 100),
			Tag:          validators.SanitizeString(r.URL.Query().Get("tag"), 100),
			MinPrice:     minPrice,
			MaxPrice:     maxPrice,
			ActiveOnly:   activeOnly,
			FeaturedOnly: featured,
			Limit:        limit,
			Offset:       offset,
		}

		products, total, err := svc.ListProducts(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items := make([]productResponse, len(products))
		for i := range products {
			items[i] = toProductResponse(&products[i])
		}
		responses.WriteSuccess(w, productListResponse{Items: items, Total: total})
	}
}

package controllers

import (
	"net/http"

	"github.com/jerrybuks/agentic-ecommerce/api/middleware"
	"github.com/jerrybuks/agentic-ecommerce/api/responses"
	"github.com/jerrybuks/agentic-ecommerce/internal/cart"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
)

type cartLineResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type cartResponse struct {
	Lines     []cartLineResponse `json:"lines"`
	ItemCount int                `json:"item_count"`
	Total     string             `json:"total"`
}

// CartFetch returns the caller's cart with totals.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := middleware.UserIDFromContext(ctx)

		view, err := svc.ViewCart(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		lines := make([]cartLineResponse, len(view.Lines))
		for i, line := range view.Lines {
			lines[i] = cartLineResponse{
				ProductID:   line.ProductID.String(),
				ProductName: line.ProductName,
				SKU:         line.SKU,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice.StringFixed(2),
				LineTotal:   line.LineTotal.StringFixed(2),
			}
		}
		responses.WriteSuccess(w, cartResponse{
			Lines:     lines,
			ItemCount: view.ItemCount,
			Total:     view.Total.StringFixed(2),
		})
	}
}

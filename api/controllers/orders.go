package controllers

import (
	"net/http"
	"time"

	"github.com/jerrybuks/agentic-ecommerce/api/middleware"
	"github.com/jerrybuks/agentic-ecommerce/api/responses"
	"github.com/jerrybuks/agentic-ecommerce/api/validators"
	"github.com/jerrybuks/agentic-ecommerce/internal/orders"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
)

type orderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type orderResponse struct {
	ID        string              `json:"id"`
	Total     string              `json:"total"`
	Items     []orderItemResponse `json:"items"`
	CreatedAt time.Time           `json:"created_at"`
}

// OrdersList returns the caller's most recent orders with line items.
func OrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := middleware.UserIDFromContext(ctx)

		limit, err := validators.ParseQueryInt(r, "limit", orders.DefaultRecentLimit, 1, 50)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		recent, err := svc.ListRecent(ctx, userID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload := make([]orderResponse, len(recent))
		for i, order := range recent {
			items := make([]orderItemResponse, len(order.Items))
			for j, item := range order.Items {
				items[j] = orderItemResponse{
					ProductID:   item.ProductID.String(),
					ProductName: item.ProductName,
					SKU:         item.SKU,
					Quantity:    item.Quantity,
					UnitPrice:   item.UnitPrice.StringFixed(2),
					LineTotal:   item.LineTotal.StringFixed(2),
				}
			}
			payload[i] = orderResponse{
				ID:        order.ID.String(),
				Total:     order.Total.StringFixed(2),
				Items:     items,
				CreatedAt: order.CreatedAt,
			}
		}
		responses.WriteSuccess(w, payload)
	}
}

package controllers

import (
	"net/http"
	"time"

	"github.com/jerrybuks/agentic-ecommerce/api/middleware"
	"github.com/jerrybuks/agentic-ecommerce/api/responses"
	"github.com/jerrybuks/agentic-ecommerce/internal/voucher"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
)

type voucherResponse struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	Amount     string     `json:"amount"`
	Status     string     `json:"status"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// VoucherGenerate issues (or re-returns) the caller's unused voucher.
func VoucherGenerate(svc voucher.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := middleware.UserIDFromContext(ctx)

		v, err := svc.Request(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, voucherResponse{
			ID:         v.ID.String(),
			Code:       v.Code,
			Amount:     v.Amount.StringFixed(2),
			Status:     v.Status.String(),
			RedeemedAt: v.RedeemedAt,
			CreatedAt:  v.CreatedAt,
		})
	}
}

package orders

import (
	"context"
	"fmt"

	"github.com/jerrybuks/agentic-ecommerce/pkg/db/models"
	pkgerrors "github.com/jerrybuks/agentic-ecommerce/pkg/errors"
)

// DefaultRecentLimit caps how many orders a "view orders" turn surfaces.
const DefaultRecentLimit = 5

// Service exposes order history reads.
type Service interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Order, error)
}

type service struct {
	repo *Repository
}

// NewService constructs an orders service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListRecent(ctx context.Context, userID string, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 50 {
		limit = DefaultRecentLimit
	}
	orders, err := s.repo.ListRecentByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return orders, nil
}

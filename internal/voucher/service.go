package voucher

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jerrybuks/agentic-ecommerce/pkg/db"
	"github.com/jerrybuks/agentic-ecommerce/pkg/db/models"
	"github.com/jerrybuks/agentic-ecommerce/pkg/enums"
	pkgerrors "github.com/jerrybuks/agentic-ecommerce/pkg/errors"
)

const codePrefix = "VOUCHER-"

// Service exposes voucher operations.
type Service interface {
	// Request returns the user's unused voucher, creating one when none
	// exists. Calling it repeatedly never yields a second live voucher.
	Request(ctx context.Context, userID string) (*models.Voucher, error)
	// FindUnused returns the user's unused voucher or gorm.ErrRecordNotFound.
	FindUnused(ctx context.Context, userID string) (*models.Voucher, error)
}

type service struct {
	repo   *Repository
	amount decimal.Decimal
}

// NewService constructs a voucher service. Amount is the fixed value every
// issued voucher carries.
func NewService(repo *Repository, amount decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("voucher repository required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("voucher amount must be positive")
	}
	return &service{repo: repo, amount: amount}, nil
}

// Request is idempotent per user. The one-unused-per-user invariant is
// enforced by a partial unique index on vouchers(user_id) WHERE status =
// 'unused'; concurrent requests that both miss the lookup race on the
// insert, and the loser adopts the winner's voucher.
func (s *service) Request(ctx context.Context, userID string) (*models.Voucher, error) {
	existing, err := s.repo.FindUnusedByUser(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up voucher")
	}
	return s.issue(ctx, userID)
}

func (s *service) FindUnused(ctx context.Context, userID string) (*models.Voucher, error) {
	return s.repo.FindUnusedByUser(ctx, userID)
}

// issue inserts a fresh voucher for a user whose lookup came back empty.
// A unique violation means a concurrent request inserted first; the caller
// gets that voucher instead of an error.
func (s *service) issue(ctx context.Context, userID string) (*models.Voucher, error) {
	code, err := generateCode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating voucher code")
	}
	fresh := &models.Voucher{
		ID:     uuid.New(),
		UserID: userID,
		Code:   code,
		Amount: s.amount,
		Status: enums.VoucherStatusUnused,
	}
	if err := s.repo.Create(ctx, fresh); err != nil {
		if db.IsUniqueViolation(err, "") {
			if winner, ferr := s.repo.FindUnusedByUser(ctx, userID); ferr == nil {
				return winner, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "voucher uniqueness conflict")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating voucher")
	}
	return fresh, nil
}

// generateCode returns "VOUCHER-" followed by 16 uppercase hex characters.
func generateCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return codePrefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}

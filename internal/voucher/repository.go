package voucher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jerrybuks/agentic-ecommerce/pkg/db/models"
	"github.com/jerrybuks/agentic-ecommerce/pkg/enums"
)

// Repository owns voucher persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindUnusedByUser returns the user's current unused voucher, or
// gorm.ErrRecordNotFound when none exists.
func (r *Repository) FindUnusedByUser(ctx context.Context, userID string) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.VoucherStatusUnused).
		Order("created_at DESC").
		First(&voucher).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

// Create inserts a new voucher.
func (r *Repository) Create(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Create(voucher).Error
}

// MarkRedeemed flips an unused voucher to redeemed. Returns
// gorm.ErrRecordNotFound when the voucher was already spent or is missing,
// which makes redemption safe against double-spend races.
func (r *Repository) MarkRedeemed(ctx context.Context, voucherID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Voucher{}).
		Where("id = ? AND status = ?", voucherID, enums.VoucherStatusUnused).
		Updates(map[string]any{
			"status":      enums.VoucherStatusRedeemed,
			"redeemed_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

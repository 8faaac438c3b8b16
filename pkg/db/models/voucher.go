package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jerrybuks/agentic-ecommerce/pkg/enums"
)

// Voucher is the payment instrument of the demo store. One unused voucher
// exists per user at a time; RequestVoucher is idempotent on that invariant.
type Voucher struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID     string              `gorm:"column:user_id;not null;index"`
	Code       string              `gorm:"column:code;not null;uniqueIndex"`
	Amount     decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Status     enums.VoucherStatus `gorm:"column:status;not null;default:'unused'"`
	RedeemedAt *time.Time          `gorm:"column:redeemed_at"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

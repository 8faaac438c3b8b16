package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the immutable record written when checkout succeeds.
type Order struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID          string          `gorm:"column:user_id;not null;index"`
	VoucherID       uuid.UUID       `gorm:"column:voucher_id;type:uuid;not null"`
	Total           decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	ShippingName    string          `gorm:"column:shipping_name;not null"`
	ShippingLine1   string          `gorm:"column:shipping_line1;not null"`
	ShippingLine2   *string         `gorm:"column:shipping_line2"`
	ShippingCity    string          `gorm:"column:shipping_city;not null"`
	ShippingState   string          `gorm:"column:shipping_state"`
	ShippingPostal  string          `gorm:"column:shipping_postal;not null"`
	ShippingCountry string          `gorm:"column:shipping_country"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem captures the snapshot of each purchased line.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	SKU         string          `gorm:"column:sku;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

package checkout

import (
	"context"

	"gorm.io/gorm"

	"github.com/jerrybuks/agentic-ecommerce/pkg/db/models"
)

// Repository owns shipping address persistence.
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

// FindByUser returns the user's address or gorm.ErrRecordNotFound.
func (r *Repository) FindByUser(ctx context.Context, userID string) (*models.ShippingAddress, error) {
	var address models.ShippingAddress
	if err := r.db.WithContext(ctx).First(&address, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

// Create inserts a new address row.
func (r *Repository) Create(ctx context.Context, address *models.ShippingAddress) error {
	return r.db.WithContext(ctx).Create(address).Error
}

// Update replaces the mutable fields of an existing address.
func (r *Repository) Update(ctx context.Context, address *models.ShippingAddress) error {
	return r.db.WithContext(ctx).Model(&models.ShippingAddress{}).
		Where("id = ?", address.ID).
		Updates(map[string]any{
			"full_name":   address.FullName,
			"line1":       address.Line1,
			"line2":       address.Line2,
			"city":        address.City,
			"state":       address.State,
			"postal_code": address.PostalCode,
			"country":     address.Country,
			"phone":       address.Phone,
		}).Error
}

package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jerrybuks/agentic-ecommerce/pkg/db/models"
)

// ListFilter narrows catalog listings. Zero values mean "no constraint".
type ListFilter struct {
	Search       string
	Category     string
	Brand        string
	Tag          string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	ActiveOnly   bool
	FeaturedOnly bool
	Limit        int
	Offset       int
}

// Repository wires together product persistence helpers.
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

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Save persists all fields of an existing product row.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// FindByID loads a product by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySKU loads a product by its unique SKU.
func (r *Repository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns products matching the filter plus the unpaginated total.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if search := strings.TrimSpace(filter.Search); search != "" {
		needle := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(description) LIKE ?",
			needle, needle, needle,
		)
	}
	if filter.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(filter.Category))
	}
	if filter.Brand != "" {
		query = query.Where("LOWER(brand) = ?", strings.ToLower(filter.Brand))
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", filter.MaxPrice)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.FeaturedOnly {
		query = query.Where("is_featured = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	var products []models.Product
	if err := query.Order("created_at DESC, id").Limit(limit).Offset(filter.Offset).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	// Tag filtering happens in memory: tags are stored as a JSON array and
	// the predicate must work on both Postgres and sqlite.
	if filter.Tag != "" {
		want := strings.ToLower(filter.Tag)
		filtered := products[:0]
		for _, p := range products {
			for _, tag := range p.Tags {
				if strings.ToLower(tag) == want {
					filtered = append(filtered, p)
					break
				}
			}
		}
		products = filtered
	}

	return products, total, nil
}

// ListBatch pages through the catalog in stable id order for the indexer.
func (r *Repository) ListBatch(ctx context.Context, includeInactive bool, limit, offset int) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var products []models.Product
	if err := query.Order("id").Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// DecrementStock atomically reduces stock, failing when it would go negative.
// Returns gorm.ErrRecordNotFound when the guard rejects the update.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

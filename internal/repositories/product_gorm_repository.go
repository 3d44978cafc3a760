package repositories

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"katalog/internal/models"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all products whose name matches the filter.
func (r *GORMProductRepository) GetAll(filter string) ([]models.Product, error) {
	var products []models.Product
	q := r.db.Preload("Categories").Order("products.id asc")
	if filter != "" {
		q = q.Where("lower(name) LIKE ?", "%"+strings.ToLower(filter)+"%")
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByCategory retrieves the products associated with the given
// category whose name matches the filter.
func (r *GORMProductRepository) GetByCategory(categoryID uint, filter string) ([]models.Product, error) {
	var products []models.Product
	q := r.db.Preload("Categories").
		Joins("JOIN product_categories pc ON pc.product_id = products.id").
		Where("pc.category_id = ?", categoryID).
		Order("products.id asc")
	if filter != "" {
		q = q.Where("lower(products.name) LIKE ?", "%"+strings.ToLower(filter)+"%")
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get products for category %d: %w", categoryID, err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID, categories included.
func (r *GORMProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.Preload("Categories").First(&product, "products.id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, err)
	}
	return &product, nil
}

// CreateWithCategories creates the product row and attaches the
// category associations in a single transaction. The association table
// needs the product id, so the row is persisted first; a failure
// attaching categories rolls the row back too.
func (r *GORMProductRepository) CreateWithCategories(product *models.Product, categories []models.Category) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		product.Categories = nil
		if err := tx.Create(product).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		if len(categories) > 0 {
			if err := tx.Model(product).Association("Categories").Append(categories); err != nil {
				return fmt.Errorf("failed to attach categories: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	product.Categories = categories
	return nil
}

// UpdateWithCategories overwrites the product's attributes and replaces
// its whole category set in a single transaction.
func (r *GORMProductRepository) UpdateWithCategories(product *models.Product, categories []models.Category) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Product
		if err := tx.First(&existing, "id = ?", product.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product with ID %d: %w", product.ID, ErrNotFound)
			}
			return fmt.Errorf("failed to load product %d for update: %w", product.ID, err)
		}
		product.CreatedAt = existing.CreatedAt
		product.Categories = nil
		if err := tx.Omit("Categories").Save(product).Error; err != nil {
			return fmt.Errorf("failed to update product %d: %w", product.ID, err)
		}
		if err := tx.Model(product).Association("Categories").Replace(categories); err != nil {
			return fmt.Errorf("failed to replace categories for product %d: %w", product.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	product.Categories = categories
	return nil
}

// Delete deletes a product by its ID.
func (r *GORMProductRepository) Delete(id uint) error {
	res := r.db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %d: %w", id, ErrNotFound)
	}
	return nil
}

// Count returns the number of products in the store.
func (r *GORMProductRepository) Count() (int64, error) {
	var n int64
	if err := r.db.Model(&models.Product{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

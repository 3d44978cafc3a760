package repositories

import (
	"katalog/internal/models"
)

// ProductRepository defines the interface for product data access.
//
// The filter argument on the read queries is a case-insensitive
// substring match against the product name; the empty string matches
// everything.
type ProductRepository interface {
	GetAll(filter string) ([]models.Product, error)
	GetByCategory(categoryID uint, filter string) ([]models.Product, error)
	GetByID(id uint) (*models.Product, error)
	// CreateWithCategories persists the product and its category
	// associations as one atomic unit. The product id is assigned on
	// success.
	CreateWithCategories(product *models.Product, categories []models.Category) error
	// UpdateWithCategories replaces the product's attributes and its
	// entire category set atomically. Associations not present in
	// categories are dropped.
	UpdateWithCategories(product *models.Product, categories []models.Category) error
	Delete(id uint) error
	Count() (int64, error)
}

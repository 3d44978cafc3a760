package repositories

import (
	"katalog/internal/models"
)

// CategoryRepository defines the interface for category data access.
// Categories are read-mostly; admin listings rely on the name ordering
// of GetAll being stable.
type CategoryRepository interface {
	GetAll() ([]models.Category, error)
	GetByID(id uint) (*models.Category, error)
	Create(category *models.Category) error
}

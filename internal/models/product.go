package models

import "gorm.io/gorm"

// Product represents a product in the store catalog.
//
// The two derived image files for a product live at
// <imagesDir>/<id>.jpg and <imagesDir>/thumbnails/<id>.jpg; their
// presence is a path convention, not a column.
type Product struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Name        string     `json:"name" gorm:"type:varchar(100)" validate:"required,min=2,max=100"`
	Description string     `json:"description" gorm:"type:varchar(500)" validate:"omitempty,max=500"`
	Price       float64    `json:"price" validate:"required,gt=0"`
	Stock       int        `json:"stock" validate:"gte=0"`
	Categories  []Category `json:"categories" gorm:"many2many:product_categories"`
	gorm.Model             // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// CategoryIDs returns the set of associated category ids.
func (p *Product) CategoryIDs() []uint {
	ids := make([]uint, 0, len(p.Categories))
	for _, c := range p.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

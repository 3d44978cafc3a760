package models

// Category groups products. Listings order categories by name ascending.
type Category struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	Name     string    `json:"name" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=2,max=100"`
	Products []Product `json:"-" gorm:"many2many:product_categories"`
}

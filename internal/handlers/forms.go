package handlers

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"katalog/internal/models"
)

// ProductForm carries the raw product create/update submission. The
// admin screens post multipart forms (the upload file part rides the
// same request); catSelect is the repeated checkbox field holding the
// selected category ids and may legally be empty.
type ProductForm struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	CatSelect   []uint  `json:"catSelect"`
}

// parseProductForm reads the submitted fields off the request. Parse
// failures on numeric fields become field errors rather than aborting
// the request, so the form can be re-rendered with everything the user
// typed.
func parseProductForm(c *fiber.Ctx) (*ProductForm, map[string]string) {
	form := &ProductForm{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
	}
	fieldErrors := make(map[string]string)

	if raw := c.FormValue("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fieldErrors["Price"] = "price must be a number"
		} else {
			form.Price = price
		}
	}
	if raw := c.FormValue("stock"); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			fieldErrors["Stock"] = "stock must be a whole number"
		} else {
			form.Stock = stock
		}
	}

	for _, raw := range formValues(c, "catSelect") {
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			fieldErrors["CatSelect"] = fmt.Sprintf("'%s' is not a valid category id", raw)
			continue
		}
		form.CatSelect = append(form.CatSelect, uint(id))
	}

	return form, fieldErrors
}

// formValues returns every submitted value for a repeated field, for
// both multipart and url-encoded bodies.
func formValues(c *fiber.Ctx, key string) []string {
	if form, err := c.MultipartForm(); err == nil && form != nil {
		return form.Value[key]
	}
	raw := c.Request().PostArgs().PeekMulti(key)
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		values = append(values, string(v))
	}
	return values
}

// Validate runs the struct validation and merges the results into the
// parse-stage field errors.
func (f *ProductForm) Validate(validate *validator.Validate, fieldErrors map[string]string) map[string]string {
	if err := validate.Struct(f); err != nil {
		for _, e := range err.(validator.ValidationErrors) {
			if _, ok := fieldErrors[e.Field()]; !ok {
				fieldErrors[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
			}
		}
	}
	return fieldErrors
}

// Product maps the validated form onto a product entity. Categories
// are attached separately after resolution.
func (f *ProductForm) Product() *models.Product {
	return &models.Product{
		Name:        f.Name,
		Description: f.Description,
		Price:       f.Price,
		Stock:       f.Stock,
	}
}

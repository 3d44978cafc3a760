package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"katalog/internal/middleware"
	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/internal/services"
	"katalog/pkg/images"
)

// AdminProductHandler handles the admin product screens: listing with
// category/text filters, create, update and delete. Every route is
// expected to sit behind middleware.RequireAdmin.
type AdminProductHandler struct {
	catalog  *services.CatalogService
	auth     *services.AuthService
	images   *images.Generator
	validate *validator.Validate
}

// NewAdminProductHandler creates a new AdminProductHandler.
func NewAdminProductHandler(catalog *services.CatalogService, auth *services.AuthService, generator *images.Generator) *AdminProductHandler {
	return &AdminProductHandler{
		catalog:  catalog,
		auth:     auth,
		images:   generator,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the admin product routes with the Fiber app.
func (h *AdminProductHandler) RegisterRoutes(router fiber.Router) {
	// /products/new must come before the :categoryId wildcard.
	router.Get("/products/new", h.HandleNewProduct)
	router.Get("/products/:categoryId", h.HandleListProducts)
	router.Post("/products", h.HandleCreateProduct)
	router.Get("/products/:id/edit", h.HandleEditProduct)
	router.Post("/products/:id/delete", h.HandleDeleteProduct)
	router.Post("/products/:id", h.HandleUpdateProduct)
}

func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s'", param, c.Params(param))
	}
	return uint(id), nil
}

// HandleListProducts renders the admin listing. Category id 0 is the
// reserved "all products" value; ?filter= narrows by name on both
// paths.
func (h *AdminProductHandler) HandleListProducts(c *fiber.Ctx) error {
	categoryID, err := parseID(c, "categoryId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}
	filter := c.Query("filter")

	products, err := h.catalog.ListProducts(categoryID, filter)
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve products",
			"error":   err.Error(),
		})
	}
	categories, err := h.catalog.ListCategories()
	if err != nil {
		log.Printf("Error listing categories: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve categories",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"categories": categories,
		"products":   products,
		"user":       currentUser(c),
		"notice":     h.auth.Notice(c.Context(), c.Cookies(middleware.SessionCookie)),
	})
}

// HandleNewProduct renders an empty create form representation.
func (h *AdminProductHandler) HandleNewProduct(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories()
	if err != nil {
		log.Printf("Error listing categories: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve categories",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"product":    ProductForm{},
		"categories": categories,
		"user":       currentUser(c),
	})
}

// HandleCreateProduct handles a submitted create form. Validation
// failure re-renders the form with the submitted values and field
// errors, persisting nothing. On success the product and its category
// set are stored atomically, derivatives are generated for a valid
// image upload, and the request redirects to the listing with a
// notice.
func (h *AdminProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	form, fieldErrors := parseProductForm(c)
	if fieldErrors = form.Validate(h.validate, fieldErrors); len(fieldErrors) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fieldErrors,
			"values":  form,
		})
	}

	product := form.Product()
	if err := h.catalog.CreateProduct(product, form.CatSelect); err != nil {
		return h.writeError(c, "Could not create product", err)
	}

	imageMsg := h.saveImage(c, product.ID)

	token := c.Cookies(middleware.SessionCookie)
	h.auth.SetNotice(c.Context(), token, fmt.Sprintf("Product %s has been created %s", product.Name, imageMsg))
	return c.Redirect("/admin/products/0", fiber.StatusSeeOther)
}

// HandleEditProduct renders the edit form pre-populated from the
// stored product.
func (h *AdminProductHandler) HandleEditProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}
	product, err := h.catalog.GetProduct(id)
	if err != nil {
		return h.writeError(c, "Could not retrieve product", err)
	}
	categories, err := h.catalog.ListCategories()
	if err != nil {
		log.Printf("Error listing categories: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve categories",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"product":    product,
		"categories": categories,
		"user":       currentUser(c),
	})
}

// HandleUpdateProduct handles a submitted update form. The id comes
// from the route and is authoritative; the stored attribute values and
// the whole category set are replaced by the submission.
func (h *AdminProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}

	form, fieldErrors := parseProductForm(c)
	if fieldErrors = form.Validate(h.validate, fieldErrors); len(fieldErrors) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fieldErrors,
			"values":  form,
		})
	}

	product := form.Product()
	if err := h.catalog.UpdateProduct(id, product, form.CatSelect); err != nil {
		return h.writeError(c, "Could not update product", err)
	}

	imageMsg := h.saveImage(c, id)

	token := c.Cookies(middleware.SessionCookie)
	h.auth.SetNotice(c.Context(), token, fmt.Sprintf("Product %s has been updated %s", product.Name, imageMsg))
	return c.Redirect("/admin/products/0", fiber.StatusSeeOther)
}

// HandleDeleteProduct deletes a product. A missing id is a loud 404;
// the derived image files are intentionally left behind.
func (h *AdminProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}
	if err := h.catalog.DeleteProduct(id); err != nil {
		return h.writeError(c, "Could not delete product", err)
	}

	token := c.Cookies(middleware.SessionCookie)
	h.auth.SetNotice(c.Context(), token, "Product has been deleted")
	return c.Redirect("/admin/products/0", fiber.StatusSeeOther)
}

// saveImage generates the image derivatives for an uploaded file and
// returns the notice fragment describing what happened. A missing
// upload and a non-image content type read the same: no derivatives. A
// conversion failure is logged and surfaced in the notice but never
// fails the enclosing write.
func (h *AdminProductHandler) saveImage(c *fiber.Ctx, id uint) string {
	fileHeader, err := c.FormFile("upload")
	if err != nil || fileHeader == nil {
		return "image file missing"
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		log.Printf("Upload for product %d has content type %q, skipping", id, contentType)
		return "image file missing"
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("Warning: failed to open upload for product %d: %v", id, err)
		return "but the image could not be processed"
	}
	defer file.Close()

	if err := h.images.Generate(file, id); err != nil {
		log.Printf("Warning: failed to generate derivatives for product %d: %v", id, err)
		return "but the image could not be processed"
	}
	return "and image saved"
}

// writeError maps a service error onto the response, keeping missing
// products and categories distinguishable from internal failures.
func (h *AdminProductHandler) writeError(c *fiber.Ctx, message string, err error) error {
	log.Printf("%s: %v", message, err)
	status := fiber.StatusInternalServerError
	if errors.Is(err, repositories.ErrNotFound) {
		status = fiber.StatusNotFound
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"katalog/internal/handlers"
	"katalog/internal/middleware"
	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/internal/services"
	"katalog/pkg/images"
)

var dbCounter int64

// setupApp builds the full application against an in-memory SQLite
// database, in-memory sessions and a temp image directory. It seeds an
// admin, a customer and three categories (Books=1, Clothing=2,
// Electronics=3).
func setupApp(t *testing.T) (*fiber.App, *images.Generator) {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.User{}, &models.Category{}, &models.Product{}))

	productRepo := repositories.NewGORMProductRepository(db)
	categoryRepo := repositories.NewGORMCategoryRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	sessions := repositories.NewMockSessionStore()

	catalogService := services.NewCatalogService(productRepo, categoryRepo, nil) // nil RabbitMQ client
	authService := services.NewAuthService(userRepo, sessions)
	generator := images.NewGenerator(t.TempDir())

	adminProductHandler := handlers.NewAdminProductHandler(catalogService, authService, generator)
	authHandler := handlers.NewAuthHandler(authService)

	app := fiber.New()
	app.Use(middleware.ResolveUser(authService))
	authHandler.RegisterRoutes(app)
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Welcome to the store"})
	})
	admin := app.Group("/admin", middleware.RequireAdmin())
	adminProductHandler.RegisterRoutes(admin)

	seedUsers(t, userRepo)
	for _, name := range []string{"Books", "Clothing", "Electronics"} {
		assert.NoError(t, categoryRepo.Create(&models.Category{Name: name}))
	}

	return app, generator
}

func seedUsers(t *testing.T, userRepo repositories.UserRepository) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	assert.NoError(t, err)
	assert.NoError(t, userRepo.Create(&models.User{
		Email:    "admin@example.com",
		Name:     "Administrator",
		Password: string(hash),
		Role:     models.RoleAdmin,
	}))
	assert.NoError(t, userRepo.Create(&models.User{
		Email:    "shopper@example.com",
		Name:     "Shopper",
		Password: string(hash),
		Role:     models.RoleCustomer,
	}))
}

// login submits the login form and returns the session cookie value.
func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	for _, cookie := range resp.Cookies() {
		if cookie.Name == middleware.SessionCookie {
			return cookie.Value
		}
	}
	t.Fatal("login response did not set a session cookie")
	return ""
}

// filePart describes an optional upload riding a product form.
type filePart struct {
	fieldName   string
	fileName    string
	contentType string
	content     []byte
}

// postForm submits a multipart product form, the way the admin screens
// post it.
func postForm(t *testing.T, app *fiber.App, path, token string, fields url.Values, file *filePart) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, values := range fields {
		for _, value := range values {
			assert.NoError(t, writer.WriteField(key, value))
		}
	}
	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, file.fieldName, file.fileName))
		header.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(header)
		assert.NoError(t, err)
		_, err = part.Write(file.content)
		assert.NoError(t, err)
	}
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	return resp
}

type listingResponse struct {
	Categories []models.Category `json:"categories"`
	Products   []models.Product  `json:"products"`
	Notice     string            `json:"notice"`
}

func getListing(t *testing.T, app *fiber.App, path, token string) listingResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var listing listingResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	return listing
}

func productForm(name, price string, catIDs ...string) url.Values {
	form := url.Values{}
	form.Set("name", name)
	form.Set("price", price)
	form.Set("description", "test product")
	form.Set("stock", "5")
	for _, id := range catIDs {
		form.Add("catSelect", id)
	}
	return form
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for x := 0; x < 400; x++ {
		for y := 0; y < 300; y++ {
			img.Set(x, y, color.RGBA{R: 10, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	assert.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	app, _ := setupApp(t)

	// Anonymous request is redirected to login before any handler runs.
	req := httptest.NewRequest(http.MethodGet, "/admin/products/0", nil)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	resp.Body.Close()

	// A logged-in customer is rejected the same way.
	customerToken := login(t, app, "shopper@example.com", "password123")
	req = httptest.NewRequest(http.MethodGet, "/admin/products/0", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: customerToken})
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	resp.Body.Close()

	// The admin gets the listing.
	adminToken := login(t, app, "admin@example.com", "password123")
	listing := getListing(t, app, "/admin/products/0", adminToken)
	assert.Len(t, listing.Categories, 3)
	assert.Empty(t, listing.Products)
}

func TestLoginRouting(t *testing.T) {
	app, _ := setupApp(t)

	// Admins land in the admin section.
	form := url.Values{}
	form.Set("email", "admin@example.com")
	form.Set("password", "password123")
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/products/0", resp.Header.Get("Location"))
	resp.Body.Close()

	// Customers land on the store front.
	form.Set("email", "shopper@example.com")
	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	resp.Body.Close()

	// Bad credentials are a 401 with no session.
	form.Set("password", "wrong")
	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestLogoutEndsSession(t *testing.T) {
	app, _ := setupApp(t)
	token := login(t, app, "admin@example.com", "password123")

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	resp.Body.Close()

	// The old token no longer grants access.
	req = httptest.NewRequest(http.MethodGet, "/admin/products/0", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateProductWithCategories(t *testing.T) {
	app, _ := setupApp(t)
	token := login(t, app, "admin@example.com", "password123")

	resp := postForm(t, app, "/admin/products", token, productForm("Widget", "19.99", "1", "2"), nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/products/0", resp.Header.Get("Location"))
	resp.Body.Close()

	listing := getListing(t, app, "/admin/products/0", token)
	assert.Len(t, listing.Products, 1)
	created := listing.Products[0]
	assert.Equal(t, "Widget", created.Name)
	// The stored category set equals exactly the submitted one.
	assert.ElementsMatch(t, []uint{1, 2}, created.CategoryIDs())
	assert.Contains(t, listing.Notice, "Product Widget has been created")
	assert.Contains(t, listing.Notice, "image file missing")

	// Notices are read-once.
	listing = getListing(t, app, "/admin/products/0", token)
	assert.Empty(t, listing.Notice)
}

func TestCreateProductEmptyCategorySelection(t *testing.T) {
	app, _ := setupApp(t)
	token := login(t, app, "admin@example.com", "password123")

	resp := postForm(t, app, "/admin/products", token, productForm("Loose Item", "5.00"), nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	listing := getListing(t, app, "/admin/products/0", token)
	assert.Len(t, listing.Products, 1)
	assert.Empty(t, listing.Products[0].Categories)
}

func TestCreateProductValidationFailure(t *testing.T) {
	app, _ := setupApp(t)
	token := login(t, app, "admin@example.com", "password123")

	form := url.Values{}
	form.Set("name", "") // required
	form.Set("price", "not-a-number")
	form.Set("description", "still echoed back")

	resp := postForm(t, app, "/admin/products", token, form, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
		Values  handlers.ProductForm
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "Validation failed", body.Message)
	assert.Contains(t, body.Errors, "Name")
	assert.Contains(t, body.Errors, "Price")
	// The form is re-populated with what was typed.
	assert.Equal(t, "still echoed back", body.Values.Description)

	// Nothing was persisted.
	listing := getListing(t, app, "/admin/products/0", token)
	assert.Empty(t, listing.Products)
}

func TestCreateProductUnknownCategoryPersistsNothing(t *testing.T) {
	app, _ := setupApp(t)
	token := login(t, app, "admin@example.com", "password123")

	resp := postForm(t, app, "/admin/products", token, productForm("Ghost", "9.99", "999"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// The failed resolution left no partial product row behind.
	listing := getListing(t, app, "/admin/products/0", token)
	assert.Empty(t, listing.Products)
}

func TestListFilters(t *testing.T) {
	app, _ := setupApp(t)
	token := login(t, app, "admin@example.com", "password123")

	for _, p := range []struct {
		name string
		cats []string
	}{
		{"Blue Shirt", []string{"2"}},
		{"Red Shirt", []string{"2"}},
		{"Novel", []string{"1"}},
	} {
		resp := postForm(t, app, "/admin/products", token, productForm(p.name, "10.00", p.cats...), nil)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		resp.Body.Close()
	}

	// All products, no filter.
	listing := getListing(t, app, "/admin/products/0", token)
	assert.Len(t, listing.Products, 3)

	// Text filter is case-insensitive and applies on the "all" path.
	listing = getListing(t, app, "/admin/products/0?filter=shirt", token)
	assert.Len(t, listing.Products, 2)

	// Category restriction.
	listing = getListing(t, app, "/admin/products/1", token)
	assert.Len(t, listing.Products, 1)
	assert.Equal(t, "Novel", listing.Products[0].Name)

	// Category plus text filter.
	listing = getListing(t, app, "/admin/products/2?filter=blue", token)
	assert.Len(t, listing.Products, 1)
	assert.Equal(t, "Blue Shirt", listing.Products[0].Name)

	// No matches is an empty result, not an error.
	listing = getListing(t, app, "/admin/products/0?filter=zzz", token)
	assert.Empty(t, listing.Products)
}

func TestUpdateProductReplacesCategorySet(t *testing.T) {
	app, _ := setupApp(t)
	token := login(t, app, "admin@example.com", "password123")

	resp := postForm(t, app, "/admin/products", token, productForm("Gadget", "30.00", "1", "2"), nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	listing := getListing(t, app, "/admin/products/0", token)
	assert.Len(t, listing.Products, 1)
	id := listing.Products[0].ID

	// Full replace: only the resubmitted category survives.
	resp = postForm(t, app, fmt.Sprintf("/admin/products/%d", id), token,
		productForm("Gadget v2", "35.00", "3"), nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	listing = getListing(t, app, "/admin/products/0", token)
	assert.Len(t, listing.Products, 1)
	updated := listing.Products[0]
	assert.Equal(t, "Gadget v2", updated.Name)
	assert.Equal(t, 35.00, updated.Price)
	assert.Equal(t, []uint{3}, updated.CategoryIDs())
	assert.Contains(t, listing.Notice, "Product Gadget v2 has been updated")

	// An empty selection empties the set rather than leaving it alone.
	resp = postForm(t, app, fmt.Sprintf("/admin/products/%d", id), token,
		productForm("Gadget v2", "35.00"), nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	listing = getListing(t, app, "/admin/products/0", token)
	assert.Empty(t, listing.Products[0].Categories)
}

func TestUpdateMissingProductIs404(t *testing.T) {
	app, _ := setupApp(t)
	token := login(t, app, "admin@example.com", "password123")

	resp := postForm(t, app, "/admin/products/424242", token, productForm("Nobody", "1.00"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestEditFormPrepopulated(t *testing.T) {
	app, _ := setupApp(t)
	token := login(t, app, "admin@example.com", "password123")

	resp := postForm(t, app, "/admin/products", token, productForm("Lamp", "25.00", "3"), nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	listing := getListing(t, app, "/admin/products/0", token)
	id := listing.Products[0].ID

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/admin/products/%d/edit", id), nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Product models.Product `json:"product"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "Lamp", body.Product.Name)
	assert.Equal(t, []uint{3}, body.Product.CategoryIDs())

	// A missing product is a loud 404.
	req = httptest.NewRequest(http.MethodGet, "/admin/products/424242/edit", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteProduct(t *testing.T) {
	app, _ := setupApp(t)
	token := login(t, app, "admin@example.com", "password123")

	resp := postForm(t, app, "/admin/products", token, productForm("Doomed", "2.00"), nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	listing := getListing(t, app, "/admin/products/0", token)
	id := listing.Products[0].ID

	resp = postForm(t, app, fmt.Sprintf("/admin/products/%d/delete", id), token, url.Values{}, nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	listing = getListing(t, app, "/admin/products/0", token)
	assert.Empty(t, listing.Products)
	assert.Contains(t, listing.Notice, "Product has been deleted")

	// A second delete of the same id fails loudly.
	resp = postForm(t, app, fmt.Sprintf("/admin/products/%d/delete", id), token, url.Values{}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestImageUpload(t *testing.T) {
	app, generator := setupApp(t)
	token := login(t, app, "admin@example.com", "password123")

	// A real image upload produces both derivatives.
	resp := postForm(t, app, "/admin/products", token, productForm("Poster", "12.00", "1"), &filePart{
		fieldName:   "upload",
		fileName:    "poster.png",
		contentType: "image/png",
		content:     pngBytes(t),
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	listing := getListing(t, app, "/admin/products/0", token)
	assert.Contains(t, listing.Notice, "and image saved")
	id := listing.Products[0].ID

	_, err := os.Stat(generator.ImagePath(id))
	assert.NoError(t, err)
	_, err = os.Stat(generator.ThumbnailPath(id))
	assert.NoError(t, err)
}

func TestNonImageUploadIsIgnored(t *testing.T) {
	app, generator := setupApp(t)
	token := login(t, app, "admin@example.com", "password123")

	// A text file is treated exactly like no upload at all.
	resp := postForm(t, app, "/admin/products", token, productForm("Plain", "8.00"), &filePart{
		fieldName:   "upload",
		fileName:    "notes.txt",
		contentType: "text/plain",
		content:     []byte("just some text"),
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()

	listing := getListing(t, app, "/admin/products/0", token)
	assert.Contains(t, listing.Notice, "image file missing")
	id := listing.Products[0].ID

	_, err := os.Stat(generator.ImagePath(id))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(generator.ThumbnailPath(id))
	assert.True(t, os.IsNotExist(err))
}

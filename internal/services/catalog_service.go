package services

import (
	"fmt"
	"log"

	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/pkg/rabbitmq"
)

// AllCategories is the reserved category filter meaning "no category
// constraint". It is never a valid category id.
const AllCategories uint = 0

// CatalogService handles the product administration workflow:
// listing with filters, create/update with category reconciliation,
// and delete. Writes publish catalog events on a best-effort basis.
type CatalogService struct {
	productRepo  repositories.ProductRepository
	categoryRepo repositories.CategoryRepository
	mqClient     *rabbitmq.Client // may be nil, events are then skipped
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(productRepo repositories.ProductRepository, categoryRepo repositories.CategoryRepository, mqClient *rabbitmq.Client) *CatalogService {
	return &CatalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		mqClient:     mqClient,
	}
}

// ListProducts returns products for the admin listing. categoryID
// AllCategories (0) lists every product; any other value restricts to
// products associated with that category. The text filter is a
// case-insensitive substring match on the name and applies on both
// paths; the empty string matches everything.
func (s *CatalogService) ListProducts(categoryID uint, filter string) ([]models.Product, error) {
	if categoryID == AllCategories {
		return s.productRepo.GetAll(filter)
	}
	return s.productRepo.GetByCategory(categoryID, filter)
}

// ListCategories returns all categories ordered by name.
func (s *CatalogService) ListCategories() ([]models.Category, error) {
	return s.categoryRepo.GetAll()
}

// GetProduct retrieves a single product by its ID.
func (s *CatalogService) GetProduct(id uint) (*models.Product, error) {
	return s.productRepo.GetByID(id)
}

// ResolveCategories resolves a submitted set of category ids to
// category entities. Duplicates are collapsed; an id with no matching
// category fails the whole operation rather than silently attaching a
// missing reference. An empty set is legal and resolves to no
// categories.
func (s *CatalogService) ResolveCategories(ids []uint) ([]models.Category, error) {
	categories := make([]models.Category, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		category, err := s.categoryRepo.GetByID(id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve category %d: %w", id, err)
		}
		categories = append(categories, *category)
	}
	return categories, nil
}

// CreateProduct persists a new product with the resolved category set.
// Category resolution happens before any write, so an unknown category
// id leaves the store untouched. The row persist and the association
// attach are one atomic unit in the repository.
func (s *CatalogService) CreateProduct(product *models.Product, categoryIDs []uint) error {
	categories, err := s.ResolveCategories(categoryIDs)
	if err != nil {
		return err
	}
	if err := s.productRepo.CreateWithCategories(product, categories); err != nil {
		return err
	}
	s.publish("product.created", product)
	return nil
}

// UpdateProduct overwrites the product's attributes and replaces its
// category set with the submitted one. The id comes from the route,
// never from the form body. Associations not resubmitted are dropped.
func (s *CatalogService) UpdateProduct(id uint, product *models.Product, categoryIDs []uint) error {
	categories, err := s.ResolveCategories(categoryIDs)
	if err != nil {
		return err
	}
	product.ID = id
	if err := s.productRepo.UpdateWithCategories(product, categories); err != nil {
		return err
	}
	s.publish("product.updated", product)
	return nil
}

// DeleteProduct deletes a product unconditionally; a missing id
// surfaces as ErrNotFound. Derived image files are left on disk, see
// the design notes.
func (s *CatalogService) DeleteProduct(id uint) error {
	if err := s.productRepo.Delete(id); err != nil {
		return err
	}
	s.publish("product.deleted", &models.Product{ID: id})
	return nil
}

// publish sends a catalog event. Publish failures are logged and never
// abort the write they follow.
func (s *CatalogService) publish(action string, product *models.Product) {
	if s.mqClient == nil {
		return
	}
	event := rabbitmq.Event{
		Action:    action,
		ProductID: product.ID,
		Name:      product.Name,
	}
	if err := s.mqClient.PublishProductEvent(event); err != nil {
		log.Printf("Warning: failed to publish %s event for product %d: %v", action, product.ID, err)
	}
}

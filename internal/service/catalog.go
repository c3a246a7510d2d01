package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/fasogadget/internal/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ProductRepository defines the persistence operations on the products
// collection.
type ProductRepository interface {
	// List returns every product.
	List(ctx context.Context) ([]models.Product, error)
	// Get returns one product or models.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Product, error)
	// Insert stores p and returns its store-assigned id.
	Insert(ctx context.Context, p models.Product) (string, error)
	// Update overwrites the fields set in patch, or returns models.ErrNotFound.
	Update(ctx context.Context, id string, patch models.ProductPatch) error
	// Delete removes one product or returns models.ErrNotFound.
	Delete(ctx context.Context, id string) error
	// Count returns the number of products.
	Count(ctx context.Context) (int64, error)
}

// ProductInput is the data required to create a product.
type ProductInput struct {
	Name     string          `validate:"required,max=200"`
	Category models.Category `validate:"required,category"`
	Price    int64           `validate:"gte=0"`
	Image    string          `validate:"max=2048"`
	Badge    string          `validate:"max=100"`
}

// DefaultProducts seeds an empty catalog.
var DefaultProducts = []models.Product{
	{Name: "iPhone 15 Pro Max", Category: models.Smartphone, Price: 850000, Badge: "Nouveau"},
	{Name: "Samsung Galaxy S24 Ultra", Category: models.Smartphone, Price: 750000, Badge: "Populaire"},
	{Name: "Xiaomi 14 Pro", Category: models.Smartphone, Price: 450000},
	{Name: "AirPods Pro 2", Category: models.Audio, Price: 150000, Badge: "Best-seller"},
	{Name: "Samsung Galaxy Buds 2 Pro", Category: models.Audio, Price: 95000},
	{Name: "JBL Flip 6", Category: models.Audio, Price: 85000},
	{Name: "Apple Watch Series 9", Category: models.Watch, Price: 350000, Badge: "Nouveau"},
	{Name: "Samsung Galaxy Watch 6", Category: models.Watch, Price: 250000},
	{Name: "Coque iPhone Protection", Category: models.Accessory, Price: 15000},
	{Name: "Chargeur Rapide 65W", Category: models.Accessory, Price: 25000, Badge: "Promo"},
	{Name: "Power Bank 20000mAh", Category: models.Accessory, Price: 35000},
	{Name: "Câble USB-C Tressé", Category: models.Accessory, Price: 8000},
}

// CatalogService implements product listing and administration.
type CatalogService struct {
	repo     ProductRepository
	validate *validator.Validate
	log      *zap.Logger
}

// NewCatalogService constructs a CatalogService. log may be nil.
func NewCatalogService(repo ProductRepository, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{repo: repo, validate: newValidator(), log: log}
}

// List returns every product. The result is never nil.
func (s *CatalogService) List(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// Get returns a single product.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.Get(ctx, id)
}

// Add validates in and stores it as a new product.
func (s *CatalogService) Add(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, invalid(err)
	}
	p := models.Product{
		Name:     in.Name,
		Category: in.Category,
		Price:    in.Price,
		Image:    in.Image,
		Badge:    in.Badge,
	}
	id, err := s.repo.Insert(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id
	s.log.Info("product added", zap.String("id", id), zap.String("name", p.Name))
	return &p, nil
}

// Edit applies patch to the product id. Fields left nil are unchanged.
func (s *CatalogService) Edit(ctx context.Context, id string, patch models.ProductPatch) error {
	if id == "" {
		return fmt.Errorf("%w: product id is required", models.ErrMalformedRequest)
	}
	if patch.Category != nil && !patch.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", models.ErrMalformedRequest, *patch.Category)
	}
	if patch.Price != nil && *patch.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", models.ErrMalformedRequest)
	}
	if patch.Name != nil && *patch.Name == "" {
		return fmt.Errorf("%w: name must not be empty", models.ErrMalformedRequest)
	}
	if patch.Empty() {
		_, err := s.repo.Get(ctx, id)
		return err
	}
	if err := s.repo.Update(ctx, id, patch); err != nil {
		return err
	}
	s.log.Info("product updated", zap.String("id", id))
	return nil
}

// Delete removes the product id.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: product id is required", models.ErrMalformedRequest)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("product deleted", zap.String("id", id))
	return nil
}

// SeedDefaults inserts DefaultProducts when the catalog is empty and returns
// how many products were created.
func (s *CatalogService) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	for i, p := range DefaultProducts {
		if _, err := s.repo.Insert(ctx, p); err != nil {
			return i, err
		}
	}
	s.log.Info("default products created", zap.Int("count", len(DefaultProducts)))
	return len(DefaultProducts), nil
}

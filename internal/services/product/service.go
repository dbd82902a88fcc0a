package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant-system/internal/events"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/repository"
)

var changedFamilies = []models.MetricFamily{models.FamilyProducts, models.FamilyReports}

// Service manages the menu. Orders snapshot product data, so edits here never
// change existing orders.
type Service struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	notifier   events.Notifier
	logger     *logger.Logger
}

func NewService(products repository.ProductRepository, categories repository.CategoryRepository, notifier events.Notifier, log *logger.Logger) *Service {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &Service{products: products, categories: categories, notifier: notifier, logger: log}
}

func (s *Service) Create(ctx context.Context, req *models.CreateProductRequest, requestID string) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrInvalidInput)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", models.ErrInvalidInput)
	}
	if err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		Price:       req.Price,
		IsActive:    true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.Info("product_created", "Product created", requestID, map[string]interface{}{
		"product_id":  product.ID,
		"name":        product.Name,
		"category_id": product.CategoryID,
		"price":       product.Price,
	})
	s.emit(ctx, requestID, product.ID)
	return product, nil
}

func (s *Service) List(ctx context.Context) ([]models.Product, error) {
	return s.products.FindAll(ctx)
}

func (s *Service) ListActive(ctx context.Context) ([]models.Product, error) {
	return s.products.FindActive(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	return s.products.FindByID(ctx, id)
}

// SearchByName matches a case-insensitive substring of the product name
func (s *Service) SearchByName(ctx context.Context, name string) ([]models.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrInvalidInput)
	}
	return s.products.FindByName(ctx, name)
}

func (s *Service) ListByCategory(ctx context.Context, categoryID string) ([]models.Product, error) {
	if err := s.requireCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.products.FindByCategoryID(ctx, categoryID)
}

// Update applies the non-nil fields of req
func (s *Service) Update(ctx context.Context, id string, req *models.UpdateProductRequest, requestID string) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", models.ErrInvalidInput)
		}
		product.Name = name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.ImageURL != nil {
		product.ImageURL = *req.ImageURL
	}
	if req.CategoryID != nil && *req.CategoryID != product.CategoryID {
		if err := s.requireCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = *req.CategoryID
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, fmt.Errorf("%w: price must not be negative", models.ErrInvalidInput)
		}
		product.Price = *req.Price
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.logger.Info("product_updated", "Product updated", requestID, map[string]interface{}{
		"product_id": product.ID,
		"price":      product.Price,
		"is_active":  product.IsActive,
	})
	s.emit(ctx, requestID, product.ID)
	return product, nil
}

func (s *Service) Delete(ctx context.Context, id, requestID string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product_deleted", "Product deleted", requestID, map[string]interface{}{
		"product_id": id,
	})
	s.emit(ctx, requestID, id)
	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.FindAll(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return s.categories.FindByID(ctx, id)
}

func (s *Service) requireCategory(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: categoryId is required", models.ErrInvalidInput)
	}
	_, err := s.categories.FindByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: category %s", models.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("find category: %w", err)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, requestID, productID string) {
	event := models.NewEntityEvent(models.EventProductChanged, productID, changedFamilies...)
	event.RequestID = requestID
	event.Timestamp = time.Now().UTC()
	s.notifier.Notify(ctx, event)
}

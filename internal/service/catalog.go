package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"archowum/internal/model"
	"archowum/internal/repository"
	"archowum/internal/storage"
)

// CatalogService manages products and categories. Deleting either cascades to
// dependent documents, so the delete operations collect the documents' stored
// file keys up front and remove the objects after the rows are gone — the row
// cascade is transactional, the object deletes are best-effort.
type CatalogService interface {
	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id int64) error

	CreateCategory(ctx context.Context, c *model.Category) (*model.Category, error)
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, c *model.Category) error
	DeleteCategory(ctx context.Context, id int64) error
}

type catalogService struct {
	store      storage.Storage
	docs       repository.DocumentRepository
	products   repository.ProductRepository
	categories repository.CategoryRepository
}

// NewCatalogService constructs the product/category manager.
func NewCatalogService(
	store storage.Storage,
	docs repository.DocumentRepository,
	products repository.ProductRepository,
	categories repository.CategoryRepository,
) CatalogService {
	return &catalogService{
		store:      store,
		docs:       docs,
		products:   products,
		categories: categories,
	}
}

func (s *catalogService) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	return s.products.Create(ctx, p)
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.products.List(ctx)
}

func (s *catalogService) UpdateProduct(ctx context.Context, p *model.Product) error {
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return err
	}
	keys, err := s.docs.FileKeysByProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("collect file keys: %w", err)
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.deleteObjects(ctx, keys)
	return nil
}

func (s *catalogService) CreateCategory(ctx context.Context, c *model.Category) (*model.Category, error) {
	return s.categories.Create(ctx, c)
}

func (s *catalogService) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categories.List(ctx)
}

func (s *catalogService) UpdateCategory(ctx context.Context, c *model.Category) error {
	if err := s.categories.Update(ctx, c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	keys, err := s.docs.FileKeysByCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("collect file keys: %w", err)
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.deleteObjects(ctx, keys)
	return nil
}

// deleteObjects removes orphaned storage objects after a cascading row delete.
// Object stores are not transactional with the database, so failures here leave
// at worst an unreferenced object.
func (s *catalogService) deleteObjects(ctx context.Context, keys []string) {
	for _, k := range keys {
		_ = s.store.Delete(ctx, k)
	}
}

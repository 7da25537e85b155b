package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"archowum/internal/model"
	repoMocks "archowum/internal/repository/mocks"
	storeMocks "archowum/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCatalogService_DeleteProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("cascading delete cleans stored files", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		mProducts := new(repoMocks.MockProductRepository)
		mCategories := new(repoMocks.MockCategoryRepository)
		svc := NewCatalogService(mStore, mDocs, mProducts, mCategories)

		mProducts.On("FindByID", ctx, int64(1)).Return(&model.Product{ID: 1}, nil)
		mDocs.On("FileKeysByProduct", ctx, int64(1)).Return([]string{"a.pdf", "b.pdf"}, nil)
		mProducts.On("Delete", ctx, int64(1)).Return(nil)
		mStore.On("Delete", ctx, "a.pdf").Return(nil)
		mStore.On("Delete", ctx, "b.pdf").Return(errors.New("object store fail"))

		// The second object delete fails; the row delete already succeeded so the
		// operation still reports success.
		assert.NoError(t, svc.DeleteProduct(ctx, 1))

		mStore.AssertExpectations(t)
		mDocs.AssertExpectations(t)
		mProducts.AssertExpectations(t)
	})

	t.Run("missing product", func(t *testing.T) {
		mProducts := new(repoMocks.MockProductRepository)
		svc := NewCatalogService(nil, nil, mProducts, nil)

		mProducts.On("FindByID", ctx, int64(404)).Return(nil, sql.ErrNoRows)

		assert.ErrorIs(t, svc.DeleteProduct(ctx, 404), ErrNotFound)
		mProducts.AssertExpectations(t)
	})

	t.Run("row delete error keeps files", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mDocs := new(repoMocks.MockDocumentRepository)
		mProducts := new(repoMocks.MockProductRepository)
		svc := NewCatalogService(mStore, mDocs, mProducts, nil)

		mProducts.On("FindByID", ctx, int64(1)).Return(&model.Product{ID: 1}, nil)
		mDocs.On("FileKeysByProduct", ctx, int64(1)).Return([]string{"a.pdf"}, nil)
		mProducts.On("Delete", ctx, int64(1)).Return(errors.New("db fail"))

		assert.Error(t, svc.DeleteProduct(ctx, 1))
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mProducts.AssertExpectations(t)
	})
}

func TestCatalogService_DeleteCategory(t *testing.T) {
	ctx := context.Background()

	mStore := new(storeMocks.MockStorage)
	mDocs := new(repoMocks.MockDocumentRepository)
	mCategories := new(repoMocks.MockCategoryRepository)
	svc := NewCatalogService(mStore, mDocs, nil, mCategories)

	mCategories.On("FindByID", ctx, int64(2)).Return(&model.Category{ID: 2}, nil)
	mDocs.On("FileKeysByCategory", ctx, int64(2)).Return([]string{"c.pdf"}, nil)
	mCategories.On("Delete", ctx, int64(2)).Return(nil)
	mStore.On("Delete", ctx, "c.pdf").Return(nil)

	assert.NoError(t, svc.DeleteCategory(ctx, 2))
	mStore.AssertExpectations(t)
	mDocs.AssertExpectations(t)
	mCategories.AssertExpectations(t)
}

func TestCatalogService_UpdateProduct(t *testing.T) {
	ctx := context.Background()
	mProducts := new(repoMocks.MockProductRepository)
	svc := NewCatalogService(nil, nil, mProducts, nil)

	mProducts.On("Update", ctx, mock.Anything).Return(sql.ErrNoRows)

	err := svc.UpdateProduct(ctx, &model.Product{ID: 404, Name: "X", Model: "Y"})
	assert.ErrorIs(t, err, ErrNotFound)
	mProducts.AssertExpectations(t)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
)

// ProductUpdate carries the optional fields of a partial product update.
// Nil fields keep their current value.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int
}

type ProductService struct {
	repo   repository.Store
	cache  cache.ProductCache
	group  singleflight.Group
	logger *zap.Logger
}

func NewProductService(repo repository.Store, productCache cache.ProductCache, logger *zap.Logger) *ProductService {
	return &ProductService{repo: repo, cache: productCache, logger: logger}
}

func (s *ProductService) List(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	products, err := s.repo.ListProducts(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Get reads through the cache. Concurrent misses for the same product collapse
// into a single repository read.
func (s *ProductService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	cached, err := s.cache.Get(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("product cache read failed", zap.Int64("product_id", id), zap.Error(err))
	}

	v, err, _ := s.group.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		product, err := s.repo.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if cerr := s.cache.Set(ctx, product); cerr != nil {
			s.logger.Warn("product cache fill failed", zap.Int64("product_id", id), zap.Error(cerr))
		}
		return product, nil
	})
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, &domain.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}

	return v.(*domain.Product), nil
}

func (s *ProductService) Create(ctx context.Context, product *domain.Product) error {
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (s *ProductService) Update(ctx context.Context, id int64, update ProductUpdate) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, &domain.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}

	if update.Name != nil {
		product.Name = *update.Name
	}
	if update.Description != nil {
		product.Description = *update.Description
	}
	if update.Price != nil {
		product.Price = *update.Price
	}
	if update.Stock != nil {
		product.Stock = *update.Stock
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, &domain.ProductNotFoundError{ProductID: id}
		}
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}

	s.invalidate(ctx, id)
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, &domain.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, &domain.ProductNotFoundError{ProductID: id}
		}
		// ErrProductInUse surfaces as-is for the HTTP layer to map.
		return nil, err
	}

	s.invalidate(ctx, id)
	return product, nil
}

func (s *ProductService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to invalidate product cache", zap.Int64("product_id", id), zap.Error(err))
	}
}

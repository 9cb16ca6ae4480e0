package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
)

// ProductCache fronts product reads. A miss or any cache failure falls back
// to the repository, never to a request failure.
type ProductCache interface {
	Get(ctx context.Context, productID int64) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, productID int64) error
}

var ErrCacheMiss = errors.New("cache miss")

// Noop is used when no Redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, int64) (*domain.Product, error) { return nil, ErrCacheMiss }
func (Noop) Set(context.Context, *domain.Product) error          { return nil }
func (Noop) Delete(context.Context, int64) error                 { return nil }

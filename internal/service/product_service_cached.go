package service

import (
	"context"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/djdiptayan1/HRone/pkg/mylogger"
	"go.uber.org/zap"
)

type cachedProductService struct {
	next   ProductService
	cache  *ProductCache
	logger *zap.Logger
}

func NewCachedProductService(next ProductService, cache *ProductCache, logger *zap.Logger) ProductService {
	return &cachedProductService{
		next:   next,
		cache:  cache,
		logger: logger,
	}
}

func (s *cachedProductService) Create(ctx context.Context, input domain.ProductInput) (string, error) {
	return s.next.Create(ctx, input)
}

func (s *cachedProductService) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	if product, ok := s.cache.Get(ctx, id); ok {
		return product, nil
	}

	product, err := s.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, product)

	return product, nil
}

func (s *cachedProductService) List(ctx context.Context, filter domain.ProductFilter, limit, offset int) ([]domain.ProductSummary, domain.Page, error) {
	return s.next.List(ctx, filter, limit, offset)
}

func (s *cachedProductService) Replace(ctx context.Context, id string, input domain.ProductInput) (*domain.Product, error) {
	product, err := s.next.Replace(ctx, id, input)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)

	return product, nil
}

func (s *cachedProductService) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.next.Delete(ctx, id)
	if err != nil {
		return false, err
	}

	if deleted {
		s.invalidate(ctx, id)
	}

	return deleted, nil
}

func (s *cachedProductService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		mylogger.Warn(ctx, s.logger, "Failed to invalidate product cache", zap.String("id", id), zap.Error(err))
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/djdiptayan1/HRone/internal/repository"
	generalDomain "github.com/djdiptayan1/HRone/pkg/domain"
	"github.com/djdiptayan1/HRone/pkg/mylogger"
	outboxDomain "github.com/djdiptayan1/HRone/pkg/outbox/domain"
	"github.com/djdiptayan1/HRone/pkg/outbox/worker"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const productAggregate = "Product"

type ProductService interface {
	Create(ctx context.Context, input domain.ProductInput) (string, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter, limit, offset int) ([]domain.ProductSummary, domain.Page, error)
	Replace(ctx context.Context, id string, input domain.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type productService struct {
	productRepo repository.ProductRepository
	outboxRepo  worker.OutboxRepository
	pool        *pgxpool.Pool
	logger      *zap.Logger
	topic       string
	tracer      trace.Tracer
}

func NewProductService(
	productRepo repository.ProductRepository,
	outboxRepo worker.OutboxRepository,
	pool *pgxpool.Pool,
	logger *zap.Logger,
	topic string,
) ProductService {
	return &productService{
		productRepo: productRepo,
		outboxRepo:  outboxRepo,
		pool:        pool,
		logger:      logger,
		topic:       topic,
		tracer:      otel.Tracer("product_service"),
	}
}

func (s *productService) Create(ctx context.Context, input domain.ProductInput) (string, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Create")
	defer span.End()

	if err := validateProductInput(input); err != nil {
		return "", err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", domain.Internal("Failed to create product", err)
	}
	defer s.rollback(ctx, tx)

	product := &domain.Product{
		Name:  input.Name,
		Price: input.Price,
		Stock: input.Stock,
	}

	if err := s.productRepo.Create(ctx, tx, product); err != nil {
		span.RecordError(err)
		return "", domain.Internal("Failed to create product", err)
	}

	if err := s.emitUpserted(ctx, tx, product); err != nil {
		return "", domain.Internal("Failed to create product", err)
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return "", domain.Internal("Failed to create product", err)
	}

	span.SetAttributes(attribute.String("id", product.ID))

	mylogger.Info(ctx, s.logger, "Product created", zap.String("id", product.ID), zap.String("name", product.Name))

	return product.ID, nil
}

func (s *productService) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.FindByID")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	if err := domain.ValidateID("product", id); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, domain.NotFound("Product with ID %s not found", id)
		}

		span.RecordError(err)

		return nil, domain.Internal("Failed to get product", err)
	}

	return product, nil
}

func (s *productService) List(ctx context.Context, filter domain.ProductFilter, limit, offset int) ([]domain.ProductSummary, domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.List")
	defer span.End()

	if err := domain.ValidatePaging(limit, offset); err != nil {
		return nil, domain.Page{}, err
	}

	products, total, err := s.productRepo.List(ctx, filter, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, domain.Page{}, domain.Internal("Failed to list products", err)
	}

	return products, domain.NewPage(limit, offset, total), nil
}

// Replace overwrites name, price and stock. Orders already placed keep
// whatever they reserved.
func (s *productService) Replace(ctx context.Context, id string, input domain.ProductInput) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Replace")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	if domain.ValidateID("product", id) != nil {
		return nil, domain.NotFound("Product with ID %s not found", id)
	}

	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.Internal("Failed to update product", err)
	}
	defer s.rollback(ctx, tx)

	product := &domain.Product{
		ID:    id,
		Name:  input.Name,
		Price: input.Price,
		Stock: input.Stock,
	}

	if err := s.productRepo.Replace(ctx, tx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, domain.NotFound("Product with ID %s not found", id)
		}

		span.RecordError(err)

		return nil, domain.Internal("Failed to update product", err)
	}

	if err := s.emitUpserted(ctx, tx, product); err != nil {
		return nil, domain.Internal("Failed to update product", err)
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return nil, domain.Internal("Failed to update product", err)
	}

	return product, nil
}

// Delete reports false without error when the product does not exist.
func (s *productService) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	if err := domain.ValidateID("product", id); err != nil {
		return false, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, domain.Internal("Failed to delete product", err)
	}
	defer s.rollback(ctx, tx)

	if err := s.productRepo.DeleteByID(ctx, tx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return false, nil
		}

		span.RecordError(err)

		return false, domain.Internal("Failed to delete product", err)
	}

	if err := s.emitEvent(ctx, tx, id, generalDomain.EventProductDeleted, &generalDomain.ProductDeletedEvent{
		ProductID: id,
		DeletedAt: time.Now().UTC(),
	}); err != nil {
		return false, domain.Internal("Failed to delete product", err)
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return false, domain.Internal("Failed to delete product", err)
	}

	return true, nil
}

func (s *productService) emitUpserted(ctx context.Context, tx pgx.Tx, product *domain.Product) error {
	return s.emitEvent(ctx, tx, product.ID, generalDomain.EventProductUpserted, &generalDomain.ProductUpsertedEvent{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		UpdatedAt: product.UpdatedAt,
	})
}

func (s *productService) emitEvent(ctx context.Context, tx pgx.Tx, productID, eventType string, payload any) error {
	event, err := outboxDomain.NewEvent(s.topic, productAggregate, productID, eventType, payload)
	if err != nil {
		return err
	}

	if err := s.outboxRepo.SaveOutboxEvent(ctx, tx, event); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to save outbox event", zap.String("event", eventType), zap.Error(err))

		return fmt.Errorf("failed to save outbox event: %w", err)
	}

	return nil
}

func (s *productService) rollback(ctx context.Context, tx pgx.Tx) {
	shutdownCtx := context.WithoutCancel(ctx)

	if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		mylogger.Warn(shutdownCtx, s.logger, "Error rolling back transaction", zap.Error(err))
	}
}

func validateProductInput(input domain.ProductInput) error {
	if input.Name == "" {
		return domain.InvalidArgument("name is required")
	}
	if input.Price < 0 {
		return domain.InvalidArgument("price must not be negative")
	}

	if input.Stock.IsFlat() {
		if input.Stock.FlatQuantity() < 0 {
			return domain.InvalidArgument("quantity must not be negative")
		}

		return nil
	}

	for i, b := range input.Stock.Buckets() {
		if b.Size == "" {
			return domain.InvalidArgument("sizes[%d].size is required", i)
		}
		if b.Quantity < 0 {
			return domain.InvalidArgument("sizes[%d].quantity must not be negative", i)
		}
	}

	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/djdiptayan1/HRone/internal/metrics"
	"github.com/djdiptayan1/HRone/internal/repository"
	generalDomain "github.com/djdiptayan1/HRone/pkg/domain"
	"github.com/djdiptayan1/HRone/pkg/mylogger"
	outboxDomain "github.com/djdiptayan1/HRone/pkg/outbox/domain"
	"github.com/djdiptayan1/HRone/pkg/outbox/worker"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const orderAggregate = "Order"

type OrderService interface {
	PlaceOrder(ctx context.Context, userID string, items []domain.OrderItem) (string, error)
	ListOrdersForUser(ctx context.Context, userID string, limit, offset int) ([]domain.OrderSummary, domain.Page, error)
	ReplaceOrder(ctx context.Context, orderID, userID string, items []domain.OrderItem) error
	DeleteOrder(ctx context.Context, orderID string) error
}

type orderService struct {
	pool        *pgxpool.Pool
	logger      *zap.Logger
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	outboxRepo  worker.OutboxRepository
	metrics     *metrics.Metrics
	topic       string
	tracer      trace.Tracer
}

func NewOrderService(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	outboxRepo worker.OutboxRepository,
	m *metrics.Metrics,
	topic string,
) OrderService {
	return &orderService{
		pool:        pool,
		logger:      logger,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		outboxRepo:  outboxRepo,
		metrics:     m,
		topic:       topic,
		tracer:      otel.Tracer("order_service"),
	}
}

// PlaceOrder validates every item against current stock, then reserves stock
// and persists the order in one transaction. Nothing is written unless the
// whole order commits.
func (s *orderService) PlaceOrder(ctx context.Context, userID string, items []domain.OrderItem) (string, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.PlaceOrder")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("items_count", len(items)),
	)

	orderID, err := s.placeOrder(ctx, userID, items)
	if err != nil {
		span.RecordError(err)
		s.metrics.OrderFailed(domain.KindOf(err))

		mylogger.Warn(
			ctx,
			s.logger,
			"Order placement rejected",
			zap.String("user_id", userID),
			zap.String("kind", domain.KindOf(err).String()),
			zap.Error(err),
		)

		return "", err
	}

	s.metrics.OrderPlaced()

	mylogger.Info(ctx, s.logger, "Order placed", zap.String("order_id", orderID), zap.String("user_id", userID))

	return orderID, nil
}

func (s *orderService) placeOrder(ctx context.Context, userID string, items []domain.OrderItem) (string, error) {
	order := &domain.Order{UserID: userID, Items: items}

	if err := s.validateItems(ctx, order); err != nil {
		return "", err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", domain.Internal("Failed to create order", err)
	}
	defer s.rollback(ctx, tx)

	reservations, err := s.reserveStock(ctx, tx, order)
	if err != nil {
		return "", classifyTxError(err)
	}

	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return "", classifyTxError(err)
	}

	lines := make([]generalDomain.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, generalDomain.OrderLine{ProductID: item.ProductID, Qty: item.Qty})
	}

	if err := s.emitEvent(ctx, tx, order.ID, generalDomain.EventOrderPlaced, &generalDomain.OrderPlacedEvent{
		OrderID:      order.ID,
		UserID:       order.UserID,
		Items:        lines,
		Reservations: reservations,
		PlacedAt:     order.CreatedAt,
	}); err != nil {
		return "", classifyTxError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return "", classifyTxError(err)
	}

	return order.ID, nil
}

// validateItems checks every item before any mutation: id format and
// quantity, product existence, then availability against a fresh read.
func (s *orderService) validateItems(ctx context.Context, order *domain.Order) error {
	for _, item := range order.Items {
		if err := domain.ValidateID("product", item.ProductID); err != nil {
			return err
		}
		if item.Qty <= 0 {
			return domain.InvalidArgument("qty must be greater than 0 for product %s", item.ProductID)
		}
	}

	if len(order.Items) == 0 {
		return nil
	}

	products, err := s.productRepo.GetByIDs(ctx, order.ProductIDs())
	if err != nil {
		return domain.Internal("Failed to create order", err)
	}

	for _, item := range order.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return domain.NotFound("Product with ID %s not found", item.ProductID)
		}

		if available := product.Stock.Available(); item.Qty > available {
			return domain.InsufficientStock(product.Name, available, item.Qty)
		}
	}

	return nil
}

// reserveStock locks every referenced product in id order, then re-reads each
// item's product inside the transaction and takes its quantity bucket by
// bucket.
func (s *orderService) reserveStock(ctx context.Context, tx pgx.Tx, order *domain.Order) ([]generalDomain.StockReservation, error) {
	ids := order.ProductIDs()
	slices.Sort(ids)

	locked, err := s.productRepo.LockForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	if len(locked) != len(ids) {
		for _, id := range ids {
			if !slices.Contains(locked, id) {
				return nil, domain.NotFound("Product with ID %s not found", id)
			}
		}
	}

	reservations := make([]generalDomain.StockReservation, 0, len(order.Items))
	for _, item := range order.Items {
		product, err := s.productRepo.GetForUpdate(ctx, tx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, domain.NotFound("Product with ID %s not found", item.ProductID)
			}

			return nil, err
		}

		plan, ok := product.Stock.PlanDeduction(item.Qty)
		if !ok {
			return nil, domain.InsufficientStock(product.Name, product.Stock.Available(), item.Qty)
		}

		for _, d := range plan {
			if product.Stock.IsFlat() {
				err = s.productRepo.DecrementFlat(ctx, tx, product.ID, d.Quantity)
			} else {
				err = s.productRepo.DecrementBucket(ctx, tx, product.ID, d.Position, d.Quantity)
			}
			if err != nil {
				return nil, err
			}

			reservations = append(reservations, generalDomain.StockReservation{
				ProductID: product.ID,
				Position:  d.Position,
				Size:      d.Size,
				Quantity:  d.Quantity,
			})
		}
	}

	return reservations, nil
}

func (s *orderService) ListOrdersForUser(ctx context.Context, userID string, limit, offset int) ([]domain.OrderSummary, domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrdersForUser")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	if err := domain.ValidatePaging(limit, offset); err != nil {
		return nil, domain.Page{}, err
	}

	orders, total, err := s.orderRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, domain.Page{}, domain.Internal("Failed to list orders", err)
	}

	seen := make(map[string]struct{})
	var productIDs []string
	for i := range orders {
		for _, id := range orders[i].ProductIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			productIDs = append(productIDs, id)
		}
	}

	products, err := s.productRepo.GetSummaries(ctx, productIDs)
	if err != nil {
		span.RecordError(err)
		return nil, domain.Page{}, domain.Internal("Failed to list orders", err)
	}

	summaries := make([]domain.OrderSummary, 0, len(orders))
	for i := range orders {
		summaries = append(summaries, orders[i].Summarize(products))
	}

	return summaries, domain.NewPage(limit, offset, total), nil
}

// ReplaceOrder overwrites the order's user and items. Stock is not
// re-checked.
func (s *orderService) ReplaceOrder(ctx context.Context, orderID, userID string, items []domain.OrderItem) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.ReplaceOrder")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	if domain.ValidateID("order", orderID) != nil {
		return domain.NotFound("Order not found")
	}

	for _, item := range items {
		if err := domain.ValidateID("product", item.ProductID); err != nil {
			return err
		}
		if item.Qty <= 0 {
			return domain.InvalidArgument("qty must be greater than 0 for product %s", item.ProductID)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Internal("Failed to update order", err)
	}
	defer s.rollback(ctx, tx)

	order := &domain.Order{ID: orderID, UserID: userID, Items: items}
	if err := s.orderRepo.Replace(ctx, tx, order); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return domain.NotFound("Order not found")
		}

		span.RecordError(err)

		return domain.Internal("Failed to update order", err)
	}

	lines := make([]generalDomain.OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, generalDomain.OrderLine{ProductID: item.ProductID, Qty: item.Qty})
	}

	if err := s.emitEvent(ctx, tx, order.ID, generalDomain.EventOrderUpdated, &generalDomain.OrderUpdatedEvent{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Items:     lines,
		UpdatedAt: order.UpdatedAt,
	}); err != nil {
		return domain.Internal("Failed to update order", err)
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return domain.Internal("Failed to update order", err)
	}

	return nil
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID string) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.DeleteOrder")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	if domain.ValidateID("order", orderID) != nil {
		return domain.NotFound("Order not found")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Internal("Failed to delete order", err)
	}
	defer s.rollback(ctx, tx)

	if err := s.orderRepo.DeleteByID(ctx, tx, orderID); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return domain.NotFound("Order not found")
		}

		span.RecordError(err)

		return domain.Internal("Failed to delete order", err)
	}

	if err := s.emitEvent(ctx, tx, orderID, generalDomain.EventOrderDeleted, &generalDomain.OrderDeletedEvent{
		OrderID:   orderID,
		DeletedAt: time.Now().UTC(),
	}); err != nil {
		return domain.Internal("Failed to delete order", err)
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return domain.Internal("Failed to delete order", err)
	}

	return nil
}

func (s *orderService) emitEvent(ctx context.Context, tx pgx.Tx, orderID, eventType string, payload any) error {
	event, err := outboxDomain.NewEvent(s.topic, orderAggregate, orderID, eventType, payload)
	if err != nil {
		return err
	}

	if err := s.outboxRepo.SaveOutboxEvent(ctx, tx, event); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to save outbox event", zap.String("event", eventType), zap.Error(err))

		return fmt.Errorf("failed to save outbox event: %w", err)
	}

	return nil
}

func (s *orderService) rollback(ctx context.Context, tx pgx.Tx) {
	shutdownCtx := context.WithoutCancel(ctx)

	if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		mylogger.Warn(shutdownCtx, s.logger, "Error rolling back transaction", zap.Error(err))
	}
}

// Postgres codes that mean the transaction lost a race and may be retried by
// the caller.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

func classifyTxError(err error) error {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}

	if errors.Is(err, repository.ErrStockChanged) {
		return domain.Conflict("Stock changed while the order was being placed, please retry", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return domain.Conflict("Order conflicted with a concurrent update, please retry", err)
		}
	}

	return domain.Internal("Failed to create order", err)
}

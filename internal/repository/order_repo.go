package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/djdiptayan1/HRone/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, int64, error)
	Replace(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	DeleteByID(ctx context.Context, tx pgx.Tx, id string) error
}

type orderRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/order_repo"),
	}
}

func (r *orderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	order.ID = domain.NewID()

	span.SetAttributes(
		attribute.String("order_id", order.ID),
		attribute.String("user_id", order.UserID),
		attribute.Int("items_count", len(order.Items)),
	)

	query := `
		INSERT INTO orders (id, user_id)
		VALUES ($1, $2)
		RETURNING created_at, updated_at;
	`

	if err := tx.QueryRow(ctx, query, order.ID, order.UserID).Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to insert order", zap.String("user_id", order.UserID), zap.Error(err))

		return fmt.Errorf("failed to insert order: %w", err)
	}

	if err := r.insertItems(ctx, tx, order); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", id))

	var order domain.Order
	err := r.pool.QueryRow(
		ctx,
		`SELECT id, user_id, created_at, updated_at FROM orders WHERE id = $1`,
		id,
	).Scan(&order.ID, &order.UserID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Error get order by id", zap.String("order_id", id), zap.Error(err))

		return nil, fmt.Errorf("error getting order: %w", err)
	}

	items, err := r.loadItems(ctx, []string{id})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	order.Items = items[id]
	if order.Items == nil {
		order.Items = []domain.OrderItem{}
	}

	return &order, nil
}

// ListByUser returns one page of the user's orders ordered by id, with their
// items loaded in a single batched query.
func (r *orderRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByUser")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	var totalCount int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&totalCount); err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to count orders", zap.String("user_id", userID), zap.Error(err))

		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `
		SELECT id, user_id, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to select orders", zap.String("user_id", userID), zap.Error(err))

		return nil, 0, fmt.Errorf("failed to select orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	ids := make([]string, 0, limit)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			span.RecordError(err)
			return nil, 0, fmt.Errorf("error scanning order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return orders, totalCount, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}

	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []domain.OrderItem{}
		}
	}

	return orders, totalCount, nil
}

// Replace swaps the user and item list of an existing order. Stock is not
// touched.
func (r *orderRepo) Replace(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Replace")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", order.ID))

	query := `
		UPDATE orders
		SET user_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at;
	`

	if err := tx.QueryRow(ctx, query, order.ID, order.UserID).Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}

		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to replace order", zap.String("order_id", order.ID), zap.Error(err))

		return fmt.Errorf("failed to replace order: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to clear order items: %w", err)
	}

	if err := r.insertItems(ctx, tx, order); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

func (r *orderRepo) DeleteByID(ctx context.Context, tx pgx.Tx, id string) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.DeleteByID")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", id))

	commandTag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to delete order", zap.String("order_id", id), zap.Error(err))

		return fmt.Errorf("failed to delete order: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	query := `
		SELECT order_id, product_id, qty
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		mylogger.Error(ctx, r.logger, "Failed to select order items", zap.Error(err))

		return nil, fmt.Errorf("failed to select order items: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var orderID string
		var item domain.OrderItem

		if err := rows.Scan(&orderID, &item.ProductID, &item.Qty); err != nil {
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}

		result[orderID] = append(result[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *orderRepo) insertItems(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	if len(order.Items) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(order.Items))
	for i, item := range order.Items {
		rows = append(rows, []any{order.ID, i, item.ProductID, item.Qty})
	}

	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"order_items"},
		[]string{"order_id", "position", "product_id", "qty"},
		pgx.CopyFromRows(rows),
	); err != nil {
		mylogger.Error(ctx, r.logger, "Failed to insert order items", zap.String("order_id", order.ID), zap.Error(err))

		return fmt.Errorf("failed to insert order items: %w", err)
	}

	return nil
}

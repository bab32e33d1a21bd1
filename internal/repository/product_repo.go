package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/djdiptayan1/HRone/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ProductRepository interface {
	Create(ctx context.Context, tx pgx.Tx, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	GetSummaries(ctx context.Context, ids []string) (map[string]domain.ProductSummary, error)
	List(ctx context.Context, filter domain.ProductFilter, limit, offset int) ([]domain.ProductSummary, int64, error)
	Replace(ctx context.Context, tx pgx.Tx, product *domain.Product) error
	DeleteByID(ctx context.Context, tx pgx.Tx, id string) error
	LockForUpdate(ctx context.Context, tx pgx.Tx, ids []string) ([]string, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Product, error)
	DecrementBucket(ctx context.Context, tx pgx.Tx, productID string, position, quantity int) error
	DecrementFlat(ctx context.Context, tx pgx.Tx, productID string, quantity int) error
}

type productRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewProductRepository(pool *pgxpool.Pool, logger *zap.Logger) ProductRepository {
	return &productRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/product_repo"),
	}
}

const productColumns = `p.id, p.name, p.price, p.quantity, p.created_at, p.updated_at`

func (r *productRepo) Create(ctx context.Context, tx pgx.Tx, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	product.ID = domain.NewID()

	span.SetAttributes(
		attribute.String("id", product.ID),
		attribute.String("name", product.Name),
	)

	query := `
		INSERT INTO products (id, name, price, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at;
	`

	if err := tx.QueryRow(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Price,
		flatColumn(product.Stock),
	).Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Error creating product", zap.Error(err))

		return fmt.Errorf("error creating product: %w", err)
	}

	if err := r.insertSizes(ctx, tx, product.ID, product.Stock); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	products, err := r.loadProducts(ctx, r.pool, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Error get by id", zap.String("id", id), zap.Error(err))

		return nil, fmt.Errorf("error getting product: %w", err)
	}

	if len(products) == 0 {
		return nil, ErrProductNotFound
	}

	return &products[0], nil
}

// GetByIDs fetches every requested product with its stock in two queries.
// Unknown ids are absent from the result.
func (r *productRepo) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetByIDs")
	defer span.End()

	span.SetAttributes(attribute.Int("ids_count", len(ids)))

	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	products, err := r.loadProducts(ctx, r.pool, `SELECT `+productColumns+` FROM products p WHERE p.id = ANY($1)`, ids)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Error getting products by ids", zap.Int("ids_count", len(ids)), zap.Error(err))

		return nil, fmt.Errorf("error getting products by ids: %w", err)
	}

	for _, p := range products {
		result[p.ID] = p
	}

	return result, nil
}

// GetSummaries resolves ids to name and price with a single query.
func (r *productRepo) GetSummaries(ctx context.Context, ids []string) (map[string]domain.ProductSummary, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetSummaries")
	defer span.End()

	span.SetAttributes(attribute.Int("ids_count", len(ids)))

	result := make(map[string]domain.ProductSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, name, price FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Error getting product summaries", zap.Error(err))

		return nil, fmt.Errorf("error getting product summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.ProductSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error scanning product summary: %w", err)
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *productRepo) List(ctx context.Context, filter domain.ProductFilter, limit, offset int) ([]domain.ProductSummary, int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
		attribute.String("name", filter.Name),
		attribute.String("size", filter.Size),
	)

	var conditions []string
	var args []interface{}
	argId := 1

	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf(`p.name ILIKE $%d ESCAPE '\'`, argId))
		args = append(args, "%"+escapeLike(filter.Name)+"%")
		argId++
	}

	if filter.Size != "" {
		conditions = append(conditions, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM product_sizes s WHERE s.product_id = p.id AND s.size = $%d)`, argId,
		))
		args = append(args, filter.Size)
		argId++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var totalCount int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&totalCount); err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to count products", zap.Error(err))

		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := `SELECT p.id, p.name, p.price FROM products p` + where +
		fmt.Sprintf(" ORDER BY p.id LIMIT $%d OFFSET $%d", argId, argId+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting products",
			zap.String("name", filter.Name),
			zap.String("size", filter.Size),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
			zap.Error(err),
		)

		return nil, 0, fmt.Errorf("error selecting products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.ProductSummary, 0, limit)
	for rows.Next() {
		var p domain.ProductSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			span.RecordError(err)

			mylogger.Error(ctx, r.logger, "Failed to scan rows", zap.Error(err))

			return nil, 0, fmt.Errorf("error scanning rows: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	span.SetAttributes(attribute.Int64("total", totalCount))

	return products, totalCount, nil
}

func (r *productRepo) Replace(ctx context.Context, tx pgx.Tx, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Replace")
	defer span.End()

	span.SetAttributes(attribute.String("id", product.ID))

	query := `
		UPDATE products
		SET name = $2, price = $3, quantity = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at;
	`

	if err := tx.QueryRow(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Price,
		flatColumn(product.Stock),
	).Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}

		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Failed to replace product", zap.String("id", product.ID), zap.Error(err))

		return fmt.Errorf("error replacing product: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM product_sizes WHERE product_id = $1`, product.ID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("error clearing product sizes: %w", err)
	}

	if err := r.insertSizes(ctx, tx, product.ID, product.Stock); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

func (r *productRepo) DeleteByID(ctx context.Context, tx pgx.Tx, id string) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.DeleteByID")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	commandTag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Error deleting product by id", zap.String("id", id), zap.Error(err))

		return fmt.Errorf("error deleting product by id: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

// LockForUpdate row-locks the given products in id order and returns the ids
// that exist. Locking in a fixed order keeps multi-item orders from
// deadlocking each other.
func (r *productRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, ids []string) ([]string, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.LockForUpdate")
	defer span.End()

	span.SetAttributes(attribute.Int("ids_count", len(ids)))

	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := tx.Query(ctx, `SELECT id FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error locking products: %w", err)
	}

	locked, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error locking products: %w", err)
	}

	return locked, nil
}

func (r *productRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetForUpdate")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	products, err := r.loadProducts(ctx, tx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1 FOR UPDATE`, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error re-reading product: %w", err)
	}

	if len(products) == 0 {
		return nil, ErrProductNotFound
	}

	return &products[0], nil
}

func (r *productRepo) DecrementBucket(ctx context.Context, tx pgx.Tx, productID string, position, quantity int) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.DecrementBucket")
	defer span.End()

	span.SetAttributes(
		attribute.String("product_id", productID),
		attribute.Int("position", position),
		attribute.Int("quantity", quantity),
	)

	query := `
		UPDATE product_sizes
		SET quantity = quantity - $3
		WHERE product_id = $1
			AND position = $2
			AND quantity >= $3;
	`

	commandTag, err := tx.Exec(ctx, query, productID, position, quantity)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error decreasing bucket stock",
			zap.String("product_id", productID),
			zap.Int("position", position),
			zap.Error(err),
		)

		return fmt.Errorf("error decreasing stock for product %s: %w", productID, err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrStockChanged
	}

	return nil
}

func (r *productRepo) DecrementFlat(ctx context.Context, tx pgx.Tx, productID string, quantity int) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.DecrementFlat")
	defer span.End()

	span.SetAttributes(
		attribute.String("product_id", productID),
		attribute.Int("quantity", quantity),
	)

	query := `
		UPDATE products
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1
			AND quantity >= $2;
	`

	commandTag, err := tx.Exec(ctx, query, productID, quantity)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error decreasing flat stock",
			zap.String("product_id", productID),
			zap.Error(err),
		)

		return fmt.Errorf("error decreasing stock for product %s: %w", productID, err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrStockChanged
	}

	return nil
}

// loadProducts runs a products query selecting productColumns and attaches
// size buckets with one extra query.
func (r *productRepo) loadProducts(ctx context.Context, q querier, query string, args ...any) ([]domain.Product, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	var bucketed []string

	for rows.Next() {
		var p domain.Product
		var flat *int

		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &flat, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning product: %w", err)
		}

		if flat != nil {
			p.Stock = domain.FlatStock(*flat)
		} else {
			bucketed = append(bucketed, p.ID)
		}

		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	rows.Close()

	if len(bucketed) == 0 {
		return products, nil
	}

	sizes, err := r.loadSizes(ctx, q, bucketed)
	if err != nil {
		return nil, err
	}

	for i := range products {
		if products[i].Stock.IsFlat() {
			continue
		}
		products[i].Stock = domain.BucketedStock(sizes[products[i].ID])
	}

	return products, nil
}

// loadSizes returns buckets per product in position order. Positions are
// written as 0..n-1, so a bucket's slice index is its position.
func (r *productRepo) loadSizes(ctx context.Context, q querier, productIDs []string) (map[string][]domain.Bucket, error) {
	query := `
		SELECT product_id, size, quantity
		FROM product_sizes
		WHERE product_id = ANY($1)
		ORDER BY product_id, position
	`

	rows, err := q.Query(ctx, query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("error selecting product sizes: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]domain.Bucket, len(productIDs))
	for rows.Next() {
		var productID string
		var b domain.Bucket

		if err := rows.Scan(&productID, &b.Size, &b.Quantity); err != nil {
			return nil, fmt.Errorf("error scanning product size: %w", err)
		}

		result[productID] = append(result[productID], b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *productRepo) insertSizes(ctx context.Context, tx pgx.Tx, productID string, stock domain.StockShape) error {
	buckets := stock.Buckets()
	if len(buckets) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(buckets))
	for i, b := range buckets {
		rows = append(rows, []any{productID, i, b.Size, b.Quantity})
	}

	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"product_sizes"},
		[]string{"product_id", "position", "size", "quantity"},
		pgx.CopyFromRows(rows),
	); err != nil {
		mylogger.Error(ctx, r.logger, "Error inserting product sizes", zap.String("product_id", productID), zap.Error(err))

		return fmt.Errorf("error inserting product sizes: %w", err)
	}

	return nil
}

func flatColumn(stock domain.StockShape) *int {
	if !stock.IsFlat() {
		return nil
	}

	q := stock.FlatQuantity()

	return &q
}

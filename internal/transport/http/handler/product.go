package handler

import (
	"context"
	"time"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/djdiptayan1/HRone/internal/service"
	"github.com/djdiptayan1/HRone/pkg/mylogger"
	"github.com/djdiptayan1/HRone/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ProductHandler struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *zap.Logger
	timeout  time.Duration
}

func NewProductHandler(svc service.ProductService, logger *zap.Logger, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		service:  svc,
		validate: utils.NewValidator(),
		logger:   logger,
		timeout:  timeout,
	}
}

type SizeInput struct {
	Size     string `json:"size" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// ProductInput carries either sizes or a flat quantity, never both.
type ProductInput struct {
	Name     string      `json:"name" validate:"required,max=200"`
	Price    *float64    `json:"price" validate:"required,gte=0"`
	Sizes    []SizeInput `json:"sizes" validate:"omitempty,dive"`
	Quantity *int        `json:"quantity" validate:"omitempty,gte=0"`
}

func (in *ProductInput) toDomain() domain.ProductInput {
	out := domain.ProductInput{
		Name:  in.Name,
		Price: *in.Price,
	}

	if in.Quantity != nil {
		out.Stock = domain.FlatStock(*in.Quantity)
		return out
	}

	buckets := make([]domain.Bucket, 0, len(in.Sizes))
	for _, s := range in.Sizes {
		buckets = append(buckets, domain.Bucket{Size: s.Size, Quantity: s.Quantity})
	}
	out.Stock = domain.BucketedStock(buckets)

	return out
}

// parseInput returns the decoded body, or a non-nil problem to send back
// as a 400.
func (h *ProductHandler) parseInput(ctx context.Context, c *fiber.Ctx) (*ProductInput, any) {
	input := new(ProductInput)

	if err := c.BodyParser(input); err != nil {
		mylogger.Warn(ctx, h.logger, "body parsing failed", zap.Error(err))

		return nil, "invalid request body"
	}

	if err := h.validate.Struct(input); err != nil {
		mylogger.Warn(ctx, h.logger, "product input validation failed", zap.Error(err))

		return nil, utils.FormatValidationError(err)
	}

	if input.Quantity != nil && input.Sizes != nil {
		return nil, "provide either sizes or quantity, not both"
	}

	return input, nil
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	input, problem := h.parseInput(ctx, c)
	if problem != nil {
		return badRequest(c, problem)
	}

	id, err := h.service.Create(ctx, input.toDomain())
	if err != nil {
		mylogger.Warn(ctx, h.logger, "create product failed", zap.Error(err))

		return respondError(c, err)
	}

	mylogger.Info(ctx, h.logger, "create product succeeded", zap.String("product_id", id))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id": id,
	})
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	limit, offset, err := parsePaging(c)
	if err != nil {
		mylogger.Warn(ctx, h.logger, "invalid paging", zap.Error(err))

		return respondError(c, err)
	}

	filter := domain.ProductFilter{
		Name: c.Query("name"),
		Size: c.Query("size"),
	}

	products, page, err := h.service.List(ctx, filter, limit, offset)
	if err != nil {
		mylogger.Warn(
			ctx,
			h.logger,
			"list products failed",
			zap.String("name", filter.Name),
			zap.String("size", filter.Size),
			zap.Error(err),
		)

		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": products,
		"page": page,
	})
}

func (h *ProductHandler) FindByID(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	id := c.Params("id")

	product, err := h.service.FindByID(ctx, id)
	if err != nil {
		mylogger.Warn(ctx, h.logger, "find by id failed", zap.String("product_id", id), zap.Error(err))

		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(productResponse(product))
}

func (h *ProductHandler) Replace(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	id := c.Params("id")

	input, problem := h.parseInput(ctx, c)
	if problem != nil {
		return badRequest(c, problem)
	}

	product, err := h.service.Replace(ctx, id, input.toDomain())
	if err != nil {
		mylogger.Warn(ctx, h.logger, "replace product failed", zap.String("product_id", id), zap.Error(err))

		return respondError(c, err)
	}

	mylogger.Info(ctx, h.logger, "replace product succeeded", zap.String("product_id", id))

	return c.Status(fiber.StatusAccepted).JSON(product.Summary())
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	id := c.Params("id")

	deleted, err := h.service.Delete(ctx, id)
	if err != nil {
		mylogger.Warn(ctx, h.logger, "delete product failed", zap.String("product_id", id), zap.Error(err))

		return respondError(c, err)
	}

	mylogger.Info(ctx, h.logger, "delete product handled", zap.String("product_id", id), zap.Bool("deleted", deleted))

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"deleted": deleted,
	})
}

func productResponse(p *domain.Product) fiber.Map {
	body := fiber.Map{
		"id":         p.ID,
		"name":       p.Name,
		"price":      p.Price,
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
	}

	if p.Stock.IsFlat() {
		body["quantity"] = p.Stock.FlatQuantity()
	} else {
		body["sizes"] = p.Stock.Buckets()
	}

	return body
}

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

type OrderHandler struct {
	service  service.OrderService
	validate *validator.Validate
	logger   *zap.Logger
	timeout  time.Duration
}

func NewOrderHandler(svc service.OrderService, logger *zap.Logger, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		service:  svc,
		validate: utils.NewValidator(),
		logger:   logger,
		timeout:  timeout,
	}
}

type OrderItemInput struct {
	ProductID string `json:"productId" validate:"required"`
	Qty       int    `json:"qty" validate:"gt=0"`
}

type OrderInput struct {
	UserID string           `json:"userId" validate:"required"`
	Items  []OrderItemInput `json:"items" validate:"dive"`
}

func (in *OrderInput) items() []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, domain.OrderItem{ProductID: item.ProductID, Qty: item.Qty})
	}

	return items
}

func (h *OrderHandler) parseInput(ctx context.Context, c *fiber.Ctx) (*OrderInput, any) {
	input := new(OrderInput)

	if err := c.BodyParser(input); err != nil {
		mylogger.Warn(ctx, h.logger, "body parsing failed", zap.Error(err))

		return nil, "invalid request body"
	}

	if err := h.validate.Struct(input); err != nil {
		mylogger.Warn(ctx, h.logger, "order input validation failed", zap.Error(err))

		return nil, utils.FormatValidationError(err)
	}

	return input, nil
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	input, problem := h.parseInput(ctx, c)
	if problem != nil {
		return badRequest(c, problem)
	}

	id, err := h.service.PlaceOrder(ctx, input.UserID, input.items())
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id": id,
	})
}

func (h *OrderHandler) ListForUser(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	userID := c.Params("userId")

	limit, offset, err := parsePaging(c)
	if err != nil {
		mylogger.Warn(ctx, h.logger, "invalid paging", zap.String("user_id", userID), zap.Error(err))

		return respondError(c, err)
	}

	orders, page, err := h.service.ListOrdersForUser(ctx, userID, limit, offset)
	if err != nil {
		mylogger.Warn(ctx, h.logger, "list orders failed", zap.String("user_id", userID), zap.Error(err))

		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": orders,
		"page": page,
	})
}

func (h *OrderHandler) Replace(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	orderID := c.Params("orderId")

	input, problem := h.parseInput(ctx, c)
	if problem != nil {
		return badRequest(c, problem)
	}

	if err := h.service.ReplaceOrder(ctx, orderID, input.UserID, input.items()); err != nil {
		mylogger.Warn(ctx, h.logger, "replace order failed", zap.String("order_id", orderID), zap.Error(err))

		return respondError(c, err)
	}

	mylogger.Info(ctx, h.logger, "order replaced", zap.String("order_id", orderID))

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Order updated successfully",
	})
}

func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	orderID := c.Params("orderId")

	if err := h.service.DeleteOrder(ctx, orderID); err != nil {
		mylogger.Warn(ctx, h.logger, "delete order failed", zap.String("order_id", orderID), zap.Error(err))

		return respondError(c, err)
	}

	mylogger.Info(ctx, h.logger, "order deleted", zap.String("order_id", orderID))

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Order deleted successfully",
	})
}

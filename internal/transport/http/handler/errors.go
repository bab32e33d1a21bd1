package handler

import (
	"errors"
	"strconv"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/gofiber/fiber/v2"
)

func errorStatus(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindInvalidArgument:
		return fiber.StatusBadRequest
	case domain.KindInsufficientStock:
		return fiber.StatusUnprocessableEntity
	case domain.KindUnauthorized:
		return fiber.StatusUnauthorized
	case domain.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return "Internal server error"
}

// respondError writes err as {"error": message} with the status of its kind.
func respondError(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusUnauthorized {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	}

	return c.Status(status).JSON(fiber.Map{
		"error": errorMessage(err),
	})
}

func badRequest(c *fiber.Ctx, message any) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}

// parsePaging reads limit and offset, defaulting to 10 and 0.
func parsePaging(c *fiber.Ctx) (int, int, error) {
	limit := domain.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, domain.InvalidArgument("limit is invalid")
		}
		limit = n
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, domain.InvalidArgument("offset is invalid")
		}
		offset = n
	}

	if err := domain.ValidatePaging(limit, offset); err != nil {
		return 0, 0, err
	}

	return limit, offset, nil
}

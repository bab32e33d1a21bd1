package middleware

import (
	"context"
	"strings"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/gofiber/fiber/v2"
)

const (
	localsToken   = "token"
	localsSession = "session"
)

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (domain.Session, error)
}

func bearerToken(c *fiber.Ctx) (string, string) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", "Unauthorized: missed header"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Unauthorized: Invalid header format"
	}

	return parts[1], ""
}

func unauthorized(c *fiber.Ctx, message string) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": message})
}

// NewBearerMiddleware only requires a well-formed bearer header. The token
// itself is left for the handler to interpret.
func NewBearerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, problem := bearerToken(c)
		if problem != "" {
			return unauthorized(c, problem)
		}

		c.Locals(localsToken, token)
		return c.Next()
	}
}

// NewAuthMiddleware requires a bearer token that resolves to a live session.
func NewAuthMiddleware(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, problem := bearerToken(c)
		if problem != "" {
			return unauthorized(c, problem)
		}

		s, err := verifier.VerifyToken(c.UserContext(), token)
		if err != nil {
			return unauthorized(c, "Unauthorized: Invalid token")
		}

		c.Locals(localsToken, token)
		c.Locals(localsSession, s)
		return c.Next()
	}
}

func TokenFrom(c *fiber.Ctx) (string, bool) {
	token, ok := c.Locals(localsToken).(string)
	return token, ok && token != ""
}

func SessionFrom(c *fiber.Ctx) (domain.Session, bool) {
	s, ok := c.Locals(localsSession).(domain.Session)
	return s, ok
}

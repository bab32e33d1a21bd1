package handler

import (
	"context"
	"time"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/djdiptayan1/HRone/internal/session"
	"github.com/djdiptayan1/HRone/internal/transport/http/middleware"
	"github.com/djdiptayan1/HRone/pkg/mylogger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SessionManager interface {
	CreateSession(ctx context.Context, userData map[string]any) (session.Token, error)
	VerifyToken(ctx context.Context, token string) (domain.Session, error)
	InvalidateSession(ctx context.Context, token string) bool
	RefreshSession(ctx context.Context, token string) (session.Token, error)
	CountActiveSessions() int
	TTL() time.Duration
}

type AuthHandler struct {
	sessions SessionManager
	logger   *zap.Logger
}

func NewAuthHandler(sessions SessionManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type LoginInput struct {
	UserID   string         `json:"user_id"`
	Metadata map[string]any `json:"metadata"`
}

func (h *AuthHandler) tokenBody(token session.Token, message string) fiber.Map {
	return fiber.Map{
		"access_token": token.AccessToken,
		"token_type":   "bearer",
		"expires_in":   int(h.sessions.TTL().Seconds()),
		"message":      message,
	}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()

	input := new(LoginInput)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(input); err != nil {
			mylogger.Warn(ctx, h.logger, "body parsing failed", zap.Error(err))

			return badRequest(c, "invalid request body")
		}
	}

	token, err := h.sessions.CreateSession(ctx, session.MergeUserData(input.UserID, input.Metadata))
	if err != nil {
		mylogger.Error(ctx, h.logger, "login failed", zap.Error(err))

		return respondError(c, err)
	}

	mylogger.Info(ctx, h.logger, "session created", zap.String("session_id", token.SessionID))

	return c.Status(fiber.StatusCreated).JSON(h.tokenBody(token, "Session created successfully"))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()

	token, ok := middleware.TokenFrom(c)
	if !ok || !h.sessions.InvalidateSession(ctx, token) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found or already expired",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Session invalidated successfully",
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	ctx := c.UserContext()

	token, ok := middleware.TokenFrom(c)
	if !ok {
		return respondError(c, domain.Unauthorized("Invalid or expired token"))
	}

	refreshed, err := h.sessions.RefreshSession(ctx, token)
	if err != nil {
		mylogger.Warn(ctx, h.logger, "refresh failed", zap.Error(err))

		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(h.tokenBody(refreshed, "Session refreshed successfully"))
}

func (h *AuthHandler) SessionInfo(c *fiber.Ctx) error {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return respondError(c, domain.Unauthorized("Invalid or expired session"))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"session_id": s.ID,
		"created_at": s.CreatedAt,
		"expires_at": s.ExpiresAt,
		"user_data":  s.UserData,
		"is_active":  true,
	})
}

func (h *AuthHandler) Stats(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"active_sessions": h.sessions.CountActiveSessions(),
		"message":         "Session statistics retrieved successfully",
	})
}

package http

import (
	"github.com/djdiptayan1/HRone/internal/transport/http/handler"
	"github.com/djdiptayan1/HRone/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Product *handler.ProductHandler
	Order   *handler.OrderHandler
}

type RouterConfig struct {
	Prefix string
	// GuardMutations puts product and order writes behind a bearer token.
	GuardMutations bool
}

func RegisterRoutes(app *fiber.App, h *Handlers, verifier middleware.TokenVerifier, cfg RouterConfig) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Ecommerce API Service"})
	})

	requireSession := middleware.NewAuthMiddleware(verifier)

	guard := func(c *fiber.Ctx) error {
		return c.Next()
	}
	if cfg.GuardMutations {
		guard = requireSession
	}

	api := app.Group(cfg.Prefix)

	auth := api.Group("/auth")
	auth.Post("/login", h.Auth.Login)
	auth.Post("/logout", middleware.NewBearerMiddleware(), h.Auth.Logout)
	auth.Post("/refresh", requireSession, h.Auth.Refresh)
	auth.Get("/session", requireSession, h.Auth.SessionInfo)
	auth.Get("/sessions/stats", h.Auth.Stats)

	product := api.Group("/products")
	product.Post("", guard, h.Product.Create)
	product.Get("", h.Product.List)
	product.Get("/:id", h.Product.FindByID)
	product.Put("/:id", guard, h.Product.Replace)
	product.Delete("/:id", guard, h.Product.Delete)

	order := api.Group("/orders")
	order.Post("", guard, h.Order.Create)
	order.Get("/:userId", h.Order.ListForUser)
	order.Put("/:orderId", guard, h.Order.Replace)
	order.Delete("/:orderId", guard, h.Order.Delete)
}
